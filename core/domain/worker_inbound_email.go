package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InboundEmail is the webhook payload for a single received email.
// It is created once per webhook call and never mutated afterwards.
type InboundEmail struct {
	ID          uuid.UUID `json:"id"`
	FromAddress string    `json:"from_address"`
	ToAddress   *string   `json:"to_address,omitempty"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
	ThreadID    *string   `json:"thread_id,omitempty"`
}

// NewInboundEmail builds an InboundEmail, assigning an ID and a receive time when missing.
func NewInboundEmail(from, subject, body string, receivedAt time.Time) InboundEmail {
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	return InboundEmail{
		ID:          uuid.New(),
		FromAddress: strings.TrimSpace(from),
		Subject:     subject,
		Body:        body,
		ReceivedAt:  receivedAt,
	}
}

// SenderDomain returns the lowercased domain part of the sender address.
func (e InboundEmail) SenderDomain() string {
	return EmailDomain(e.FromAddress)
}

// EmailDomain returns the lowercased domain of an address, or "" if there is none.
func EmailDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(strings.TrimRight(address[at+1:], ">")))
}
