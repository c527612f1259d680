package stream

import (
	"context"
	"time"

	"intake_server/core/domain"
	"intake_server/pkg/apperr"

	"github.com/google/uuid"
)

const JobTypeInboundEmail = "inbound.email"

// Job is the stream envelope of one queued inbound email.
type Job struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	Email     domain.InboundEmail `json:"email"`
	CreatedAt time.Time           `json:"created_at"`
}

type Producer struct {
	stream *RedisStream
	name   string
}

func NewProducer(stream *RedisStream, name string) *Producer {
	if name == "" {
		name = StreamInboundEmails
	}
	return &Producer{stream: stream, name: name}
}

// PublishInboundEmail queues the email for the worker and returns the stream message id.
func (p *Producer) PublishInboundEmail(ctx context.Context, email domain.InboundEmail) (string, error) {
	if email.ID == uuid.Nil {
		email.ID = uuid.New()
	}
	job := &Job{
		ID:        email.ID.String(),
		Type:      JobTypeInboundEmail,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	id, err := p.stream.Publish(ctx, p.name, job)
	if err != nil {
		return "", apperr.QueueError("publish inbound email", err)
	}
	return id, nil
}
