package http

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"
	"intake_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const IdempotencyTTL = 24 * time.Hour

// EmailQueue accepts inbound emails for background processing.
type EmailQueue interface {
	PublishInboundEmail(ctx context.Context, email domain.InboundEmail) (string, error)
}

// IdempotencyStore claims a key once within ttl. Delete releases a claim whose
// email could not be processed, so the gateway retry goes through.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type IntakeMetrics struct {
	Processed  int64 `json:"processed"`
	Queued     int64 `json:"queued"`
	Duplicates int64 `json:"duplicates"`
}

// InboundEmailRequest is the webhook payload posted by the mail gateway.
type InboundEmailRequest struct {
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	To         *string   `json:"to,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	ThreadID   *string   `json:"thread_id,omitempty"`
}

func (r *InboundEmailRequest) toDomain() domain.InboundEmail {
	email := domain.NewInboundEmail(r.From, r.Subject, r.Body, r.ReceivedAt)
	email.ToAddress = r.To
	email.ThreadID = r.ThreadID
	return email
}

type QueuedResponse struct {
	EmailID   string `json:"email_id"`
	MessageID string `json:"stream_id"`
}

type IntakeHandler struct {
	intake      in.IntakeService
	queue       EmailQueue
	idempotency IdempotencyStore
	metrics     IntakeMetrics
}

// NewIntakeHandler creates the inbound email handler. queue and idempotency may be nil.
func NewIntakeHandler(intake in.IntakeService, queue EmailQueue, idempotency IdempotencyStore) *IntakeHandler {
	return &IntakeHandler{
		intake:      intake,
		queue:       queue,
		idempotency: idempotency,
	}
}

func (h *IntakeHandler) Register(router fiber.Router) {
	inbound := router.Group("/inbound")
	inbound.Post("/email", h.ProcessEmail)
	inbound.Post("/email/async", h.EnqueueEmail)
	inbound.Get("/stats", h.GetStats)
}

// GetStats reports the handler counters.
func (h *IntakeHandler) GetStats(c *fiber.Ctx) error {
	return response.OK(c, h.GetMetrics())
}

func (h *IntakeHandler) GetMetrics() IntakeMetrics {
	return IntakeMetrics{
		Processed:  atomic.LoadInt64(&h.metrics.Processed),
		Queued:     atomic.LoadInt64(&h.metrics.Queued),
		Duplicates: atomic.LoadInt64(&h.metrics.Duplicates),
	}
}

// ProcessEmail runs intake synchronously and returns the extraction result.
func (h *IntakeHandler) ProcessEmail(c *fiber.Ctx) error {
	req, err := parseInbound(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	if h.isDuplicate(ctx, req.MessageID) {
		return response.OK(c, fiber.Map{"duplicate": true, "message_id": req.MessageID})
	}

	result, err := h.intake.Process(ctx, in.SourceHTTP, req.toDomain())
	if err != nil {
		h.release(ctx, req.MessageID)
		return err
	}
	atomic.AddInt64(&h.metrics.Processed, 1)

	if result.CustomerSaved {
		return response.Created(c, result)
	}
	return response.OK(c, result)
}

// EnqueueEmail queues the email on the intake stream.
func (h *IntakeHandler) EnqueueEmail(c *fiber.Ctx) error {
	if h.queue == nil {
		return apperr.NotReady("intake queue")
	}
	req, err := parseInbound(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	if h.isDuplicate(ctx, req.MessageID) {
		return response.OK(c, fiber.Map{"duplicate": true, "message_id": req.MessageID})
	}

	email := req.toDomain()
	streamID, err := h.queue.PublishInboundEmail(ctx, email)
	if err != nil {
		h.release(ctx, req.MessageID)
		return err
	}
	atomic.AddInt64(&h.metrics.Queued, 1)

	logger.WithContext(ctx).Debug("[IntakeHandler.EnqueueEmail] queued %s as %s", email.ID, streamID)
	return response.Accepted(c, QueuedResponse{EmailID: email.ID.String(), MessageID: streamID})
}

// isDuplicate claims the gateway message id. Store errors let the email through.
func (h *IntakeHandler) isDuplicate(ctx context.Context, messageID string) bool {
	if h.idempotency == nil || messageID == "" {
		return false
	}
	ok, err := h.idempotency.Claim(ctx, dedupeKey(messageID), IdempotencyTTL)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("[IntakeHandler] idempotency check failed for %s", messageID)
		return false
	}
	if !ok {
		atomic.AddInt64(&h.metrics.Duplicates, 1)
		logger.WithContext(ctx).Debug("[IntakeHandler] duplicate message %s skipped", messageID)
		return true
	}
	return false
}

// release drops the claim after a failed attempt.
func (h *IntakeHandler) release(ctx context.Context, messageID string) {
	if h.idempotency == nil || messageID == "" {
		return
	}
	if err := h.idempotency.Delete(ctx, dedupeKey(messageID)); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("[IntakeHandler] failed to release claim for %s", messageID)
	}
}

func dedupeKey(messageID string) string {
	return "inbound:dedupe:" + messageID
}

func parseInbound(c *fiber.Ctx) (*InboundEmailRequest, error) {
	var req InboundEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperr.BadRequest("invalid request body")
	}
	req.MessageID = strings.TrimSpace(req.MessageID)
	if strings.TrimSpace(req.From) == "" {
		return nil, apperr.MissingField("from")
	}
	return &req, nil
}
