// Package intake processes one inbound email end to end.
//
// Flow:
//
//	validate sender -> classify -> extract customer -> parse line items -> persist draft customer
//
// The extraction steps never fail; only validation and draft persistence surface errors.
package intake

import (
	"context"
	"strings"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/port/out"
	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"
	"intake_server/pkg/metrics"

	"github.com/google/uuid"
)

var _ in.IntakeService = (*Service)(nil)

// Service runs the extraction pipeline for an inbound email.
type Service struct {
	extraction in.ExtractionService
	customers  out.CustomerRepository
	metrics    *metrics.Metrics
}

// NewService creates the intake service. customers may be nil, in which case drafts are
// returned but not persisted.
func NewService(extraction in.ExtractionService, customers out.CustomerRepository, m *metrics.Metrics) *Service {
	return &Service{
		extraction: extraction,
		customers:  customers,
		metrics:    m,
	}
}

// Process extracts intent, customer and line items from the email.
func (s *Service) Process(ctx context.Context, source string, email domain.InboundEmail) (*in.IntakeResult, error) {
	start := time.Now()

	if err := validate(email); err != nil {
		s.observe(source, "rejected", start)
		return nil, err
	}
	if email.ID == uuid.Nil {
		email.ID = uuid.New()
	}

	ctx = logger.ContextWithEmailID(ctx, email.ID.String())
	log := logger.WithContext(ctx).WithField("source", source)

	result := &in.IntakeResult{
		EmailID:        email.ID.String(),
		Classification: s.extraction.Classify(ctx, email.Subject, email.Body),
		Customer:       s.extraction.ExtractCustomer(ctx, email.FromAddress, email.Body, email.Subject),
		LineItems:      s.extraction.ParseLineItems(ctx, email.Body),
	}

	if profile := result.Customer.Profile; profile.IsDraft() && s.customers != nil {
		saved, err := s.customers.Save(ctx, profile)
		if err != nil {
			log.WithError(err).Error("[IntakeService.Process] failed to save customer %s", profile.Email)
			s.observe(source, "failed", start)
			return nil, apperr.DatabaseError("save customer", err)
		}
		result.Customer.Profile = saved
		result.CustomerSaved = true
		if s.metrics != nil {
			s.metrics.CustomersCreated.Inc()
		}
	}

	log.WithDuration(time.Since(start)).Info("[IntakeService.Process] intent=%s customer_tier=%s items=%d",
		result.Classification.Intent, result.Customer.Tier, len(result.LineItems.Items))

	s.observe(source, "ok", start)
	return result, nil
}

func (s *Service) observe(source, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.EmailsProcessedTotal.WithLabelValues(source, status).Inc()
	s.metrics.IntakeDuration.Observe(time.Since(start).Seconds())
}

func validate(email domain.InboundEmail) error {
	from := strings.TrimSpace(email.FromAddress)
	if from == "" {
		return apperr.MissingField("from_address")
	}
	if email.SenderDomain() == "" {
		return apperr.InvalidInput("from_address", "not an email address")
	}
	return nil
}
