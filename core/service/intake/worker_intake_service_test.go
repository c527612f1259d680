package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake_server/core/domain"
	"intake_server/core/port/in"
	"intake_server/core/service/extraction"
	"intake_server/pkg/apperr"
	"intake_server/pkg/metrics"
)

type memoryCustomers struct {
	mu       sync.Mutex
	profiles map[string]*domain.CustomerProfile
	saveErr  error
	saves    int
}

func newMemoryCustomers() *memoryCustomers {
	return &memoryCustomers{profiles: make(map[string]*domain.CustomerProfile)}
}

func (m *memoryCustomers) FindByEmail(_ context.Context, email string) (*domain.CustomerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[email]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memoryCustomers) Save(_ context.Context, draft *domain.CustomerProfile) (*domain.CustomerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	saved := *draft
	saved.ID = int64(len(m.profiles) + 1)
	saved.Existing = true
	saved.CreatedAt = time.Now()
	m.profiles[saved.Email] = &saved
	return &saved, nil
}

func newTestService(customers *memoryCustomers) *Service {
	deps := &extraction.PipelineDeps{
		Pattern:   extraction.NewPatternExtractor(nil),
		Customers: customers,
	}
	return NewService(extraction.NewHybridPipeline(deps, nil), customers, metrics.NewMetrics())
}

func TestService_Process(t *testing.T) {
	ctx := context.Background()
	customers := newMemoryCustomers()
	svc := newTestService(customers)
	m := metrics.NewMetrics()
	okBefore := testutil.ToFloat64(m.EmailsProcessedTotal.WithLabelValues(in.SourceHTTP, "ok"))
	createdBefore := testutil.ToFloat64(m.CustomersCreated)

	email := domain.NewInboundEmail(
		"Ola@NordicFish.no",
		"Purchase order",
		"We need 500kg of Atlantic salmon fillets, SKU AB123\n\nBest regards,\nOla Nordmann",
		time.Time{},
	)

	result, err := svc.Process(ctx, in.SourceHTTP, email)
	require.NoError(t, err)

	assert.Equal(t, email.ID.String(), result.EmailID)
	assert.Equal(t, domain.IntentOrder, result.Classification.Intent)
	require.Len(t, result.LineItems.Items, 1)
	assert.Equal(t, domain.ProductSalmon, result.LineItems.Items[0].Product)

	require.True(t, result.CustomerSaved)
	profile := result.Customer.Profile
	assert.Equal(t, "ola@nordicfish.no", profile.Email)
	assert.Equal(t, "Norway", profile.Country)
	assert.NotZero(t, profile.ID)
	assert.Equal(t, 1, customers.saves)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(m.EmailsProcessedTotal.WithLabelValues(in.SourceHTTP, "ok")))
	assert.Equal(t, createdBefore+1, testutil.ToFloat64(m.CustomersCreated))

	t.Run("second email from the same sender reuses the customer", func(t *testing.T) {
		again, err := svc.Process(ctx, in.SourceHTTP, domain.NewInboundEmail("ola@nordicfish.no", "Re: order", "Thanks", time.Time{}))
		require.NoError(t, err)

		assert.False(t, again.CustomerSaved)
		assert.True(t, again.Customer.Profile.Existing)
		assert.Equal(t, profile.ID, again.Customer.Profile.ID)
		assert.Equal(t, 1, customers.saves)
	})
}

func TestService_ProcessAssignsID(t *testing.T) {
	svc := newTestService(newMemoryCustomers())

	result, err := svc.Process(context.Background(), in.SourceStream, domain.InboundEmail{FromAddress: "a@b.com"})
	require.NoError(t, err)

	id, err := uuid.Parse(result.EmailID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, domain.IntentGeneral, result.Classification.Intent)
	assert.NotEmpty(t, result.LineItems.Items)
}

func TestService_ProcessValidation(t *testing.T) {
	svc := newTestService(newMemoryCustomers())

	tests := []struct {
		name string
		from string
		code string
	}{
		{"missing sender", "  ", apperr.CodeMissingField},
		{"not an address", "nobody", apperr.CodeInvalidInput},
		{"dangling at", "nobody@", apperr.CodeInvalidInput},
		{"empty bracketed domain", "Nobody <nobody@>", apperr.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Process(context.Background(), in.SourceHTTP, domain.InboundEmail{FromAddress: tt.from})

			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.AsAppError(err).Code)
		})
	}
}

func TestService_ProcessSaveFailure(t *testing.T) {
	customers := newMemoryCustomers()
	customers.saveErr = errors.New("connection refused")
	svc := newTestService(customers)

	_, err := svc.Process(context.Background(), in.SourceHTTP, domain.NewInboundEmail("buyer@nordicfish.no", "", "hi", time.Time{}))

	require.Error(t, err)
	appErr := apperr.AsAppError(err)
	assert.Equal(t, apperr.CodeDatabaseError, appErr.Code)
	assert.ErrorIs(t, err, customers.saveErr)
}

func TestService_ProcessWithoutStore(t *testing.T) {
	deps := &extraction.PipelineDeps{Pattern: extraction.NewPatternExtractor(nil)}
	svc := NewService(extraction.NewHybridPipeline(deps, nil), nil, nil)

	result, err := svc.Process(context.Background(), in.SourceHTTP, domain.NewInboundEmail("buyer@nordicfish.no", "", "hi", time.Time{}))

	require.NoError(t, err)
	assert.False(t, result.CustomerSaved)
	assert.True(t, result.Customer.Profile.IsDraft())
}
