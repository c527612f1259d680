package extraction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake_server/core/domain"
	"intake_server/core/port/out"
)

type fakeCustomerRepository struct {
	mu        sync.Mutex
	profiles  map[string]*domain.CustomerProfile
	findErr   error
	findCalls int
}

func (r *fakeCustomerRepository) FindByEmail(_ context.Context, email string) (*domain.CustomerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	if p, ok := r.profiles[email]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCustomerRepository) Save(_ context.Context, draft *domain.CustomerProfile) (*domain.CustomerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *draft
	saved.ID = int64(len(r.profiles) + 1)
	saved.Existing = true
	r.profiles[saved.Email] = &saved
	return &saved, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []out.UsageEvent
}

func (r *fakeRecorder) Record(_ context.Context, event out.UsageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *fakeRecorder) all() []out.UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]out.UsageEvent(nil), r.events...)
}

func (r *fakeRecorder) last(t *testing.T) out.UsageEvent {
	events := r.all()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

type fakeStats struct{}

func (fakeStats) Stats() out.CompletionStats {
	return out.CompletionStats{Requests: 3, TokensUsed: 420, CircuitState: "closed"}
}

func newTestPipeline(client out.CompletionClient, repo out.CustomerRepository, config *PipelineConfig) (*HybridPipeline, *fakeRecorder) {
	recorder := &fakeRecorder{}
	deps := &PipelineDeps{
		Pattern:   NewPatternExtractor(nil),
		Customers: repo,
		Recorder:  recorder,
	}
	if client != nil {
		deps.Generative = NewGenerativeExtractor(client, nil)
	}
	return NewHybridPipeline(deps, config), recorder
}

func TestHybridPipeline_Classify(t *testing.T) {
	ctx := context.Background()
	subject, body := "Hello", "Could you send fish?"
	patternOnly, _ := newTestPipeline(nil, nil, nil)
	want := patternOnly.Classify(ctx, subject, body)
	require.Equal(t, domain.IntentEnquiry, want.Intent)
	require.Less(t, want.Confidence, 0.7)

	t.Run("ai transport failure degrades to pattern result", func(t *testing.T) {
		client := &fakeCompletionClient{err: errors.New("dial tcp: i/o timeout")}
		pipeline, recorder := newTestPipeline(client, nil, nil)

		got := pipeline.Classify(ctx, subject, body)

		assert.Equal(t, want, got)
		assert.Equal(t, 1, client.calls())
		assert.Equal(t, out.UsageEvent{
			Operation: OperationClassify,
			Outcome:   out.OutcomeOpenAIFailed,
			InputSize: len(subject) + len(body),
		}, recorder.last(t))
	})

	t.Run("ai label is used", func(t *testing.T) {
		client := &fakeCompletionClient{response: "ORDER"}
		pipeline, recorder := newTestPipeline(client, nil, nil)

		got := pipeline.Classify(ctx, subject, body)

		assert.Equal(t, domain.IntentOrder, got.Intent)
		assert.Equal(t, domain.TierAI, got.Tier)
		assert.InDelta(t, 0.9, got.Confidence, 1e-9)
		assert.Equal(t, out.OutcomeOpenAIUsed, recorder.last(t).Outcome)
	})

	t.Run("hybrid mode disabled never calls ai", func(t *testing.T) {
		client := &fakeCompletionClient{response: "ORDER"}
		config := DefaultPipelineConfig()
		config.Policy.HybridModeEnabled = false
		pipeline, recorder := newTestPipeline(client, nil, config)

		got := pipeline.Classify(ctx, subject, body)

		assert.Equal(t, want, got)
		assert.Zero(t, client.calls())
		assert.Equal(t, out.OutcomePatternSufficient, recorder.last(t).Outcome)
	})

	t.Run("empty email without ai is general", func(t *testing.T) {
		got := patternOnly.Classify(ctx, "", "")

		assert.Equal(t, domain.IntentGeneral, got.Intent)
		assert.Equal(t, domain.TierPattern, got.Tier)
	})
}

func TestHybridPipeline_ExtractCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("existing customer short-circuits", func(t *testing.T) {
		stored := &domain.CustomerProfile{
			ID:            7,
			Email:         "buyer@nordicfish.no",
			ContactPerson: "Ola Nordmann",
			CompanyName:   "Nordic Fish AS",
			Country:       "Norway",
			ExtractedBy:   domain.TierAI,
		}
		repo := &fakeCustomerRepository{profiles: map[string]*domain.CustomerProfile{stored.Email: stored}}
		client := &fakeCompletionClient{response: "{}"}
		pipeline, recorder := newTestPipeline(client, repo, nil)

		first := pipeline.ExtractCustomer(ctx, "Buyer@NordicFish.no", "Best regards,\nSomeone Else", "")
		second := pipeline.ExtractCustomer(ctx, "buyer@nordicfish.no", "different body", "")

		require.NotNil(t, first.Profile)
		assert.Equal(t, first, second)
		assert.Equal(t, int64(7), second.Profile.ID)
		assert.Equal(t, "Ola Nordmann", second.Profile.ContactPerson)
		assert.True(t, second.Profile.Existing)
		assert.Equal(t, domain.TierAI, second.Tier)
		assert.Equal(t, 2, repo.findCalls)
		assert.Zero(t, client.calls())
		assert.Empty(t, recorder.all())
	})

	t.Run("lookup error is treated as not found", func(t *testing.T) {
		repo := &fakeCustomerRepository{findErr: errors.New("connection refused")}
		pipeline, recorder := newTestPipeline(nil, repo, nil)

		got := pipeline.ExtractCustomer(ctx, "buyer@nordicfish.no", "Hello", "")

		require.NotNil(t, got.Profile)
		assert.False(t, got.Profile.Existing)
		assert.Equal(t, "Norway", got.Profile.Country)
		assert.Equal(t, domain.TierPattern, got.Tier)
		assert.Equal(t, out.OutcomePatternSufficient, recorder.last(t).Outcome)
	})

	t.Run("weak pattern result uses ai", func(t *testing.T) {
		client := &fakeCompletionClient{response: `{"contactPerson": "Kari", "companyName": "Fjord AS", "phone": "+47 1234 5678", "address": "", "country": "Norway"}`}
		repo := &fakeCustomerRepository{profiles: map[string]*domain.CustomerProfile{}}
		pipeline, recorder := newTestPipeline(client, repo, nil)

		got := pipeline.ExtractCustomer(ctx, "kari@gmail.com", "hi", "")

		assert.Equal(t, domain.TierAI, got.Tier)
		assert.Equal(t, "Fjord AS", got.Profile.CompanyName)
		assert.InDelta(t, 0.85, got.Confidence, 1e-9)
		assert.Equal(t, out.UsageEvent{
			Operation: OperationExtractCustomer,
			Outcome:   out.OutcomeOpenAIUsed,
			InputSize: len("hi"),
		}, recorder.last(t))
	})

	t.Run("malformed ai response falls back to basic profile", func(t *testing.T) {
		client := &fakeCompletionClient{response: "not json"}
		pipeline, recorder := newTestPipeline(client, nil, nil)

		got := pipeline.ExtractCustomer(ctx, "kari@gmail.com", "hi", "")

		assert.Equal(t, domain.TierAI, got.Tier)
		assert.Equal(t, domain.BasicContact, got.Profile.ContactPerson)
		assert.Equal(t, domain.UnknownCompany, got.Profile.CompanyName)
		assert.Equal(t, domain.TierAI, got.Profile.ExtractedBy)
		assert.Equal(t, out.OutcomeOpenAIFailed, recorder.last(t).Outcome)
	})

	t.Run("ai transport error keeps pattern result", func(t *testing.T) {
		client := &fakeCompletionClient{err: errors.New("dial tcp: i/o timeout")}
		pipeline, recorder := newTestPipeline(client, nil, nil)

		got := pipeline.ExtractCustomer(ctx, "kari@gmail.com", "hi", "")

		assert.Equal(t, domain.TierPattern, got.Tier)
		assert.Equal(t, domain.UnknownContact, got.Profile.ContactPerson)
		assert.Equal(t, out.OutcomeOpenAIFailed, recorder.last(t).Outcome)
	})

	t.Run("confident pattern result skips ai", func(t *testing.T) {
		client := &fakeCompletionClient{response: "{}"}
		pipeline, _ := newTestPipeline(client, nil, nil)
		body := "Best regards,\nOla Nordmann\nTel: +47 55 12 34 56\nAddress: Bryggen 12, Bergen"

		got := pipeline.ExtractCustomer(ctx, "ola@nordicfish.no", body, "")

		assert.Equal(t, domain.TierPattern, got.Tier)
		assert.Zero(t, client.calls())
	})
}

func TestHybridPipeline_ParseLineItems(t *testing.T) {
	ctx := context.Background()

	t.Run("confident pattern result skips ai", func(t *testing.T) {
		client := &fakeCompletionClient{response: "[]"}
		pipeline, recorder := newTestPipeline(client, nil, nil)

		got := pipeline.ParseLineItems(ctx, "We need 500kg of Atlantic salmon fillets, SKU AB123")

		require.Len(t, got.Items, 1)
		assert.Equal(t, domain.ProductSalmon, got.Items[0].Product)
		assert.Equal(t, domain.TierPattern, got.Tier)
		assert.Zero(t, client.calls())
		assert.Equal(t, out.OutcomePatternSufficient, recorder.last(t).Outcome)
	})

	t.Run("placeholder falls back to ai", func(t *testing.T) {
		client := &fakeCompletionClient{response: `[{"sourceText": "best price", "product": "GENERAL", "trimType": "UNKNOWN", "requestedQuantityKg": 0, "mappingConfidence": "MANUAL_REVIEW"}]`}
		pipeline, recorder := newTestPipeline(client, nil, nil)

		got := pipeline.ParseLineItems(ctx, "Please send your best price.")

		require.Len(t, got.Items, 1)
		assert.Equal(t, domain.TierAI, got.Tier)
		assert.Equal(t, domain.TierAI, got.Items[0].ExtractedBy)
		assert.Equal(t, out.OutcomeOpenAIUsed, recorder.last(t).Outcome)
	})

	t.Run("empty ai list keeps placeholder", func(t *testing.T) {
		client := &fakeCompletionClient{response: "[]"}
		pipeline, recorder := newTestPipeline(client, nil, nil)

		got := pipeline.ParseLineItems(ctx, "Please send your best price.")

		require.Len(t, got.Items, 1)
		assert.True(t, IsPlaceholder(got.Items))
		assert.Equal(t, domain.TierPattern, got.Tier)
		assert.Equal(t, out.OutcomeOpenAIFailed, recorder.last(t).Outcome)
	})
}

func TestHybridPipeline_GetProcessingStats(t *testing.T) {
	ctx := context.Background()
	client := &fakeCompletionClient{err: errors.New("boom")}
	pipeline := NewHybridPipeline(&PipelineDeps{
		Generative: NewGenerativeExtractor(client, nil),
		AIStats:    fakeStats{},
	}, nil)

	pipeline.Classify(ctx, "", "")
	pipeline.ParseLineItems(ctx, "We need 500kg of Atlantic salmon fillets, SKU AB123")

	stats := pipeline.GetProcessingStats()

	assert.True(t, stats.HybridModeEnabled)
	assert.True(t, stats.FallbackEnabled)
	assert.Equal(t, 0.7, stats.ConfidenceThreshold)
	assert.Equal(t, 0.5, stats.CustomerThreshold)
	assert.Equal(t, 0.6, stats.LineItemThreshold)
	assert.True(t, stats.AIConfigured)
	assert.Equal(t, "closed", stats.CircuitState)
	assert.Equal(t, int64(420), stats.AITokensUsed)
	assert.Equal(t, int64(3), stats.AIRequests)
	assert.Equal(t, int64(1), stats.Outcomes["classify.openai_failed"])
	assert.Equal(t, int64(1), stats.Outcomes["parse_line_items.pattern_sufficient"])

	// no side effects
	assert.Equal(t, stats, pipeline.GetProcessingStats())
}

func TestHybridPipeline_Concurrent(t *testing.T) {
	client := &fakeCompletionClient{response: "ORDER"}
	pipeline, recorder := newTestPipeline(client, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pipeline.Classify(context.Background(), "Hello", "Could you send fish?")
		}()
	}
	wg.Wait()

	assert.Len(t, recorder.all(), 20)
	assert.Equal(t, int64(20), pipeline.GetProcessingStats().Outcomes["classify.openai_used"])
}
