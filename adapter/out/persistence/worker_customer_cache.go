package persistence

import (
	"context"
	"time"

	"intake_server/core/domain"
	"intake_server/core/port/out"
	"intake_server/pkg/cache"
	"intake_server/pkg/logger"
)

// JSONCache is the cache surface the customer decorator needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var _ JSONCache = (*cache.TieredCache)(nil)

// CachedCustomerAdapter wraps a CustomerRepository with read-through caching.
type CachedCustomerAdapter struct {
	delegate    out.CustomerRepository
	cache       JSONCache
	ttl         time.Duration
	negativeTTL time.Duration
}

var _ out.CustomerRepository = (*CachedCustomerAdapter)(nil)

// NewCachedCustomerAdapter creates a new cached customer adapter.
func NewCachedCustomerAdapter(delegate out.CustomerRepository, c JSONCache, ttl time.Duration) *CachedCustomerAdapter {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedCustomerAdapter{
		delegate:    delegate,
		cache:       c,
		ttl:         ttl,
		negativeTTL: time.Minute,
	}
}

func customerCacheKey(email string) string {
	return "customer:" + email
}

// FindByEmail checks the cache first. Missing customers are cached briefly as an
// empty profile (ID 0) so repeated intake from a new sender does not hit the database.
func (a *CachedCustomerAdapter) FindByEmail(ctx context.Context, email string) (*domain.CustomerProfile, error) {
	key := customerCacheKey(email)

	var cached domain.CustomerProfile
	found, err := a.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.WithError(err).Debug("[CachedCustomerAdapter.FindByEmail] cache read failed for %s", email)
	}
	if err == nil && found {
		if cached.ID == 0 {
			return nil, nil
		}
		return &cached, nil
	}

	result, err := a.delegate.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if result != nil {
		_ = a.cache.SetJSON(ctx, key, result, a.ttl)
	} else {
		_ = a.cache.SetJSON(ctx, key, &domain.CustomerProfile{}, a.negativeTTL)
	}
	return result, nil
}

// Save persists through the delegate and writes the stored profile to the cache.
func (a *CachedCustomerAdapter) Save(ctx context.Context, draft *domain.CustomerProfile) (*domain.CustomerProfile, error) {
	saved, err := a.delegate.Save(ctx, draft)
	if err != nil {
		_ = a.cache.Delete(ctx, customerCacheKey(draft.Email))
		return nil, err
	}
	_ = a.cache.SetJSON(ctx, customerCacheKey(saved.Email), saved, a.ttl)
	return saved, nil
}
