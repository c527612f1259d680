package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake_server/core/domain"
	"intake_server/pkg/cache"
)

type stubCustomerRepository struct {
	profiles  map[string]*domain.CustomerProfile
	findCalls int
	saveErr   error
}

func (r *stubCustomerRepository) FindByEmail(_ context.Context, email string) (*domain.CustomerProfile, error) {
	r.findCalls++
	if p, ok := r.profiles[email]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *stubCustomerRepository) Save(_ context.Context, draft *domain.CustomerProfile) (*domain.CustomerProfile, error) {
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	saved := *draft
	saved.ID = int64(len(r.profiles) + 1)
	saved.Existing = true
	r.profiles[saved.Email] = &saved
	return &saved, nil
}

func newCachedAdapter(repo *stubCustomerRepository) *CachedCustomerAdapter {
	return NewCachedCustomerAdapter(repo, cache.NewTieredCache(nil, time.Minute), time.Hour)
}

func TestCachedCustomerAdapter_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := &stubCustomerRepository{profiles: map[string]*domain.CustomerProfile{
		"buyer@nordicfish.no": {ID: 3, Email: "buyer@nordicfish.no", CompanyName: "Nordicfish", Existing: true},
	}}
	adapter := newCachedAdapter(repo)

	first, err := adapter.FindByEmail(ctx, "buyer@nordicfish.no")
	require.NoError(t, err)
	second, err := adapter.FindByEmail(ctx, "buyer@nordicfish.no")
	require.NoError(t, err)

	require.NotNil(t, second)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(3), second.ID)
	assert.Equal(t, 1, repo.findCalls)
}

func TestCachedCustomerAdapter_NegativeCaching(t *testing.T) {
	ctx := context.Background()
	repo := &stubCustomerRepository{profiles: map[string]*domain.CustomerProfile{}}
	adapter := newCachedAdapter(repo)

	for i := 0; i < 3; i++ {
		got, err := adapter.FindByEmail(ctx, "new@sender.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, repo.findCalls)
}

func TestCachedCustomerAdapter_SaveWritesThrough(t *testing.T) {
	ctx := context.Background()
	repo := &stubCustomerRepository{profiles: map[string]*domain.CustomerProfile{}}
	adapter := newCachedAdapter(repo)

	missing, err := adapter.FindByEmail(ctx, "new@sender.com")
	require.NoError(t, err)
	require.Nil(t, missing)

	saved, err := adapter.Save(ctx, &domain.CustomerProfile{Email: "new@sender.com", ContactPerson: "Kari"})
	require.NoError(t, err)

	got, err := adapter.FindByEmail(ctx, "new@sender.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "Kari", got.ContactPerson)
	assert.Equal(t, 1, repo.findCalls)
}

func TestCachedCustomerAdapter_SaveError(t *testing.T) {
	repo := &stubCustomerRepository{profiles: map[string]*domain.CustomerProfile{}, saveErr: errors.New("unique violation")}
	adapter := newCachedAdapter(repo)

	_, err := adapter.Save(context.Background(), &domain.CustomerProfile{Email: "x@y.z"})

	assert.Error(t, err)
}

func TestCustomerRowMapping(t *testing.T) {
	phone := "+47 55 12 34 56"
	draft := &domain.CustomerProfile{
		Email:          " Buyer@NordicFish.no ",
		ContactPerson:  "Ola",
		CompanyName:    "Nordicfish",
		Phone:          &phone,
		Country:        "Norway",
		ResolvedFields: []string{domain.FieldContactPerson, domain.FieldPhone},
		ExtractedBy:    domain.TierPattern,
	}

	row := rowFromDomain(draft)
	assert.Equal(t, "buyer@nordicfish.no", row.Email)
	assert.True(t, row.Phone.Valid)
	assert.False(t, row.Address.Valid)

	back := row.toDomain()
	assert.True(t, back.Existing)
	require.NotNil(t, back.Phone)
	assert.Equal(t, phone, *back.Phone)
	assert.Nil(t, back.Address)
	assert.Equal(t, []string{domain.FieldContactPerson, domain.FieldPhone}, back.ResolvedFields)
	assert.Equal(t, domain.TierPattern, back.ExtractedBy)

	empty := rowFromDomain(&domain.CustomerProfile{Email: "a@b.c"})
	assert.NotNil(t, empty.ResolvedFields)
}
