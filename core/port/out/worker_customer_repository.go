package out

import (
	"context"

	"intake_server/core/domain"
)

// CustomerRepository is the outbound port for the customer store.
// Email is the unique key of a profile.
type CustomerRepository interface {
	// FindByEmail returns (nil, nil) when no profile exists for the address.
	FindByEmail(ctx context.Context, email string) (*domain.CustomerProfile, error)

	// Save persists a draft profile and returns it with identity and timestamps assigned.
	Save(ctx context.Context, draft *domain.CustomerProfile) (*domain.CustomerProfile, error)
}
