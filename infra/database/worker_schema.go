package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// customersSchema is idempotent; email is the natural key of a customer.
const customersSchema = `
CREATE TABLE IF NOT EXISTS customers (
	id              BIGSERIAL PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	contact_person  TEXT NOT NULL,
	company_name    TEXT NOT NULL,
	phone           TEXT,
	address         TEXT,
	country         TEXT NOT NULL,
	resolved_fields TEXT[] NOT NULL DEFAULT '{}',
	extracted_by    TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_customers_company_name ON customers (lower(company_name));
`

// EnsureSchema creates the tables used by the persistence adapters.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, customersSchema)
	return err
}
