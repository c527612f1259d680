// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"intake_server/core/domain"
	"intake_server/core/port/out"
)

// CustomerAdapter implements out.CustomerRepository using PostgreSQL.
type CustomerAdapter struct {
	db *sqlx.DB
}

var _ out.CustomerRepository = (*CustomerAdapter)(nil)

// NewCustomerAdapter creates a new CustomerAdapter.
func NewCustomerAdapter(db *sqlx.DB) *CustomerAdapter {
	return &CustomerAdapter{db: db}
}

// customerRow represents the database row for customers.
type customerRow struct {
	ID             int64          `db:"id"`
	Email          string         `db:"email"`
	ContactPerson  string         `db:"contact_person"`
	CompanyName    string         `db:"company_name"`
	Phone          sql.NullString `db:"phone"`
	Address        sql.NullString `db:"address"`
	Country        string         `db:"country"`
	ResolvedFields pq.StringArray `db:"resolved_fields"`
	ExtractedBy    string         `db:"extracted_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r *customerRow) toDomain() *domain.CustomerProfile {
	p := &domain.CustomerProfile{
		ID:             r.ID,
		Email:          r.Email,
		ContactPerson:  r.ContactPerson,
		CompanyName:    r.CompanyName,
		Country:        r.Country,
		ResolvedFields: []string(r.ResolvedFields),
		ExtractedBy:    domain.ExtractionTier(r.ExtractedBy),
		Existing:       true,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Phone.Valid {
		p.Phone = &r.Phone.String
	}
	if r.Address.Valid {
		p.Address = &r.Address.String
	}
	return p
}

func rowFromDomain(p *domain.CustomerProfile) *customerRow {
	row := &customerRow{
		Email:          strings.ToLower(strings.TrimSpace(p.Email)),
		ContactPerson:  p.ContactPerson,
		CompanyName:    p.CompanyName,
		Country:        p.Country,
		ResolvedFields: pq.StringArray(p.ResolvedFields),
		ExtractedBy:    string(p.ExtractedBy),
	}
	if row.ResolvedFields == nil {
		row.ResolvedFields = pq.StringArray{}
	}
	if p.Phone != nil {
		row.Phone = sql.NullString{String: *p.Phone, Valid: true}
	}
	if p.Address != nil {
		row.Address = sql.NullString{String: *p.Address, Valid: true}
	}
	return row
}

const customerColumns = `id, email, contact_person, company_name, phone, address, country,
	resolved_fields, extracted_by, created_at, updated_at`

// FindByEmail returns the stored customer, or nil when none exists.
func (a *CustomerAdapter) FindByEmail(ctx context.Context, email string) (*domain.CustomerProfile, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`

	var row customerRow
	if err := a.db.GetContext(ctx, &row, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	return row.toDomain(), nil
}

// Save inserts a draft. If the email already exists the stored row is returned unchanged,
// so concurrent intake of the same sender converges on one customer.
func (a *CustomerAdapter) Save(ctx context.Context, draft *domain.CustomerProfile) (*domain.CustomerProfile, error) {
	if draft == nil || strings.TrimSpace(draft.Email) == "" {
		return nil, ErrInvalidInput
	}

	query := `
		INSERT INTO customers (
			email, contact_person, company_name, phone, address, country,
			resolved_fields, extracted_by, created_at, updated_at
		) VALUES (
			:email, :contact_person, :company_name, :phone, :address, :country,
			:resolved_fields, :extracted_by, NOW(), NOW()
		)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING ` + customerColumns

	rows, err := a.db.NamedQueryContext(ctx, query, rowFromDomain(draft))
	if err != nil {
		return nil, fmt.Errorf("save customer: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("save customer: %w", err)
		}
		return nil, fmt.Errorf("save customer: %w", ErrNotFound)
	}

	var saved customerRow
	if err := rows.StructScan(&saved); err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return saved.toDomain(), nil
}
