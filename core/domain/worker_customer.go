package domain

import (
	"strings"
	"time"
)

// Sentinels used when a customer field cannot be resolved.
const (
	UnknownContact = "Unknown"
	UnknownCompany = "Unknown Company"
	UnknownCountry = "Unknown"

	// BasicContact is the contact name used by the basic fallback extraction.
	BasicContact = "Customer"
)

// Customer profile field names, used in ResolvedFields.
const (
	FieldContactPerson = "contact_person"
	FieldCompanyName   = "company_name"
	FieldPhone         = "phone"
	FieldAddress       = "address"
	FieldCountry       = "country"
)

// CustomerProfile identifies a customer by email address.
// Existing profiles come from the customer store; drafts are synthesized by extraction
// and persisted by the caller.
type CustomerProfile struct {
	ID             int64          `json:"id,omitempty"`
	Email          string         `json:"email"`
	ContactPerson  string         `json:"contact_person"`
	CompanyName    string         `json:"company_name"`
	Phone          *string        `json:"phone,omitempty"`
	Address        *string        `json:"address,omitempty"`
	Country        string         `json:"country"`
	ResolvedFields []string       `json:"resolved_fields,omitempty"`
	ExtractedBy    ExtractionTier `json:"extracted_by,omitempty"`
	Existing       bool           `json:"existing"`
	CreatedAt      time.Time      `json:"created_at,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty"`
}

// IsDraft reports whether the profile has not been persisted yet.
func (p *CustomerProfile) IsDraft() bool {
	return p != nil && !p.Existing
}

// HasContact reports whether the contact person was resolved.
func (p *CustomerProfile) HasContact() bool {
	return p.ContactPerson != "" && p.ContactPerson != UnknownContact
}

// HasCompany reports whether the company name was resolved.
func (p *CustomerProfile) HasCompany() bool {
	return p.CompanyName != "" && p.CompanyName != UnknownCompany
}

// HasCountry reports whether the country was resolved.
func (p *CustomerProfile) HasCountry() bool {
	return p.Country != "" && p.Country != UnknownCountry
}

// HasPhone reports whether a phone number is present.
func (p *CustomerProfile) HasPhone() bool {
	return p.Phone != nil && strings.TrimSpace(*p.Phone) != ""
}

// HasAddress reports whether an address is present.
func (p *CustomerProfile) HasAddress() bool {
	return p.Address != nil && strings.TrimSpace(*p.Address) != ""
}

// MarkResolved recomputes ResolvedFields from the current field values.
func (p *CustomerProfile) MarkResolved() {
	fields := make([]string, 0, 5)
	if p.HasContact() {
		fields = append(fields, FieldContactPerson)
	}
	if p.HasCompany() {
		fields = append(fields, FieldCompanyName)
	}
	if p.HasPhone() {
		fields = append(fields, FieldPhone)
	}
	if p.HasAddress() {
		fields = append(fields, FieldAddress)
	}
	if p.HasCountry() {
		fields = append(fields, FieldCountry)
	}
	p.ResolvedFields = fields
}
