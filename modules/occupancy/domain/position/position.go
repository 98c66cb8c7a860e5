package position

import "time"

// Position is an official role inside an organization. SubstitutesFor and
// Substitute are the two ends of the substitution chain links.
type Position struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	OrganizationID int64     `json:"organization_id"`
	Active         bool      `json:"active"`
	Exclusive      bool      `json:"exclusive"`
	SubstitutesFor *int64    `json:"substitutes_for,omitempty"`
	Substitute     *int64    `json:"substitute,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p Position) IsSubstitute() bool { return p.SubstitutesFor != nil }

func (p Position) HasSubstitute() bool { return p.Substitute != nil }
