// Package registry holds the reference entities that occupancies point at.
package registry

import "time"

type Person struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Decree is the official act that backs an occupancy.
type Decree struct {
	ID        int64      `json:"id"`
	Number    string     `json:"number"`
	IssuedOn  *time.Time `json:"issued_on,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

// Kind names a registry table.
type Kind string

const (
	KindPerson       Kind = "person"
	KindOrganization Kind = "organization"
	KindDecree       Kind = "decree"
)
