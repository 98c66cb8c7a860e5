// Package pendingapproval models mutations deferred for human approval.
package pendingapproval

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(v), nil
	default:
		return "", fmt.Errorf("unknown approval status %q", v)
	}
}

var (
	ErrAlreadyDecided = errors.New("pending approval already decided")
	ErrInvalidPayload = errors.New("invalid pending approval payload")
)

// OccupancyPayload is the would-be occupancy kept for replay.
type OccupancyPayload struct {
	PersonID      int64      `json:"person_id"`
	PositionID    int64      `json:"position_id"`
	DecreeID      *int64     `json:"decree_id,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	ConflictingID *int64     `json:"conflicting_id,omitempty"`
}

// Payload is a tagged variant: Kind selects which member is set.
type Payload struct {
	Kind      audit.Target      `json:"kind"`
	Occupancy *OccupancyPayload `json:"occupancy,omitempty"`
}

func NewOccupancyPayload(p OccupancyPayload) Payload {
	return Payload{Kind: audit.TargetOccupancy, Occupancy: &p}
}

func (p Payload) Validate() error {
	switch p.Kind {
	case audit.TargetOccupancy:
		if p.Occupancy == nil {
			return fmt.Errorf("%w: occupancy payload missing", ErrInvalidPayload)
		}
		if p.Occupancy.PersonID <= 0 || p.Occupancy.PositionID <= 0 {
			return fmt.Errorf("%w: person_id and position_id are required", ErrInvalidPayload)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidPayload, p.Kind)
	}
}

// ParsePayload decodes and validates a stored payload.
func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

type PendingApproval struct {
	ID          int64           `json:"id"`
	Operation   audit.Operation `json:"operation"`
	Target      audit.Target    `json:"target"`
	Description string          `json:"description"`
	Payload     Payload         `json:"payload"`
	Rule        occupancy.Rule  `json:"rule"`
	AffectedID  *int64          `json:"affected_id,omitempty"`
	Status      Status          `json:"status"`
	RequestedAt time.Time       `json:"requested_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
}

// Decide moves a pending record to approved or rejected.
func (p PendingApproval) Decide(approve bool, at time.Time) (PendingApproval, error) {
	if p.Status != StatusPending {
		return p, ErrAlreadyDecided
	}
	if approve {
		p.Status = StatusApproved
	} else {
		p.Status = StatusRejected
	}
	p.DecidedAt = &at
	return p, nil
}
