// Package audit holds the append-only history of committed mutations.
package audit

import (
	"fmt"
	"strings"
	"time"
)

type Operation string

const (
	OperationAddition     Operation = "addition"
	OperationRemoval      Operation = "removal"
	OperationInactivation Operation = "inactivation"
	OperationReactivation Operation = "reactivation"
	OperationAssociation  Operation = "association"
	OperationFinalization Operation = "finalization"
)

var operations = []Operation{
	OperationAddition,
	OperationRemoval,
	OperationInactivation,
	OperationReactivation,
	OperationAssociation,
	OperationFinalization,
}

type Target string

const (
	TargetPerson       Target = "person"
	TargetOrganization Target = "organization"
	TargetPosition     Target = "position"
	TargetDecree       Target = "decree"
	TargetOccupancy    Target = "occupancy"
)

var targets = []Target{
	TargetPerson,
	TargetOrganization,
	TargetPosition,
	TargetDecree,
	TargetOccupancy,
}

func ParseOperation(v string) (Operation, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, op := range operations {
		if string(op) == v {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown audit operation %q", v)
}

func ParseTarget(v string) (Target, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, t := range targets {
		if string(t) == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown audit target %q", v)
}

type Entry struct {
	ID          int64     `json:"id"`
	Operation   Operation `json:"operation"`
	Target      Target    `json:"target"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewEntry(op Operation, target Target, format string, args ...any) Entry {
	return Entry{
		Operation:   op,
		Target:      target,
		Description: fmt.Sprintf(format, args...),
	}
}

// Filter selects a page of entries. Empty slices match everything.
type Filter struct {
	Operations []Operation
	Targets    []Target
	Limit      int
	Offset     int
}

func (f Filter) Matches(e Entry) bool {
	return matchAny(f.Operations, e.Operation) && matchAny(f.Targets, e.Target)
}

func matchAny[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type Page struct {
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	Total   int     `json:"total"`
	Entries []Entry `json:"entries"`
}
