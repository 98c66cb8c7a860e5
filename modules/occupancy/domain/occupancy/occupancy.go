package occupancy

import "time"

// AutomaticSubstitutionNote tags occupancies created by succession.
const AutomaticSubstitutionNote = "Automatic substitution"

// Rule identifies an admission rule that can be reported back to callers.
type Rule int

const (
	RuleNone      Rule = 0
	RuleOccupied  Rule = 1
	RuleTermLimit Rule = 2
)

func (r Rule) String() string {
	switch r {
	case RuleOccupied:
		return "occupied"
	case RuleTermLimit:
		return "term_limit"
	default:
		return "none"
	}
}

// Occupancy is a time-bounded assignment of a person to a position.
// A nil StartDate is an open-ended past, a nil EndDate an ongoing tenure.
type Occupancy struct {
	ID         int64      `json:"id"`
	PersonID   int64      `json:"person_id"`
	PositionID int64      `json:"position_id"`
	DecreeID   *int64     `json:"decree_id,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	TermNumber int        `json:"term_number"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Overlaps reports whether o intersects [start, end). Nil bounds are unbounded.
// Touching intervals (o.EndDate == start) do not overlap.
func (o Occupancy) Overlaps(start, end *time.Time) bool {
	startsBeforeEnd := o.StartDate == nil || end == nil || o.StartDate.Before(*end)
	endsAfterStart := o.EndDate == nil || start == nil || o.EndDate.After(*start)
	return startsBeforeEnd && endsAfterStart
}

// Covers reports whether ref lies inside o, both bounds inclusive.
func (o Occupancy) Covers(ref time.Time) bool {
	if o.StartDate != nil && o.StartDate.After(ref) {
		return false
	}
	if o.EndDate != nil && o.EndDate.Before(ref) {
		return false
	}
	return true
}

// ValidRange reports whether start is not after end when both are set.
func ValidRange(start, end *time.Time) bool {
	return start == nil || end == nil || !start.After(*end)
}

// Date truncates t to a UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date for optional values.
func DatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Date(*t)
	return &d
}
