// Package sequence orders the occupancies of one position and derives the
// consecutive-term numbering that inserts and removals must maintain.
package sequence

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
)

// MaxConsecutiveTerms is the highest term number a person may hold in a row.
const MaxConsecutiveTerms = 2

// NoLimit disables the term cap in PlanInsert.
const NoLimit = 0

var ErrNotInTimeline = errors.New("occupancy is not part of the timeline")

// TermLimitError reports the person whose run would exceed the cap.
type TermLimitError struct {
	PersonID int64
	Term     int
}

func (e *TermLimitError) Error() string {
	return fmt.Sprintf("person %d would reach term %d (max %d consecutive)", e.PersonID, e.Term, MaxConsecutiveTerms)
}

// Renumber is a term change for an existing occupancy.
type Renumber struct {
	OccupancyID int64
	From        int
	To          int
}

// Plan is the outcome of an insert or removal: the term for the new record
// (inserts only) and the neighbours whose term changes.
type Plan struct {
	Term       int
	Renumbered []Renumber
}

func (p *Plan) set(o occupancy.Occupancy, term int) {
	if o.TermNumber == term {
		return
	}
	p.Renumbered = append(p.Renumbered, Renumber{OccupancyID: o.ID, From: o.TermNumber, To: term})
}

// Timeline holds the occupancies of one position ordered by start date, with
// nil starts first, and by id on ties.
type Timeline struct {
	items []occupancy.Occupancy
}

func NewTimeline(items []occupancy.Occupancy) *Timeline {
	sorted := make([]occupancy.Occupancy, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i].StartDate, sorted[i].ID, sorted[j].StartDate, sorted[j].ID)
	})
	return &Timeline{items: sorted}
}

func (t *Timeline) Len() int { return len(t.items) }

// Items returns the ordered occupancies.
func (t *Timeline) Items() []occupancy.Occupancy {
	out := make([]occupancy.Occupancy, len(t.items))
	copy(out, t.items)
	return out
}

func compareStart(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}

func less(aStart *time.Time, aID int64, bStart *time.Time, bID int64) bool {
	if c := compareStart(aStart, bStart); c != 0 {
		return c < 0
	}
	return aID < bID
}

// Previous returns the occupancy with the latest start not after ref,
// excluding excludeID. Equal starts resolve to the larger id.
func (t *Timeline) Previous(ref *time.Time, excludeID int64) (occupancy.Occupancy, bool) {
	for i := len(t.items) - 1; i >= 0; i-- {
		o := t.items[i]
		if o.ID == excludeID {
			continue
		}
		if compareStart(o.StartDate, ref) <= 0 {
			return o, true
		}
	}
	return occupancy.Occupancy{}, false
}

// Next returns the occupancy with the earliest start not before ref,
// excluding excludeID. Equal starts resolve to the smaller id.
func (t *Timeline) Next(ref *time.Time, excludeID int64) (occupancy.Occupancy, bool) {
	for _, o := range t.items {
		if o.ID == excludeID {
			continue
		}
		if compareStart(o.StartDate, ref) >= 0 {
			return o, true
		}
	}
	return occupancy.Occupancy{}, false
}

// insertionIndex is where a new record starting at start lands. New records
// get the largest id, so they sort after existing records with the same start.
func (t *Timeline) insertionIndex(start *time.Time) int {
	return sort.Search(len(t.items), func(i int) bool {
		return less(start, math.MaxInt64, t.items[i].StartDate, t.items[i].ID)
	})
}

func (t *Timeline) indexOf(id int64) int {
	for i, o := range t.items {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// PlanInsert numbers a new occupancy of personID starting at start and
// renumbers the records after it. limit caps the resulting terms; pass
// NoLimit to skip the cap.
func (t *Timeline) PlanInsert(personID int64, start *time.Time, limit int) (Plan, error) {
	idx := t.insertionIndex(start)
	term := 1
	if idx > 0 && t.items[idx-1].PersonID == personID {
		term = t.items[idx-1].TermNumber + 1
	}
	return t.planAt(idx, personID, term, limit)
}

// PlanSuccession numbers an automatic substitution starting at start as a
// first term, whoever held the position before it, and renumbers the records
// after it the same way PlanInsert does.
func (t *Timeline) PlanSuccession(personID int64, start *time.Time, limit int) (Plan, error) {
	return t.planAt(t.insertionIndex(start), personID, 1, limit)
}

func (t *Timeline) planAt(idx int, personID int64, term, limit int) (Plan, error) {
	following := t.items[idx:]
	plan := Plan{Term: term}
	var prev occupancy.Occupancy
	hasPrev := idx > 0
	if hasPrev {
		prev = t.items[idx-1]
	}

	counter := plan.Term
	for _, o := range following {
		if o.PersonID != personID {
			break
		}
		counter++
		plan.set(o, counter)
	}
	if limit != NoLimit && counter > limit {
		return Plan{}, &TermLimitError{PersonID: personID, Term: counter}
	}

	// the new record splits a run of another person; that run restarts at 1
	if hasPrev && len(following) > 0 && prev.PersonID == following[0].PersonID && following[0].PersonID != personID {
		run := following[0].PersonID
		n := 0
		for _, o := range following {
			if o.PersonID != run {
				break
			}
			n++
			plan.set(o, n)
		}
	}
	return plan, nil
}

// PlanRemoval renumbers the records after the removed one when the removal
// joins or shortens a run of the same person. limit caps the joined run; pass
// NoLimit when the removal is half of a replacement judged by Compose.
func (t *Timeline) PlanRemoval(id int64, limit int) (Plan, error) {
	idx := t.indexOf(id)
	if idx < 0 {
		return Plan{}, ErrNotInTimeline
	}
	removed := t.items[idx]
	following := t.items[idx+1:]
	if len(following) == 0 {
		return Plan{}, nil
	}
	next := following[0]

	var (
		run     int64
		counter int
	)
	switch {
	case next.PersonID == removed.PersonID:
		run, counter = removed.PersonID, removed.TermNumber
	case idx > 0 && t.items[idx-1].PersonID == next.PersonID:
		prev := t.items[idx-1]
		run, counter = prev.PersonID, prev.TermNumber+1
	default:
		return Plan{}, nil
	}
	if counter < 1 {
		counter = 1
	}

	var plan Plan
	highest := 0
	for _, o := range following {
		if o.PersonID != run {
			break
		}
		plan.set(o, counter)
		highest = counter
		counter++
	}
	if limit != NoLimit && highest > limit {
		return Plan{}, &TermLimitError{PersonID: run, Term: highest}
	}
	return plan, nil
}

// Compose folds renumberings applied one after another to the same records
// into a single list from each record's original term to its final one.
// Records that end where they started are dropped.
func Compose(steps ...[]Renumber) []Renumber {
	var (
		order []int64
		from  = map[int64]int{}
		to    = map[int64]int{}
	)
	for _, step := range steps {
		for _, r := range step {
			if _, seen := from[r.OccupancyID]; !seen {
				order = append(order, r.OccupancyID)
				from[r.OccupancyID] = r.From
			}
			to[r.OccupancyID] = r.To
		}
	}
	var out []Renumber
	for _, id := range order {
		if from[id] != to[id] {
			out = append(out, Renumber{OccupancyID: id, From: from[id], To: to[id]})
		}
	}
	return out
}

// FirstOverlap returns the earliest occupancy intersecting [start, end).
func (t *Timeline) FirstOverlap(start, end *time.Time) (occupancy.Occupancy, bool) {
	for _, o := range t.items {
		if o.Overlaps(start, end) {
			return o, true
		}
	}
	return occupancy.Occupancy{}, false
}

// Covering returns the earliest occupancy containing ref.
func (t *Timeline) Covering(ref time.Time) (occupancy.Occupancy, bool) {
	for _, o := range t.items {
		if o.Covers(ref) {
			return o, true
		}
	}
	return occupancy.Occupancy{}, false
}

// LiveAt picks the occupancy to close at ref: among those containing ref,
// open-ended ones first, then the latest end, then the latest start.
func (t *Timeline) LiveAt(ref time.Time) (occupancy.Occupancy, bool) {
	var (
		best  occupancy.Occupancy
		found bool
	)
	for _, o := range t.items {
		if !o.Covers(ref) {
			continue
		}
		if !found || livelier(o, best) {
			best, found = o, true
		}
	}
	return best, found
}

func livelier(a, b occupancy.Occupancy) bool {
	switch {
	case a.EndDate == nil && b.EndDate != nil:
		return true
	case a.EndDate != nil && b.EndDate == nil:
		return false
	case a.EndDate != nil && !a.EndDate.Equal(*b.EndDate):
		return a.EndDate.After(*b.EndDate)
	}
	switch {
	case a.StartDate == nil && b.StartDate != nil:
		return true
	case a.StartDate != nil && b.StartDate == nil:
		return false
	case a.StartDate != nil && !a.StartDate.Equal(*b.StartDate):
		return a.StartDate.After(*b.StartDate)
	}
	return a.ID > b.ID
}

// Apply returns the timeline with the plan's renumbering applied.
func (t *Timeline) Apply(plan Plan) *Timeline {
	terms := make(map[int64]int, len(plan.Renumbered))
	for _, r := range plan.Renumbered {
		terms[r.OccupancyID] = r.To
	}
	items := t.Items()
	for i := range items {
		if to, ok := terms[items[i].ID]; ok {
			items[i].TermNumber = to
		}
	}
	return &Timeline{items: items}
}

// Insert returns the timeline with o added.
func (t *Timeline) Insert(o occupancy.Occupancy) *Timeline {
	return NewTimeline(append(t.Items(), o))
}

// Remove returns the timeline without id.
func (t *Timeline) Remove(id int64) *Timeline {
	items := make([]occupancy.Occupancy, 0, len(t.items))
	for _, o := range t.items {
		if o.ID != id {
			items = append(items, o)
		}
	}
	return &Timeline{items: items}
}
