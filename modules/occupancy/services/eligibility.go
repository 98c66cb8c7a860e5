package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/sequence"
)

// Verdict answers whether a person can take a position over a period.
type Verdict struct {
	Eligible               bool           `json:"eligible"`
	Rule                   occupancy.Rule `json:"rule"`
	Reason                 string         `json:"reason"`
	ConflictingOccupancyID *int64         `json:"conflicting_occupancy_id,omitempty"`
}

func (v Verdict) violation() *ServiceError {
	code := CodeOverlap
	if v.Rule == occupancy.RuleTermLimit {
		code = CodeTermLimit
	}
	return ruleViolation(v.Rule, code, v.ConflictingOccupancyID, v.Reason)
}

type EligibilityInput struct {
	PersonID   int64      `json:"person_id" validate:"required,gt=0"`
	PositionID int64      `json:"position_id" validate:"required,gt=0"`
	StartDate  *time.Time `json:"start_date" validate:"required"`
	EndDate    *time.Time `json:"end_date"`
}

// CheckEligibility evaluates the overlap and term-limit rules without
// writing anything.
func (s *OccupancyService) CheckEligibility(ctx context.Context, in EligibilityInput) (_ Verdict, err error) {
	ctx, span := startSpan(ctx, "occupancy.check_eligibility",
		attribute.Int64("occupancy.person_id", in.PersonID),
		attribute.Int64("occupancy.position_id", in.PositionID),
	)
	defer func() { endSpan(span, err) }()

	if err := s.validateInput(in); err != nil {
		return Verdict{}, err
	}
	start, end := occupancy.DatePtr(in.StartDate), occupancy.DatePtr(in.EndDate)
	if !occupancy.ValidRange(start, end) {
		return Verdict{}, badRequest(CodeInvalidRange, "start date %s is after end date %s", formatDate(start), formatDate(end))
	}

	pos, err := s.repo.GetPosition(ctx, in.PositionID)
	if err != nil {
		return Verdict{}, notFoundOr(err, CodePositionNotFound, "position", in.PositionID)
	}
	if _, err := s.repo.GetPerson(ctx, in.PersonID); err != nil {
		return Verdict{}, notFoundOr(err, CodePersonNotFound, "person", in.PersonID)
	}
	existing, err := s.repo.ListOccupancies(ctx, pos.ID)
	if err != nil {
		return Verdict{}, mapStoreError(err)
	}

	verdict, _ := evaluate(pos, sequence.NewTimeline(existing), in.PersonID, start, end, occupancy.RuleNone)
	return verdict, nil
}

// evaluate applies the overlap and term-limit rules to a would-be occupancy
// and, when both pass, returns the numbering plan for it. waive skips one rule.
func evaluate(pos position.Position, tl *sequence.Timeline, personID int64, start, end *time.Time, waive occupancy.Rule) (Verdict, sequence.Plan) {
	if !pos.Exclusive {
		return Verdict{Eligible: true, Reason: "position is not exclusive"}, sequence.Plan{Term: 1}
	}

	if waive != occupancy.RuleOccupied {
		if o, ok := tl.FirstOverlap(start, end); ok {
			id := o.ID
			return Verdict{
				Rule:                   occupancy.RuleOccupied,
				Reason:                 fmt.Sprintf("position %d is held by person %d from %s to %s (occupancy %d)", pos.ID, o.PersonID, formatDate(o.StartDate), formatDate(o.EndDate), o.ID),
				ConflictingOccupancyID: &id,
			}, sequence.Plan{}
		}
	}

	limit := sequence.MaxConsecutiveTerms
	if waive == occupancy.RuleTermLimit {
		limit = sequence.NoLimit
	}
	plan, err := tl.PlanInsert(personID, start, limit)
	if err != nil {
		return Verdict{
			Rule:                   occupancy.RuleTermLimit,
			Reason:                 fmt.Sprintf("person %d cannot hold position %d for more than %d consecutive terms", personID, pos.ID, sequence.MaxConsecutiveTerms),
			ConflictingOccupancyID: sameHolderNeighbour(tl, personID, start),
		}, sequence.Plan{}
	}
	return Verdict{Eligible: true, Reason: fmt.Sprintf("eligible as term %d", plan.Term)}, plan
}

// sameHolderNeighbour returns the adjacent occupancy of personID around start.
func sameHolderNeighbour(tl *sequence.Timeline, personID int64, start *time.Time) *int64 {
	if prev, ok := tl.Previous(start, 0); ok && prev.PersonID == personID {
		return &prev.ID
	}
	if next, ok := tl.Next(start, 0); ok && next.PersonID == personID {
		return &next.ID
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format(time.DateOnly)
}
