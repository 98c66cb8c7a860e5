package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/sequence"
)

type FinalizeInput struct {
	OccupancyID int64 `json:"occupancy_id" validate:"required,gt=0"`
	// Definitive closes the chain without promoting anyone.
	Definitive bool      `json:"definitive"`
	EndDate    time.Time `json:"end_date" validate:"required"`
	// SuccessionStart defaults to EndDate.
	SuccessionStart *time.Time `json:"succession_start"`
	SuccessionEnd   *time.Time `json:"succession_end"`
}

type FinalizeResult struct {
	PositionIDs         []int64 `json:"position_ids"`
	ClosedOccupancyIDs  []int64 `json:"closed_occupancy_ids"`
	CreatedOccupancyIDs []int64 `json:"created_occupancy_ids,omitempty"`
}

// FinalizeOccupancy ends an occupancy and the live occupancies of every
// position below it in the substitution chain. Unless Definitive is set, each
// closed occupant below is then promoted one position up.
func (s *OccupancyService) FinalizeOccupancy(ctx context.Context, in FinalizeInput) (_ FinalizeResult, err error) {
	ctx, span := startSpan(ctx, "occupancy.finalize",
		attribute.Int64("occupancy.id", in.OccupancyID),
		attribute.Bool("occupancy.definitive", in.Definitive),
	)
	defer func() { endSpan(span, err) }()

	if err := s.validateInput(in); err != nil {
		return FinalizeResult{}, err
	}
	end := occupancy.Date(in.EndDate)
	successionStart := end
	if in.SuccessionStart != nil {
		successionStart = occupancy.Date(*in.SuccessionStart)
	}
	successionEnd := occupancy.DatePtr(in.SuccessionEnd)
	if !in.Definitive {
		if successionStart.Before(end) {
			return FinalizeResult{}, badRequest(CodeInvalidRange, "succession start %s is before the end date %s",
				formatDate(&successionStart), formatDate(&end))
		}
		if !occupancy.ValidRange(&successionStart, successionEnd) {
			return FinalizeResult{}, badRequest(CodeInvalidRange, "succession start %s is after succession end %s",
				formatDate(&successionStart), formatDate(successionEnd))
		}
	}

	type out struct {
		result  FinalizeResult
		closed  []occupancy.Occupancy
		created []admission
	}
	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (out, error) {
		target, err := s.repo.GetOccupancy(txCtx, in.OccupancyID)
		if err != nil {
			return out{}, notFoundOr(err, CodeOccupancyNotFound, "occupancy", in.OccupancyID)
		}
		pos, err := s.lockPosition(txCtx, target.PositionID)
		if err != nil {
			return out{}, err
		}
		if !pos.Active {
			return out{}, badRequest(CodePositionInactive, "position %d is inactive", pos.ID)
		}
		if !in.Definitive && pos.Substitute == nil {
			return out{}, badRequest(CodeNoSubstitute, "position %d has no substitute to promote", pos.ID)
		}
		if !occupancy.ValidRange(target.StartDate, &end) {
			return out{}, badRequest(CodeInvalidRange, "end date %s is before the occupancy start %s",
				formatDate(&end), formatDate(target.StartDate))
		}

		nav, err := s.navigator(txCtx, pos.OrganizationID)
		if err != nil {
			return out{}, err
		}
		below := nav.Below(pos.ID)[1:]
		chainPositions, err := s.lockChain(txCtx, below)
		if err != nil {
			return out{}, err
		}
		chainPositions[pos.ID] = pos

		if err := s.repo.UpdateOccupancyEnd(txCtx, target.ID, &end); err != nil {
			return out{}, mapStoreError(err)
		}
		target.EndDate = &end

		var o out
		o.closed = append(o.closed, target)
		for _, pid := range below {
			items, err := s.repo.ListOccupancies(txCtx, pid)
			if err != nil {
				return out{}, mapStoreError(err)
			}
			live, ok := sequence.NewTimeline(items).LiveAt(end)
			if !ok {
				continue
			}
			if err := s.repo.UpdateOccupancyEnd(txCtx, live.ID, &end); err != nil {
				return out{}, mapStoreError(err)
			}
			live.EndDate = &end
			o.closed = append(o.closed, live)
		}
		for _, c := range o.closed {
			o.result.PositionIDs = append(o.result.PositionIDs, c.PositionID)
			o.result.ClosedOccupancyIDs = append(o.result.ClosedOccupancyIDs, c.ID)
		}
		if in.Definitive {
			return o, nil
		}

		if len(o.closed) < 2 {
			return out{}, badRequest(CodeNothingToPromote, "no occupancy below position %d to promote", pos.ID)
		}
		for i := 0; i+1 < len(o.closed); i++ {
			upper, lower := o.closed[i], o.closed[i+1]
			start := successionStart
			promoted, err := s.promote(txCtx, chainPositions[upper.PositionID], occupancy.Occupancy{
				PersonID:   lower.PersonID,
				PositionID: upper.PositionID,
				StartDate:  &start,
				EndDate:    successionEnd,
				Notes:      occupancy.AutomaticSubstitutionNote,
			})
			if err != nil {
				return out{}, err
			}
			o.created = append(o.created, promoted)
			o.result.CreatedOccupancyIDs = append(o.result.CreatedOccupancyIDs, promoted.occupancy.ID)
		}
		return o, nil
	})
	if err != nil {
		logRejected(ctx, "occupancy.finalize.rejected", err, logrus.Fields{"occupancy_id": in.OccupancyID, "definitive": in.Definitive})
		return FinalizeResult{}, err
	}

	recordFinalize(in.Definitive)
	entries := make([]audit.Entry, 0, len(res.closed)+len(res.created))
	for _, c := range res.closed {
		entries = append(entries, audit.NewEntry(audit.OperationFinalization, audit.TargetOccupancy,
			"occupancy %d of person %d on position %d finalized on %s", c.ID, c.PersonID, c.PositionID, formatDate(&end)))
	}
	for _, a := range res.created {
		c := a.occupancy
		entries = append(entries, audit.NewEntry(audit.OperationAddition, audit.TargetOccupancy,
			"occupancy %d added: person %d promoted to position %d from %s (%d renumbered)",
			c.ID, c.PersonID, c.PositionID, formatDate(c.StartDate), len(a.renumbered)))
	}
	s.recordAudit(ctx, entries...)
	logWithFields(ctx, logrus.InfoLevel, "occupancy.finalized", logrus.Fields{
		"occupancy_id": in.OccupancyID,
		"definitive":   in.Definitive,
		"closed":       len(res.closed),
		"created":      len(res.created),
	})
	return res.result, nil
}

// promote writes an automatic substitution on pos. On an exclusive position it
// must not overlap any remaining occupancy; it always starts a first term and
// the records after it are renumbered.
func (s *OccupancyService) promote(txCtx context.Context, pos position.Position, cand occupancy.Occupancy) (admission, error) {
	plan := sequence.Plan{Term: 1}
	if pos.Exclusive {
		existing, err := s.repo.ListOccupancies(txCtx, pos.ID)
		if err != nil {
			return admission{}, mapStoreError(err)
		}
		tl := sequence.NewTimeline(existing)
		if o, ok := tl.FirstOverlap(cand.StartDate, cand.EndDate); ok {
			id := o.ID
			return admission{}, ruleViolation(occupancy.RuleOccupied, CodeOverlap, &id,
				fmt.Sprintf("promotion to position %d from %s overlaps occupancy %d of person %d",
					pos.ID, formatDate(cand.StartDate), o.ID, o.PersonID))
		}
		plan, err = tl.PlanSuccession(cand.PersonID, cand.StartDate, sequence.MaxConsecutiveTerms)
		if err != nil {
			return admission{}, ruleViolation(occupancy.RuleTermLimit, CodeTermLimit, nil,
				fmt.Sprintf("promotion to position %d would exceed %d consecutive terms", pos.ID, sequence.MaxConsecutiveTerms))
		}
		if err := s.applyRenumbering(txCtx, plan.Renumbered); err != nil {
			return admission{}, err
		}
	}
	cand.TermNumber = plan.Term
	inserted, err := s.repo.InsertOccupancy(txCtx, cand)
	if err != nil {
		return admission{}, mapStoreError(err)
	}
	return admission{occupancy: inserted, renumbered: plan.Renumbered}, nil
}
