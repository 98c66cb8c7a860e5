package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/sequence"
)

type CreateOccupancyInput struct {
	PersonID   int64      `json:"person_id" validate:"required,gt=0"`
	PositionID int64      `json:"position_id" validate:"required,gt=0"`
	DecreeID   *int64     `json:"decree_id" validate:"omitempty,gt=0"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Notes      string     `json:"notes" validate:"max=2000"`
	// Policy overrides the service conflict policy for this call.
	Policy ConflictPolicy `json:"policy" validate:"omitempty,oneof=reject defer"`
}

func (in CreateOccupancyInput) candidate() occupancy.Occupancy {
	return occupancy.Occupancy{
		PersonID:   in.PersonID,
		PositionID: in.PositionID,
		DecreeID:   in.DecreeID,
		StartDate:  occupancy.DatePtr(in.StartDate),
		EndDate:    occupancy.DatePtr(in.EndDate),
		Notes:      in.Notes,
	}
}

func (s *OccupancyService) prepareCandidate(in CreateOccupancyInput) (occupancy.Occupancy, error) {
	if err := s.validateInput(in); err != nil {
		return occupancy.Occupancy{}, err
	}
	cand := in.candidate()
	if !occupancy.ValidRange(cand.StartDate, cand.EndDate) {
		return occupancy.Occupancy{}, badRequest(CodeInvalidRange, "start date %s is after end date %s", formatDate(cand.StartDate), formatDate(cand.EndDate))
	}
	return cand, nil
}

// admission is a committed insert and the neighbours renumbered for it.
type admission struct {
	occupancy  occupancy.Occupancy
	renumbered []sequence.Renumber
}

func (a admission) auditEntries() []audit.Entry {
	o := a.occupancy
	return []audit.Entry{
		audit.NewEntry(audit.OperationAddition, audit.TargetOccupancy,
			"occupancy %d added: person %d on position %d from %s to %s (term %d, %d renumbered)",
			o.ID, o.PersonID, o.PositionID, formatDate(o.StartDate), formatDate(o.EndDate), o.TermNumber, len(a.renumbered)),
	}
}

// CreateOccupancy admits a new occupancy. When the overlap or term-limit rule
// fails under the defer policy, a PendingApproval is recorded and the returned
// 409 ServiceError carries its id.
func (s *OccupancyService) CreateOccupancy(ctx context.Context, in CreateOccupancyInput) (_ occupancy.Occupancy, err error) {
	ctx, span := startSpan(ctx, "occupancy.create",
		attribute.Int64("occupancy.person_id", in.PersonID),
		attribute.Int64("occupancy.position_id", in.PositionID),
	)
	defer func() { endSpan(span, err) }()

	cand, err := s.prepareCandidate(in)
	if err != nil {
		return occupancy.Occupancy{}, err
	}

	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (admission, error) {
		return s.admit(txCtx, cand, occupancy.RuleNone)
	})
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) && svcErr.Rule != occupancy.RuleNone {
			recordRuleViolation(svcErr.Rule)
			if s.policyFor(in.Policy) == PolicyDefer {
				err = s.deferAdmission(ctx, cand, svcErr)
			}
		}
		outcome := "rejected"
		var deferred *ServiceError
		if errors.As(err, &deferred) && deferred.PendingApprovalID != nil {
			outcome = "deferred"
		}
		recordAdmission(outcome)
		logRejected(ctx, "occupancy.create.rejected", err, logrus.Fields{
			"person_id":   cand.PersonID,
			"position_id": cand.PositionID,
		})
		return occupancy.Occupancy{}, err
	}

	recordAdmission("admitted")
	s.recordAudit(ctx, res.auditEntries()...)
	logWithFields(ctx, logrus.InfoLevel, "occupancy.created", logrus.Fields{
		"occupancy_id": res.occupancy.ID,
		"person_id":    res.occupancy.PersonID,
		"position_id":  res.occupancy.PositionID,
		"term_number":  res.occupancy.TermNumber,
		"renumbered":   len(res.renumbered),
	})
	return res.occupancy, nil
}

// UpdateOccupancy replaces an occupancy: the old record is removed with its
// renumbering and the candidate is admitted, both in one transaction. On the
// same position the term cap applies to the combined result. Rule
// violations always reject; the defer policy does not apply. The replacement
// gets a new id.
func (s *OccupancyService) UpdateOccupancy(ctx context.Context, id int64, in CreateOccupancyInput) (_ occupancy.Occupancy, err error) {
	ctx, span := startSpan(ctx, "occupancy.update", attribute.Int64("occupancy.id", id))
	defer func() { endSpan(span, err) }()

	cand, err := s.prepareCandidate(in)
	if err != nil {
		return occupancy.Occupancy{}, err
	}

	type out struct {
		removed  removal
		admitted admission
	}
	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (out, error) {
		target, err := s.repo.GetOccupancy(txCtx, id)
		if err != nil {
			return out{}, notFoundOr(err, CodeOccupancyNotFound, "occupancy", id)
		}
		// on the same position the removal and the insert are judged together
		limit := sequence.MaxConsecutiveTerms
		if target.PositionID == cand.PositionID {
			limit = sequence.NoLimit
		}
		removed, err := s.removeOccupancy(txCtx, id, false, limit, map[int64]struct{}{})
		if err != nil {
			return out{}, err
		}
		admitted, err := s.admit(txCtx, cand, occupancy.RuleNone)
		if err != nil {
			return out{}, err
		}
		if limit == sequence.NoLimit {
			if err := s.checkReplacedTerms(txCtx, id, removed.renumbered, admitted.renumbered); err != nil {
				return out{}, err
			}
		}
		return out{removed: removed, admitted: admitted}, nil
	})
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) && svcErr.Rule != occupancy.RuleNone {
			recordRuleViolation(svcErr.Rule)
		}
		logRejected(ctx, "occupancy.update.rejected", err, logrus.Fields{"occupancy_id": id})
		return occupancy.Occupancy{}, err
	}

	s.recordAudit(ctx, append(res.removed.auditEntries(), res.admitted.auditEntries()...)...)
	logWithFields(ctx, logrus.InfoLevel, "occupancy.updated", logrus.Fields{
		"previous_id":  id,
		"occupancy_id": res.admitted.occupancy.ID,
	})
	return res.admitted.occupancy, nil
}

// checkReplacedTerms rejects a replacement whose net renumbering pushes an
// existing record past the term cap.
func (s *OccupancyService) checkReplacedTerms(txCtx context.Context, id int64, steps ...[]sequence.Renumber) error {
	for _, r := range sequence.Compose(steps...) {
		if r.To <= sequence.MaxConsecutiveTerms || r.To <= r.From {
			continue
		}
		o, err := s.repo.GetOccupancy(txCtx, r.OccupancyID)
		if err != nil {
			return mapStoreError(err)
		}
		return ruleViolation(occupancy.RuleTermLimit, CodeTermLimit, &id,
			fmt.Sprintf("replacing occupancy %d would give person %d term %d on position %d", id, o.PersonID, r.To, o.PositionID))
	}
	return nil
}

// admit runs the admission rules for cand inside txCtx and writes it with the
// renumbered neighbours. waive skips one of the overlap and term-limit rules.
func (s *OccupancyService) admit(txCtx context.Context, cand occupancy.Occupancy, waive occupancy.Rule) (admission, error) {
	pos, err := s.lockPosition(txCtx, cand.PositionID)
	if err != nil {
		return admission{}, err
	}
	if !pos.Active {
		return admission{}, badRequest(CodePositionInactive, "position %d is inactive", pos.ID)
	}
	if _, err := s.repo.GetPerson(txCtx, cand.PersonID); err != nil {
		return admission{}, notFoundOr(err, CodePersonNotFound, "person", cand.PersonID)
	}
	if cand.DecreeID != nil {
		if _, err := s.repo.GetDecree(txCtx, *cand.DecreeID); err != nil {
			return admission{}, notFoundOr(err, CodeDecreeNotFound, "decree", *cand.DecreeID)
		}
	}

	existing, err := s.repo.ListOccupancies(txCtx, pos.ID)
	if err != nil {
		return admission{}, mapStoreError(err)
	}
	verdict, plan := evaluate(pos, sequence.NewTimeline(existing), cand.PersonID, cand.StartDate, cand.EndDate, waive)
	if !verdict.Eligible {
		return admission{}, verdict.violation()
	}

	if pos.SubstitutesFor != nil {
		if cand.StartDate == nil {
			return admission{}, badRequest(CodeSubstituteStartRequired, "position %d is a substitute; start date is required", pos.ID)
		}
		principal, err := s.repo.ListOccupancies(txCtx, *pos.SubstitutesFor)
		if err != nil {
			return admission{}, mapStoreError(err)
		}
		if _, ok := sequence.NewTimeline(principal).Covering(*cand.StartDate); !ok {
			return admission{}, badRequest(CodePrincipalNotOccupied,
				"principal position %d has no occupancy on %s", *pos.SubstitutesFor, formatDate(cand.StartDate))
		}
	}

	if err := s.applyRenumbering(txCtx, plan.Renumbered); err != nil {
		return admission{}, err
	}
	cand.TermNumber = plan.Term
	inserted, err := s.repo.InsertOccupancy(txCtx, cand)
	if err != nil {
		return admission{}, mapStoreError(err)
	}
	return admission{occupancy: inserted, renumbered: plan.Renumbered}, nil
}

func (s *OccupancyService) applyRenumbering(txCtx context.Context, rs []sequence.Renumber) error {
	for _, r := range rs {
		if err := s.repo.UpdateOccupancyTerm(txCtx, r.OccupancyID, r.To); err != nil {
			return mapStoreError(err)
		}
	}
	return nil
}

// deferAdmission records a PendingApproval for a rejected candidate in its
// own transaction and returns the 409 error that reports it.
func (s *OccupancyService) deferAdmission(ctx context.Context, cand occupancy.Occupancy, violation *ServiceError) error {
	pending := pendingapproval.PendingApproval{
		Operation:   audit.OperationAddition,
		Target:      audit.TargetOccupancy,
		Description: violation.Message,
		Payload: pendingapproval.NewOccupancyPayload(pendingapproval.OccupancyPayload{
			PersonID:      cand.PersonID,
			PositionID:    cand.PositionID,
			DecreeID:      cand.DecreeID,
			StartDate:     cand.StartDate,
			EndDate:       cand.EndDate,
			Notes:         cand.Notes,
			ConflictingID: violation.ConflictingID,
		}),
		Rule:        violation.Rule,
		AffectedID:  violation.ConflictingID,
		Status:      pendingapproval.StatusPending,
		RequestedAt: s.now(),
	}
	saved, err := inTx(ctx, s.repo, func(txCtx context.Context) (pendingapproval.PendingApproval, error) {
		return s.repo.InsertPendingApproval(txCtx, pending)
	})
	if err != nil {
		return errors.Join(violation, err)
	}

	recordApprovalEvent("created")
	deferred := newServiceError(http.StatusConflict, violation.Code,
		fmt.Sprintf("%s; pending approval %d recorded", violation.Message, saved.ID), nil)
	deferred.Rule = violation.Rule
	deferred.ConflictingID = violation.ConflictingID
	deferred.PendingApprovalID = &saved.ID
	return deferred
}
