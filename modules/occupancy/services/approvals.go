package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
)

type ApprovalResult struct {
	Approval  pendingapproval.PendingApproval `json:"approval"`
	Occupancy *occupancy.Occupancy            `json:"occupancy,omitempty"`
}

// ApprovePending decides a pending approval. Approving replays the recorded
// admission with the violated rule waived; every other rule still applies and
// a failure leaves the record pending. Rejecting only records the decision.
func (s *OccupancyService) ApprovePending(ctx context.Context, id int64, approve bool) (_ ApprovalResult, err error) {
	ctx, span := startSpan(ctx, "approval.decide",
		attribute.Int64("approval.id", id),
		attribute.Bool("approval.approve", approve),
	)
	defer func() { endSpan(span, err) }()

	type out struct {
		approval pendingapproval.PendingApproval
		admitted *admission
	}
	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (out, error) {
		pending, err := s.repo.LockPendingApproval(txCtx, id)
		if err != nil {
			return out{}, notFoundOr(err, CodeApprovalNotFound, "pending approval", id)
		}
		decided, err := pending.Decide(approve, s.now())
		if err != nil {
			if errors.Is(err, pendingapproval.ErrAlreadyDecided) {
				return out{}, newServiceError(http.StatusConflict, CodeApprovalAlreadyDecided,
					"pending approval has already been "+string(pending.Status), err)
			}
			return out{}, err
		}

		var result out
		if approve {
			if err := decided.Payload.Validate(); err != nil {
				return out{}, newServiceError(http.StatusUnprocessableEntity, CodeInvalidBody, "stored payload cannot be replayed", err)
			}
			p := decided.Payload.Occupancy
			admitted, err := s.admit(txCtx, occupancy.Occupancy{
				PersonID:   p.PersonID,
				PositionID: p.PositionID,
				DecreeID:   p.DecreeID,
				StartDate:  occupancy.DatePtr(p.StartDate),
				EndDate:    occupancy.DatePtr(p.EndDate),
				Notes:      p.Notes,
			}, decided.Rule)
			if err != nil {
				return out{}, err
			}
			result.admitted = &admitted
		}
		if err := s.repo.UpdatePendingApproval(txCtx, decided); err != nil {
			return out{}, mapStoreError(err)
		}
		result.approval = decided
		return result, nil
	})
	if err != nil {
		logRejected(ctx, "approval.decide.rejected", err, logrus.Fields{"approval_id": id, "approve": approve})
		return ApprovalResult{}, err
	}

	fields := logrus.Fields{"approval_id": id, "status": string(res.approval.Status)}
	result := ApprovalResult{Approval: res.approval}
	if res.admitted != nil {
		recordApprovalEvent("approved")
		recordAdmission("admitted")
		s.recordAudit(ctx, res.admitted.auditEntries()...)
		created := res.admitted.occupancy
		result.Occupancy = &created
		fields["occupancy_id"] = created.ID
	} else {
		recordApprovalEvent("rejected")
	}
	logWithFields(ctx, logrus.InfoLevel, "approval.decided", fields)
	return result, nil
}

// ListPendingApprovals lists approvals, optionally only those in one status.
func (s *OccupancyService) ListPendingApprovals(ctx context.Context, status *pendingapproval.Status) ([]pendingapproval.PendingApproval, error) {
	items, err := s.repo.ListPendingApprovals(ctx, status)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if items == nil {
		items = []pendingapproval.PendingApproval{}
	}
	return items, nil
}
