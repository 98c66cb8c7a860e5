package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/chain"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
)

type CreatePositionInput struct {
	Name           string `json:"name" yaml:"name" validate:"required,max=255"`
	OrganizationID int64  `json:"organization_id" yaml:"organization_id" validate:"required,gt=0"`
	// Exclusive defaults to true.
	Exclusive      *bool  `json:"exclusive" yaml:"exclusive"`
	SubstitutesFor *int64 `json:"substitutes_for" yaml:"substitutes_for" validate:"omitempty,gt=0"`
}

type UpdatePositionInput struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	OrganizationID *int64  `json:"organization_id" validate:"omitempty,gt=0"`
	// SubstitutesFor relinks the position; 0 unlinks it.
	SubstitutesFor *int64 `json:"substitutes_for" validate:"omitempty,gte=0"`
}

// lockPosition locks the principal of id, when there is one, and then id
// itself, so chain locks are always taken top-down.
func (s *OccupancyService) lockPosition(txCtx context.Context, id int64) (position.Position, error) {
	p, err := s.repo.GetPosition(txCtx, id)
	if err != nil {
		return position.Position{}, notFoundOr(err, CodePositionNotFound, "position", id)
	}
	if p.SubstitutesFor != nil {
		if _, err := s.repo.LockPosition(txCtx, *p.SubstitutesFor); err != nil && !isNotFound(err) {
			return position.Position{}, mapStoreError(err)
		}
	}
	p, err = s.repo.LockPosition(txCtx, id)
	if err != nil {
		return position.Position{}, notFoundOr(err, CodePositionNotFound, "position", id)
	}
	return p, nil
}

// lockChain locks ids in order and returns the rows by id.
func (s *OccupancyService) lockChain(txCtx context.Context, ids []int64) (map[int64]position.Position, error) {
	locked := make(map[int64]position.Position, len(ids))
	for _, id := range ids {
		p, err := s.repo.LockPosition(txCtx, id)
		if err != nil {
			return nil, notFoundOr(err, CodePositionNotFound, "position", id)
		}
		locked[id] = p
	}
	return locked, nil
}

func (s *OccupancyService) navigator(txCtx context.Context, organizationID int64) (*chain.Navigator, error) {
	links, err := s.repo.ListChainLinks(txCtx, organizationID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return chain.NewNavigator(links), nil
}

func (s *OccupancyService) GetPosition(ctx context.Context, id int64) (position.Position, error) {
	p, err := s.repo.GetPosition(ctx, id)
	if err != nil {
		return position.Position{}, notFoundOr(err, CodePositionNotFound, "position", id)
	}
	return p, nil
}

// ListPositions lists every position, or those of one organization.
func (s *OccupancyService) ListPositions(ctx context.Context, organizationID *int64) ([]position.Position, error) {
	items, err := s.repo.ListPositions(ctx, organizationID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if items == nil {
		items = []position.Position{}
	}
	return items, nil
}

func (s *OccupancyService) CreatePosition(ctx context.Context, in CreatePositionInput) (_ position.Position, err error) {
	ctx, span := startSpan(ctx, "position.create", attribute.Int64("position.organization_id", in.OrganizationID))
	defer func() { endSpan(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateInput(in); err != nil {
		return position.Position{}, err
	}
	exclusive := true
	if in.Exclusive != nil {
		exclusive = *in.Exclusive
	}
	if in.SubstitutesFor != nil && !exclusive {
		return position.Position{}, badRequest(CodeSubstituteNotExclusive, "a substitute position must be exclusive")
	}

	created, err := inTx(ctx, s.repo, func(txCtx context.Context) (position.Position, error) {
		if _, err := s.repo.GetOrganization(txCtx, in.OrganizationID); err != nil {
			return position.Position{}, notFoundOr(err, CodeOrganizationNotFound, "organization", in.OrganizationID)
		}
		if err := s.ensureNameFree(txCtx, in.OrganizationID, in.Name, 0); err != nil {
			return position.Position{}, err
		}
		p, err := s.repo.InsertPosition(txCtx, position.Position{
			Name:           in.Name,
			OrganizationID: in.OrganizationID,
			Active:         true,
			Exclusive:      exclusive,
		})
		if err != nil {
			return position.Position{}, mapStoreError(err)
		}
		if in.SubstitutesFor == nil {
			return p, nil
		}
		return s.linkSubstitute(txCtx, p, *in.SubstitutesFor)
	})
	if err != nil {
		logRejected(ctx, "position.create.rejected", err, logrus.Fields{"name": in.Name, "organization_id": in.OrganizationID})
		return position.Position{}, err
	}

	entries := []audit.Entry{
		audit.NewEntry(audit.OperationAddition, audit.TargetPosition,
			"position %d (%s) added to organization %d", created.ID, created.Name, created.OrganizationID),
	}
	if created.SubstitutesFor != nil {
		entries = append(entries, audit.NewEntry(audit.OperationAssociation, audit.TargetPosition,
			"position %d substitutes for position %d", created.ID, *created.SubstitutesFor))
	}
	s.recordAudit(ctx, entries...)
	logWithFields(ctx, logrus.InfoLevel, "position.created", logrus.Fields{"position_id": created.ID})
	return created, nil
}

// CreatePositions creates each item in its own transaction. Failed items do
// not undo the ones already committed.
func (s *OccupancyService) CreatePositions(ctx context.Context, batch []CreatePositionInput) ([]BatchItemResult, error) {
	if err := s.checkBatch(len(batch)); err != nil {
		return nil, err
	}
	results := make([]BatchItemResult, 0, len(batch))
	for i, in := range batch {
		p, err := s.CreatePosition(ctx, in)
		if err != nil {
			results = append(results, batchFailure(i, err))
			continue
		}
		created := p
		results = append(results, BatchItemResult{Index: i, Status: BatchSuccess, IDs: []int64{p.ID}, Position: &created})
	}
	return results, nil
}

func (s *OccupancyService) UpdatePosition(ctx context.Context, id int64, in UpdatePositionInput) (_ position.Position, err error) {
	ctx, span := startSpan(ctx, "position.update", attribute.Int64("position.id", id))
	defer func() { endSpan(span, err) }()

	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := s.validateInput(in); err != nil {
		return position.Position{}, err
	}

	type out struct {
		before position.Position
		after  position.Position
	}
	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (out, error) {
		if in.SubstitutesFor != nil && *in.SubstitutesFor > 0 {
			if _, err := s.repo.LockPosition(txCtx, *in.SubstitutesFor); err != nil && !isNotFound(err) {
				return out{}, mapStoreError(err)
			}
		}
		p, err := s.lockPosition(txCtx, id)
		if err != nil {
			return out{}, err
		}
		before := p

		if in.OrganizationID != nil && *in.OrganizationID != p.OrganizationID {
			relinking := in.SubstitutesFor != nil
			if p.Substitute != nil || (p.SubstitutesFor != nil && !relinking) {
				return out{}, badRequest(CodeChainOrganizationMismatch,
					"position %d is part of a substitution chain and cannot change organization", p.ID)
			}
			if _, err := s.repo.GetOrganization(txCtx, *in.OrganizationID); err != nil {
				return out{}, notFoundOr(err, CodeOrganizationNotFound, "organization", *in.OrganizationID)
			}
			p.OrganizationID = *in.OrganizationID
		}
		if in.Name != nil {
			p.Name = *in.Name
		}
		if p.Name != before.Name || p.OrganizationID != before.OrganizationID {
			if err := s.ensureNameFree(txCtx, p.OrganizationID, p.Name, p.ID); err != nil {
				return out{}, err
			}
		}

		if in.SubstitutesFor != nil {
			target := *in.SubstitutesFor
			current := p.SubstitutesFor
			if current == nil || *current != target {
				if p, err = s.unlinkFromPrincipal(txCtx, p); err != nil {
					return out{}, err
				}
				if target > 0 {
					if err := s.repo.UpdatePosition(txCtx, p); err != nil {
						return out{}, mapStoreError(err)
					}
					p, err = s.linkSubstitute(txCtx, p, target)
					if err != nil {
						return out{}, err
					}
					return out{before: before, after: p}, nil
				}
			}
		}
		if err := s.repo.UpdatePosition(txCtx, p); err != nil {
			return out{}, mapStoreError(err)
		}
		return out{before: before, after: p}, nil
	})
	if err != nil {
		logRejected(ctx, "position.update.rejected", err, logrus.Fields{"position_id": id})
		return position.Position{}, err
	}

	s.recordAudit(ctx, positionChangeEntries(res.before, res.after)...)
	return res.after, nil
}

func positionChangeEntries(before, after position.Position) []audit.Entry {
	var entries []audit.Entry
	if before.Name != after.Name || before.OrganizationID != after.OrganizationID {
		entries = append(entries, audit.NewEntry(audit.OperationAssociation, audit.TargetPosition,
			"position %d is now %s in organization %d (was %s in organization %d)",
			after.ID, after.Name, after.OrganizationID, before.Name, before.OrganizationID))
	}
	switch {
	case equalID(before.SubstitutesFor, after.SubstitutesFor):
	case after.SubstitutesFor == nil:
		entries = append(entries, audit.NewEntry(audit.OperationAssociation, audit.TargetPosition,
			"position %d no longer substitutes for position %d", after.ID, *before.SubstitutesFor))
	default:
		entries = append(entries, audit.NewEntry(audit.OperationAssociation, audit.TargetPosition,
			"position %d substitutes for position %d", after.ID, *after.SubstitutesFor))
	}
	return entries
}

func equalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *OccupancyService) ensureNameFree(txCtx context.Context, organizationID int64, name string, excludeID int64) error {
	taken, err := s.repo.PositionNameTaken(txCtx, organizationID, name, excludeID)
	if err != nil {
		return mapStoreError(err)
	}
	if taken {
		return newServiceError(http.StatusConflict, CodeDuplicateName, "a position named "+name+" already exists in the organization", nil)
	}
	return nil
}

// linkSubstitute makes the stored position p the substitute of principalID.
func (s *OccupancyService) linkSubstitute(txCtx context.Context, p position.Position, principalID int64) (position.Position, error) {
	if !p.Exclusive {
		return position.Position{}, badRequest(CodeSubstituteNotExclusive, "a substitute position must be exclusive")
	}
	principal, err := s.repo.LockPosition(txCtx, principalID)
	if err != nil {
		if isNotFound(err) {
			return position.Position{}, newServiceError(http.StatusNotFound, CodePrincipalNotFound, "principal position not found", err)
		}
		return position.Position{}, mapStoreError(err)
	}
	if principal.OrganizationID != p.OrganizationID {
		return position.Position{}, badRequest(CodePrincipalOtherOrganization,
			"principal position %d belongs to organization %d, not %d", principal.ID, principal.OrganizationID, p.OrganizationID)
	}
	nav, err := s.navigator(txCtx, p.OrganizationID)
	if err != nil {
		return position.Position{}, err
	}
	if nav.WouldCycle(p.ID, principal.ID) {
		return position.Position{}, badRequest(CodeChainCycle,
			"position %d cannot substitute for position %d: the substitution chain would form a cycle", p.ID, principal.ID)
	}
	if principal.Substitute != nil && *principal.Substitute != p.ID {
		return position.Position{}, badRequest(CodeSubstituteTaken,
			"position %d already has substitute %d", principal.ID, *principal.Substitute)
	}

	principal.Substitute = &p.ID
	if err := s.repo.UpdatePosition(txCtx, principal); err != nil {
		return position.Position{}, mapStoreError(err)
	}
	p.SubstitutesFor = &principal.ID
	if err := s.repo.UpdatePosition(txCtx, p); err != nil {
		return position.Position{}, mapStoreError(err)
	}
	return p, nil
}

// unlinkFromPrincipal clears both pointers between p and its principal. The
// caller persists p.
func (s *OccupancyService) unlinkFromPrincipal(txCtx context.Context, p position.Position) (position.Position, error) {
	if p.SubstitutesFor == nil {
		return p, nil
	}
	if err := s.detachFromAbove(txCtx, p); err != nil {
		return position.Position{}, err
	}
	p.SubstitutesFor = nil
	return p, nil
}

// detachFromAbove clears the substitute pointer of the position above p when
// it still points at p.
func (s *OccupancyService) detachFromAbove(txCtx context.Context, p position.Position) error {
	if p.SubstitutesFor == nil {
		return nil
	}
	above, err := s.repo.LockPosition(txCtx, *p.SubstitutesFor)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return mapStoreError(err)
	}
	if above.Substitute == nil || *above.Substitute != p.ID {
		return nil
	}
	above.Substitute = nil
	return mapStoreError(s.repo.UpdatePosition(txCtx, above))
}

// DeletePosition removes id and the chain below it. Soft deletion marks the
// chain inactive; hard deletion removes it bottom-up, refusing positions with
// occupancies unless force is set. The position above is unlinked either way.
// It returns the ids of the affected positions.
func (s *OccupancyService) DeletePosition(ctx context.Context, id int64, soft, force bool) (_ []int64, err error) {
	ctx, span := startSpan(ctx, "position.delete",
		attribute.Int64("position.id", id),
		attribute.Bool("position.soft", soft),
		attribute.Bool("position.force", force),
	)
	defer func() { endSpan(span, err) }()

	type out struct {
		affected []int64
		entries  []audit.Entry
	}
	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (out, error) {
		p, err := s.lockPosition(txCtx, id)
		if err != nil {
			return out{}, err
		}
		if soft && !p.Active {
			return out{}, badRequest(CodeAlreadyInactive, "position %d is already inactive", id)
		}
		nav, err := s.navigator(txCtx, p.OrganizationID)
		if err != nil {
			return out{}, err
		}
		affected := nav.Below(p.ID)
		locked, err := s.lockChain(txCtx, affected)
		if err != nil {
			return out{}, err
		}
		if err := s.detachFromAbove(txCtx, p); err != nil {
			return out{}, err
		}

		if soft {
			var entries []audit.Entry
			for _, pid := range affected {
				cur := locked[pid]
				if !cur.Active {
					continue
				}
				cur.Active = false
				if err := s.repo.UpdatePosition(txCtx, cur); err != nil {
					return out{}, mapStoreError(err)
				}
				entries = append(entries, audit.NewEntry(audit.OperationInactivation, audit.TargetPosition,
					"position %d (%s) inactivated", cur.ID, cur.Name))
			}
			return out{affected: affected, entries: entries}, nil
		}

		count, err := s.repo.CountOccupancies(txCtx, affected)
		if err != nil {
			return out{}, mapStoreError(err)
		}
		if count > 0 && !force {
			return out{}, badRequest(CodePositionHasOccupancies,
				"%d occupancies reference the affected positions; use force to remove them", count)
		}
		if count > 0 {
			if _, err := s.repo.DeleteOccupanciesByPositions(txCtx, affected); err != nil {
				return out{}, mapStoreError(err)
			}
		}
		for _, pid := range affected {
			cur := locked[pid]
			if cur.Substitute == nil && cur.SubstitutesFor == nil {
				continue
			}
			cur.Substitute, cur.SubstitutesFor = nil, nil
			if err := s.repo.UpdatePosition(txCtx, cur); err != nil {
				return out{}, mapStoreError(err)
			}
		}
		entries := make([]audit.Entry, 0, len(affected))
		for i := len(affected) - 1; i >= 0; i-- {
			cur := locked[affected[i]]
			if err := s.repo.DeletePosition(txCtx, cur.ID); err != nil {
				return out{}, notFoundOr(err, CodePositionNotFound, "position", cur.ID)
			}
			entries = append(entries, audit.NewEntry(audit.OperationRemoval, audit.TargetPosition,
				"position %d (%s) removed", cur.ID, cur.Name))
		}
		return out{affected: affected, entries: entries}, nil
	})
	if err != nil {
		logRejected(ctx, "position.delete.rejected", err, logrus.Fields{"position_id": id, "soft": soft, "force": force})
		return nil, err
	}

	s.recordAudit(ctx, res.entries...)
	logWithFields(ctx, logrus.InfoLevel, "position.deleted", logrus.Fields{
		"position_id": id,
		"soft":        soft,
		"affected":    len(res.affected),
	})
	return res.affected, nil
}

// DeletePositions deletes each id in its own transaction and reports a
// status per item.
func (s *OccupancyService) DeletePositions(ctx context.Context, ids []int64, soft, force bool) ([]BatchItemResult, error) {
	if err := s.checkBatch(len(ids)); err != nil {
		return nil, err
	}
	results := make([]BatchItemResult, 0, len(ids))
	for i, id := range ids {
		affected, err := s.DeletePosition(ctx, id, soft, force)
		if err != nil {
			results = append(results, batchFailure(i, err, id))
			continue
		}
		results = append(results, BatchItemResult{Index: i, Status: BatchSuccess, IDs: affected})
	}
	return results, nil
}

// ReactivatePosition reactivates id and every inactive position above it up
// to the first active one, which gets its substitute pointer back when the
// slot is still free. It returns the reactivated ids, id first.
func (s *OccupancyService) ReactivatePosition(ctx context.Context, id int64) (_ []int64, err error) {
	ctx, span := startSpan(ctx, "position.reactivate", attribute.Int64("position.id", id))
	defer func() { endSpan(span, err) }()

	type out struct {
		affected []int64
		entries  []audit.Entry
	}
	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (out, error) {
		p, err := s.repo.GetPosition(txCtx, id)
		if err != nil {
			return out{}, notFoundOr(err, CodePositionNotFound, "position", id)
		}
		nav, err := s.navigator(txCtx, p.OrganizationID)
		if err != nil {
			return out{}, err
		}
		path := nav.Above(p.ID)
		topDown := make([]int64, len(path))
		for i, pid := range path {
			topDown[len(path)-1-i] = pid
		}
		locked, err := s.lockChain(txCtx, topDown)
		if err != nil {
			return out{}, err
		}
		if locked[id].Active {
			return out{}, badRequest(CodeAlreadyActive, "position %d is already active", id)
		}

		var result out
		for i, pid := range path {
			cur := locked[pid]
			if cur.Active {
				if err := s.relink(txCtx, locked[path[i-1]], cur); err != nil {
					return out{}, err
				}
				break
			}
			cur.Active = true
			if err := s.repo.UpdatePosition(txCtx, cur); err != nil {
				return out{}, mapStoreError(err)
			}
			locked[pid] = cur
			result.affected = append(result.affected, pid)
			result.entries = append(result.entries, audit.NewEntry(audit.OperationReactivation, audit.TargetPosition,
				"position %d (%s) reactivated", cur.ID, cur.Name))
		}
		return result, nil
	})
	if err != nil {
		logRejected(ctx, "position.reactivate.rejected", err, logrus.Fields{"position_id": id})
		return nil, err
	}

	s.recordAudit(ctx, res.entries...)
	return res.affected, nil
}

// relink restores above.Substitute = child after a reactivation, or drops the
// child's stale pointer when another position took the slot meanwhile.
func (s *OccupancyService) relink(txCtx context.Context, child, above position.Position) error {
	switch {
	case above.Substitute == nil:
		above.Substitute = &child.ID
		return mapStoreError(s.repo.UpdatePosition(txCtx, above))
	case *above.Substitute != child.ID:
		child.SubstitutesFor = nil
		return mapStoreError(s.repo.UpdatePosition(txCtx, child))
	default:
		return nil
	}
}

func (s *OccupancyService) ReactivatePositions(ctx context.Context, ids []int64) ([]BatchItemResult, error) {
	if err := s.checkBatch(len(ids)); err != nil {
		return nil, err
	}
	results := make([]BatchItemResult, 0, len(ids))
	for i, id := range ids {
		affected, err := s.ReactivatePosition(ctx, id)
		if err != nil {
			results = append(results, batchFailure(i, err, id))
			continue
		}
		results = append(results, BatchItemResult{Index: i, Status: BatchSuccess, IDs: affected})
	}
	return results, nil
}

// ListOccupancies returns the timeline of one position in start order.
func (s *OccupancyService) ListOccupancies(ctx context.Context, positionID int64) ([]occupancy.Occupancy, error) {
	if _, err := s.repo.GetPosition(ctx, positionID); err != nil {
		return nil, notFoundOr(err, CodePositionNotFound, "position", positionID)
	}
	items, err := s.repo.ListOccupancies(ctx, positionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if items == nil {
		items = []occupancy.Occupancy{}
	}
	return items, nil
}

func (s *OccupancyService) GetOccupancy(ctx context.Context, id int64) (occupancy.Occupancy, error) {
	o, err := s.repo.GetOccupancy(ctx, id)
	if err != nil {
		return occupancy.Occupancy{}, notFoundOr(err, CodeOccupancyNotFound, "occupancy", id)
	}
	return o, nil
}
