package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/sequence"
)

// removal collects the occupancies deleted by one pipeline run, cascades
// included, in deletion order.
type removal struct {
	removed    []occupancy.Occupancy
	renumbered []sequence.Renumber
}

func (r *removal) merge(other removal) {
	r.removed = append(r.removed, other.removed...)
	r.renumbered = append(r.renumbered, other.renumbered...)
}

func (r removal) ids() []int64 {
	ids := make([]int64, 0, len(r.removed))
	for _, o := range r.removed {
		ids = append(ids, o.ID)
	}
	return ids
}

func (r removal) auditEntries() []audit.Entry {
	entries := make([]audit.Entry, 0, len(r.removed))
	for _, o := range r.removed {
		entries = append(entries, audit.NewEntry(audit.OperationRemoval, audit.TargetOccupancy,
			"occupancy %d removed: person %d on position %d from %s to %s",
			o.ID, o.PersonID, o.PositionID, formatDate(o.StartDate), formatDate(o.EndDate)))
	}
	return entries
}

// DeleteOccupancy removes an occupancy, renumbers its neighbours and cascades
// to substitute occupancies that lose their principal cover. It returns the
// ids of every removed occupancy.
func (s *OccupancyService) DeleteOccupancy(ctx context.Context, id int64) (_ []int64, err error) {
	ctx, span := startSpan(ctx, "occupancy.delete", attribute.Int64("occupancy.id", id))
	defer func() { endSpan(span, err) }()

	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (removal, error) {
		return s.removeOccupancy(txCtx, id, true, sequence.MaxConsecutiveTerms, map[int64]struct{}{})
	})
	if err != nil {
		logRejected(ctx, "occupancy.delete.rejected", err, logrus.Fields{"occupancy_id": id})
		return nil, err
	}

	s.recordAudit(ctx, res.auditEntries()...)
	logWithFields(ctx, logrus.InfoLevel, "occupancy.deleted", logrus.Fields{
		"occupancy_id": id,
		"removed":      len(res.removed),
	})
	return res.ids(), nil
}

// DeleteOccupancies removes a batch in one transaction. Any failure leaves
// every occupancy in place.
func (s *OccupancyService) DeleteOccupancies(ctx context.Context, ids []int64) (_ []int64, err error) {
	ctx, span := startSpan(ctx, "occupancy.delete_batch", attribute.Int("batch.size", len(ids)))
	defer func() { endSpan(span, err) }()

	if err := s.checkBatch(len(ids)); err != nil {
		return nil, err
	}

	res, err := inTx(ctx, s.repo, func(txCtx context.Context) (removal, error) {
		visited := make(map[int64]struct{}, len(ids))
		var all removal
		for _, id := range ids {
			if _, done := visited[id]; done {
				continue
			}
			r, err := s.removeOccupancy(txCtx, id, true, sequence.MaxConsecutiveTerms, visited)
			if err != nil {
				return removal{}, err
			}
			all.merge(r)
		}
		return all, nil
	})
	if err != nil {
		logRejected(ctx, "occupancy.delete_batch.rejected", err, logrus.Fields{"batch_size": len(ids)})
		return nil, err
	}

	s.recordAudit(ctx, res.auditEntries()...)
	return res.ids(), nil
}

// removeOccupancy deletes id inside txCtx. With cascade set, occupancies of
// the substitute position whose start falls inside the removed interval and
// is not covered by another principal occupancy are removed the same way.
// limit caps the run joined by the removal.
func (s *OccupancyService) removeOccupancy(txCtx context.Context, id int64, cascade bool, limit int, visited map[int64]struct{}) (removal, error) {
	if _, seen := visited[id]; seen {
		return removal{}, nil
	}
	visited[id] = struct{}{}

	target, err := s.repo.GetOccupancy(txCtx, id)
	if err != nil {
		return removal{}, notFoundOr(err, CodeOccupancyNotFound, "occupancy", id)
	}
	pos, err := s.lockPosition(txCtx, target.PositionID)
	if err != nil {
		return removal{}, err
	}
	existing, err := s.repo.ListOccupancies(txCtx, pos.ID)
	if err != nil {
		return removal{}, mapStoreError(err)
	}
	tl := sequence.NewTimeline(existing)

	out := removal{removed: []occupancy.Occupancy{target}}
	if pos.Exclusive {
		plan, err := tl.PlanRemoval(id, limit)
		if err != nil {
			var tle *sequence.TermLimitError
			if errors.As(err, &tle) {
				recordRuleViolation(occupancy.RuleTermLimit)
				return removal{}, ruleViolation(occupancy.RuleTermLimit, CodeTermLimit, &id,
					fmt.Sprintf("removing occupancy %d would give person %d term %d on position %d", id, tle.PersonID, tle.Term, pos.ID))
			}
			return removal{}, err
		}
		if err := s.applyRenumbering(txCtx, plan.Renumbered); err != nil {
			return removal{}, err
		}
		out.renumbered = plan.Renumbered
	}

	if err := s.repo.DeleteOccupancy(txCtx, id); err != nil {
		return removal{}, notFoundOr(err, CodeOccupancyNotFound, "occupancy", id)
	}

	if !cascade || pos.Substitute == nil {
		return out, nil
	}

	remaining := tl.Remove(id)
	dependants, err := s.repo.ListOccupancies(txCtx, *pos.Substitute)
	if err != nil {
		return removal{}, mapStoreError(err)
	}
	for _, d := range sequence.NewTimeline(dependants).Items() {
		if d.StartDate == nil || !target.Covers(*d.StartDate) {
			continue
		}
		if _, covered := remaining.Covering(*d.StartDate); covered {
			continue
		}
		cascaded, err := s.removeOccupancy(txCtx, d.ID, true, limit, visited)
		if err != nil {
			return removal{}, err
		}
		out.merge(cascaded)
	}
	return out, nil
}
