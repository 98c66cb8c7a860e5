package services

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
)

const (
	DefaultAuditLimit = 10
	MaxAuditLimit     = 50
)

// recordAudit appends entries after the mutation committed and publishes the
// stored ones. A failed write is logged and never surfaces to the caller.
func (s *OccupancyService) recordAudit(ctx context.Context, entries ...audit.Entry) {
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.now()
		}
		stored, err := s.repo.InsertAuditEntry(ctx, e)
		if err != nil {
			logWithFields(ctx, logrus.ErrorLevel, "occupancy.audit.write_failed", logrus.Fields{
				"operation":   string(e.Operation),
				"target":      string(e.Target),
				"description": e.Description,
				"error":       err.Error(),
			})
			continue
		}
		if s.events != nil {
			s.events.Publish(stored)
		}
	}
}

type AuditQuery struct {
	Operations []audit.Operation
	Targets    []audit.Target
	// Limit of 0 selects the configured page size.
	Limit  int
	Offset int
}

// ListAudit returns one page of entries, newest first, with the total count
// of entries matching the filter.
func (s *OccupancyService) ListAudit(ctx context.Context, q AuditQuery) (audit.Page, error) {
	if q.Limit == 0 {
		q.Limit = s.auditLimit
	}
	if q.Limit < 1 || q.Limit > s.auditMax {
		return audit.Page{}, badRequest(CodeInvalidBody, "limit must be between 1 and %d", s.auditMax)
	}
	if q.Offset < 0 {
		return audit.Page{}, badRequest(CodeInvalidBody, "offset must not be negative")
	}

	filter := audit.Filter{Operations: q.Operations, Targets: q.Targets, Limit: q.Limit, Offset: q.Offset}
	entries, total, err := s.repo.ListAuditEntries(ctx, filter)
	if err != nil {
		return audit.Page{}, newServiceError(http.StatusInternalServerError, CodeInternal, "list audit entries", err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return audit.Page{Limit: q.Limit, Offset: q.Offset, Total: total, Entries: entries}, nil
}
