package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/registry"
)

type CreateNamedInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

type CreateDecreeInput struct {
	Number   string     `json:"number" validate:"required,max=64"`
	IssuedOn *time.Time `json:"issued_on"`
	Notes    string     `json:"notes" validate:"max=2000"`
}

var registryTargets = map[registry.Kind]audit.Target{
	registry.KindPerson:       audit.TargetPerson,
	registry.KindOrganization: audit.TargetOrganization,
	registry.KindDecree:       audit.TargetDecree,
}

var registryNotFoundCodes = map[registry.Kind]string{
	registry.KindPerson:       CodePersonNotFound,
	registry.KindOrganization: CodeOrganizationNotFound,
	registry.KindDecree:       CodeDecreeNotFound,
}

func (s *OccupancyService) CreatePerson(ctx context.Context, in CreateNamedInput) (registry.Person, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateInput(in); err != nil {
		return registry.Person{}, err
	}
	p, err := inTx(ctx, s.repo, func(txCtx context.Context) (registry.Person, error) {
		return s.repo.InsertPerson(txCtx, registry.Person{Name: in.Name, Active: true, CreatedAt: s.now()})
	})
	if err != nil {
		return registry.Person{}, err
	}
	s.recordAudit(ctx, audit.NewEntry(audit.OperationAddition, audit.TargetPerson, "person %d (%s) added", p.ID, p.Name))
	return p, nil
}

func (s *OccupancyService) CreateOrganization(ctx context.Context, in CreateNamedInput) (registry.Organization, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateInput(in); err != nil {
		return registry.Organization{}, err
	}
	o, err := inTx(ctx, s.repo, func(txCtx context.Context) (registry.Organization, error) {
		return s.repo.InsertOrganization(txCtx, registry.Organization{Name: in.Name, Active: true, CreatedAt: s.now()})
	})
	if err != nil {
		return registry.Organization{}, err
	}
	s.recordAudit(ctx, audit.NewEntry(audit.OperationAddition, audit.TargetOrganization, "organization %d (%s) added", o.ID, o.Name))
	return o, nil
}

func (s *OccupancyService) CreateDecree(ctx context.Context, in CreateDecreeInput) (registry.Decree, error) {
	in.Number = strings.TrimSpace(in.Number)
	if err := s.validateInput(in); err != nil {
		return registry.Decree{}, err
	}
	d, err := inTx(ctx, s.repo, func(txCtx context.Context) (registry.Decree, error) {
		return s.repo.InsertDecree(txCtx, registry.Decree{
			Number:    in.Number,
			IssuedOn:  occupancy.DatePtr(in.IssuedOn),
			Notes:     in.Notes,
			Active:    true,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return registry.Decree{}, err
	}
	s.recordAudit(ctx, audit.NewEntry(audit.OperationAddition, audit.TargetDecree, "decree %d (%s) added", d.ID, d.Number))
	return d, nil
}

func (s *OccupancyService) ListPersons(ctx context.Context) ([]registry.Person, error) {
	items, err := s.repo.ListPersons(ctx)
	return orEmpty(items), mapStoreError(err)
}

func (s *OccupancyService) ListOrganizations(ctx context.Context) ([]registry.Organization, error) {
	items, err := s.repo.ListOrganizations(ctx)
	return orEmpty(items), mapStoreError(err)
}

func (s *OccupancyService) ListDecrees(ctx context.Context) ([]registry.Decree, error) {
	items, err := s.repo.ListDecrees(ctx)
	return orEmpty(items), mapStoreError(err)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *OccupancyService) registryActive(txCtx context.Context, kind registry.Kind, id int64) (bool, error) {
	var (
		active bool
		err    error
	)
	switch kind {
	case registry.KindPerson:
		var p registry.Person
		p, err = s.repo.GetPerson(txCtx, id)
		active = p.Active
	case registry.KindOrganization:
		var o registry.Organization
		o, err = s.repo.GetOrganization(txCtx, id)
		active = o.Active
	case registry.KindDecree:
		var d registry.Decree
		d, err = s.repo.GetDecree(txCtx, id)
		active = d.Active
	default:
		return false, badRequest(CodeInvalidBody, "unknown registry kind %q", kind)
	}
	if err != nil {
		return false, notFoundOr(err, registryNotFoundCodes[kind], string(kind), id)
	}
	return active, nil
}

// RemoveRegistryEntry deactivates (soft) or deletes a person, organization or
// decree. Hard deletion is refused while positions or occupancies reference it.
func (s *OccupancyService) RemoveRegistryEntry(ctx context.Context, kind registry.Kind, id int64, soft bool) error {
	_, err := inTx(ctx, s.repo, func(txCtx context.Context) (struct{}, error) {
		active, err := s.registryActive(txCtx, kind, id)
		if err != nil {
			return struct{}{}, err
		}
		if soft {
			if !active {
				return struct{}{}, badRequest(CodeAlreadyInactive, "%s %d is already inactive", kind, id)
			}
			return struct{}{}, mapStoreError(s.repo.SetRegistryActive(txCtx, kind, id, false))
		}
		inUse, err := s.repo.RegistryEntryInUse(txCtx, kind, id)
		if err != nil {
			return struct{}{}, mapStoreError(err)
		}
		if inUse {
			return struct{}{}, newServiceError(http.StatusConflict, CodeInUse, string(kind)+" is still referenced", nil)
		}
		return struct{}{}, mapStoreError(s.repo.DeleteRegistryEntry(txCtx, kind, id))
	})
	if err != nil {
		logRejected(ctx, "registry.remove.rejected", err, logrus.Fields{"kind": string(kind), "id": id, "soft": soft})
		return err
	}

	op, verb := audit.OperationRemoval, "removed"
	if soft {
		op, verb = audit.OperationInactivation, "inactivated"
	}
	s.recordAudit(ctx, audit.NewEntry(op, registryTargets[kind], "%s %d %s", kind, id, verb))
	return nil
}

func (s *OccupancyService) ReactivateRegistryEntry(ctx context.Context, kind registry.Kind, id int64) error {
	_, err := inTx(ctx, s.repo, func(txCtx context.Context) (struct{}, error) {
		active, err := s.registryActive(txCtx, kind, id)
		if err != nil {
			return struct{}{}, err
		}
		if active {
			return struct{}{}, badRequest(CodeAlreadyActive, "%s %d is already active", kind, id)
		}
		return struct{}{}, mapStoreError(s.repo.SetRegistryActive(txCtx, kind, id, true))
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, audit.NewEntry(audit.OperationReactivation, registryTargets[kind], "%s %d reactivated", kind, id))
	return nil
}
