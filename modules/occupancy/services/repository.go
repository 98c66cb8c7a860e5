package services

import (
	"context"
	"errors"
	"time"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/chain"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/registry"
)

// ErrNotFound is returned by repositories for missing rows.
var ErrNotFound = errors.New("not found")

// TxManager runs fn inside one store transaction. Repository calls made with
// txCtx join it; a nested call reuses the outer transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type PositionRepository interface {
	GetPosition(ctx context.Context, id int64) (position.Position, error)
	// LockPosition reads the row and holds a write lock on it until the
	// surrounding transaction ends.
	LockPosition(ctx context.Context, id int64) (position.Position, error)
	ListPositions(ctx context.Context, organizationID *int64) ([]position.Position, error)
	ListChainLinks(ctx context.Context, organizationID int64) ([]chain.Link, error)
	PositionNameTaken(ctx context.Context, organizationID int64, name string, excludeID int64) (bool, error)
	InsertPosition(ctx context.Context, p position.Position) (position.Position, error)
	UpdatePosition(ctx context.Context, p position.Position) error
	DeletePosition(ctx context.Context, id int64) error
}

type OccupancyRepository interface {
	GetOccupancy(ctx context.Context, id int64) (occupancy.Occupancy, error)
	ListOccupancies(ctx context.Context, positionID int64) ([]occupancy.Occupancy, error)
	CountOccupancies(ctx context.Context, positionIDs []int64) (int, error)
	InsertOccupancy(ctx context.Context, o occupancy.Occupancy) (occupancy.Occupancy, error)
	UpdateOccupancyTerm(ctx context.Context, id int64, term int) error
	UpdateOccupancyEnd(ctx context.Context, id int64, end *time.Time) error
	DeleteOccupancy(ctx context.Context, id int64) error
	DeleteOccupanciesByPositions(ctx context.Context, positionIDs []int64) (int64, error)
}

type ApprovalRepository interface {
	InsertPendingApproval(ctx context.Context, p pendingapproval.PendingApproval) (pendingapproval.PendingApproval, error)
	LockPendingApproval(ctx context.Context, id int64) (pendingapproval.PendingApproval, error)
	UpdatePendingApproval(ctx context.Context, p pendingapproval.PendingApproval) error
	ListPendingApprovals(ctx context.Context, status *pendingapproval.Status) ([]pendingapproval.PendingApproval, error)
}

type AuditRepository interface {
	InsertAuditEntry(ctx context.Context, e audit.Entry) (audit.Entry, error)
	ListAuditEntries(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error)
}

type RegistryRepository interface {
	GetPerson(ctx context.Context, id int64) (registry.Person, error)
	ListPersons(ctx context.Context) ([]registry.Person, error)
	InsertPerson(ctx context.Context, p registry.Person) (registry.Person, error)

	GetOrganization(ctx context.Context, id int64) (registry.Organization, error)
	ListOrganizations(ctx context.Context) ([]registry.Organization, error)
	InsertOrganization(ctx context.Context, o registry.Organization) (registry.Organization, error)

	GetDecree(ctx context.Context, id int64) (registry.Decree, error)
	ListDecrees(ctx context.Context) ([]registry.Decree, error)
	InsertDecree(ctx context.Context, d registry.Decree) (registry.Decree, error)

	SetRegistryActive(ctx context.Context, kind registry.Kind, id int64, active bool) error
	DeleteRegistryEntry(ctx context.Context, kind registry.Kind, id int64) error
	// RegistryEntryInUse reports whether positions or occupancies reference the entry.
	RegistryEntryInUse(ctx context.Context, kind registry.Kind, id int64) (bool, error)
}

// Repository is the record store consumed by OccupancyService.
type Repository interface {
	TxManager
	PositionRepository
	OccupancyRepository
	ApprovalRepository
	AuditRepository
	RegistryRepository
}
