package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/chain"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/registry"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/composables"
)

const positionColumns = `id, name, organization_id, active, exclusive, substitutes_for, substitute, created_at, updated_at`

const occupancyColumns = `id, person_id, position_id, decree_id, start_date, end_date, term_number, notes, created_at, updated_at`

const approvalColumns = `id, operation, target, description, payload, rule, affected_id, status, requested_at, decided_at`

// PostgresRepository stores the record set in PostgreSQL. Calls join the
// transaction bound to ctx and fall back to the pool otherwise.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ services.Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return composables.InTx(composables.WithPool(ctx, r.pool), fn)
}

func (r *PostgresRepository) querier(ctx context.Context) (composables.Querier, error) {
	q, err := composables.UseTx(ctx)
	if err == nil {
		return q, nil
	}
	if r.pool == nil {
		return nil, err
	}
	return r.pool, nil
}

func noRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return services.ErrNotFound
	}
	return err
}

func expectOne(rowsAffected int64) error {
	if rowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

// Positions

func scanPosition(row pgx.Row) (position.Position, error) {
	var p position.Position
	err := row.Scan(&p.ID, &p.Name, &p.OrganizationID, &p.Active, &p.Exclusive,
		&p.SubstitutesFor, &p.Substitute, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PostgresRepository) getPosition(ctx context.Context, id int64, lock bool) (position.Position, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return position.Position{}, err
	}
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	p, err := scanPosition(q.QueryRow(ctx, query, id))
	if err != nil {
		return position.Position{}, noRows(err)
	}
	return p, nil
}

func (r *PostgresRepository) GetPosition(ctx context.Context, id int64) (position.Position, error) {
	return r.getPosition(ctx, id, false)
}

func (r *PostgresRepository) LockPosition(ctx context.Context, id int64) (position.Position, error) {
	return r.getPosition(ctx, id, true)
}

func (r *PostgresRepository) ListPositions(ctx context.Context, organizationID *int64) ([]position.Position, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE $1::bigint IS NULL OR organization_id = $1
		ORDER BY id`, organizationID)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list positions")
	}
	defer rows.Close()

	var out []position.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "failed to scan position")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListChainLinks(ctx context.Context, organizationID int64) ([]chain.Link, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, substitutes_for, substitute
		FROM positions
		WHERE organization_id = $1
		ORDER BY id`, organizationID)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list chain links")
	}
	defer rows.Close()

	var out []chain.Link
	for rows.Next() {
		var l chain.Link
		if err := rows.Scan(&l.ID, &l.SubstitutesFor, &l.Substitute); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan chain link")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) PositionNameTaken(ctx context.Context, organizationID int64, name string, excludeID int64) (bool, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return false, err
	}
	var taken bool
	err = q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM positions WHERE organization_id = $1 AND name = $2 AND id <> $3
		)`, organizationID, name, excludeID).Scan(&taken)
	if err != nil {
		return false, gerrors.Wrap(err, "failed to check position name")
	}
	return taken, nil
}

func (r *PostgresRepository) InsertPosition(ctx context.Context, p position.Position) (position.Position, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return position.Position{}, err
	}
	out, err := scanPosition(q.QueryRow(ctx, `
		INSERT INTO positions (name, organization_id, active, exclusive, substitutes_for, substitute)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+positionColumns,
		p.Name, p.OrganizationID, p.Active, p.Exclusive, p.SubstitutesFor, p.Substitute))
	if err != nil {
		return position.Position{}, err
	}
	return out, nil
}

func (r *PostgresRepository) UpdatePosition(ctx context.Context, p position.Position) error {
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE positions
		SET name = $2, organization_id = $3, active = $4, exclusive = $5,
			substitutes_for = $6, substitute = $7, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.OrganizationID, p.Active, p.Exclusive, p.SubstitutesFor, p.Substitute)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

func (r *PostgresRepository) DeletePosition(ctx context.Context, id int64) error {
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

// Occupancies

func scanOccupancy(row pgx.Row) (occupancy.Occupancy, error) {
	var o occupancy.Occupancy
	err := row.Scan(&o.ID, &o.PersonID, &o.PositionID, &o.DecreeID, &o.StartDate, &o.EndDate,
		&o.TermNumber, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	o.StartDate = occupancy.DatePtr(o.StartDate)
	o.EndDate = occupancy.DatePtr(o.EndDate)
	return o, nil
}

func (r *PostgresRepository) GetOccupancy(ctx context.Context, id int64) (occupancy.Occupancy, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return occupancy.Occupancy{}, err
	}
	o, err := scanOccupancy(q.QueryRow(ctx, `SELECT `+occupancyColumns+` FROM occupancies WHERE id = $1`, id))
	if err != nil {
		return occupancy.Occupancy{}, noRows(err)
	}
	return o, nil
}

func (r *PostgresRepository) ListOccupancies(ctx context.Context, positionID int64) ([]occupancy.Occupancy, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+occupancyColumns+`
		FROM occupancies
		WHERE position_id = $1
		ORDER BY start_date ASC NULLS FIRST, id ASC`, positionID)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list occupancies")
	}
	defer rows.Close()

	var out []occupancy.Occupancy
	for rows.Next() {
		o, err := scanOccupancy(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "failed to scan occupancy")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CountOccupancies(ctx context.Context, positionIDs []int64) (int, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM occupancies WHERE position_id = ANY($1)`, positionIDs).Scan(&n); err != nil {
		return 0, gerrors.Wrap(err, "failed to count occupancies")
	}
	return n, nil
}

func (r *PostgresRepository) InsertOccupancy(ctx context.Context, o occupancy.Occupancy) (occupancy.Occupancy, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return occupancy.Occupancy{}, err
	}
	return scanOccupancy(q.QueryRow(ctx, `
		INSERT INTO occupancies (person_id, position_id, decree_id, start_date, end_date, term_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+occupancyColumns,
		o.PersonID, o.PositionID, o.DecreeID, o.StartDate, o.EndDate, o.TermNumber, o.Notes))
}

func (r *PostgresRepository) UpdateOccupancyTerm(ctx context.Context, id int64, term int) error {
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `UPDATE occupancies SET term_number = $2, updated_at = now() WHERE id = $1`, id, term)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

func (r *PostgresRepository) UpdateOccupancyEnd(ctx context.Context, id int64, end *time.Time) error {
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `UPDATE occupancies SET end_date = $2, updated_at = now() WHERE id = $1`, id, end)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

func (r *PostgresRepository) DeleteOccupancy(ctx context.Context, id int64) error {
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM occupancies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

func (r *PostgresRepository) DeleteOccupanciesByPositions(ctx context.Context, positionIDs []int64) (int64, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, `DELETE FROM occupancies WHERE position_id = ANY($1)`, positionIDs)
	if err != nil {
		return 0, gerrors.Wrap(err, "failed to delete occupancies")
	}
	return tag.RowsAffected(), nil
}

// Pending approvals

func scanApproval(row pgx.Row) (pendingapproval.PendingApproval, error) {
	var (
		p                 pendingapproval.PendingApproval
		op, target, state string
		rule              int16
		raw               []byte
	)
	if err := row.Scan(&p.ID, &op, &target, &p.Description, &raw, &rule, &p.AffectedID, &state, &p.RequestedAt, &p.DecidedAt); err != nil {
		return p, err
	}
	payload, err := pendingapproval.ParsePayload(raw)
	if err != nil {
		return p, gerrors.Wrap(err, fmt.Sprintf("pending approval %d", p.ID))
	}
	p.Operation = audit.Operation(op)
	p.Target = audit.Target(target)
	p.Status = pendingapproval.Status(state)
	p.Rule = occupancy.Rule(rule)
	p.Payload = payload
	return p, nil
}

func (r *PostgresRepository) InsertPendingApproval(ctx context.Context, p pendingapproval.PendingApproval) (pendingapproval.PendingApproval, error) {
	if err := p.Payload.Validate(); err != nil {
		return pendingapproval.PendingApproval{}, err
	}
	raw, err := json.Marshal(p.Payload)
	if err != nil {
		return pendingapproval.PendingApproval{}, gerrors.Wrap(err, "failed to encode approval payload")
	}
	q, err := r.querier(ctx)
	if err != nil {
		return pendingapproval.PendingApproval{}, err
	}
	return scanApproval(q.QueryRow(ctx, `
		INSERT INTO pending_approvals (operation, target, description, payload, rule, affected_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+approvalColumns,
		string(p.Operation), string(p.Target), p.Description, raw, int16(p.Rule), p.AffectedID, string(p.Status)))
}

func (r *PostgresRepository) LockPendingApproval(ctx context.Context, id int64) (pendingapproval.PendingApproval, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return pendingapproval.PendingApproval{}, err
	}
	p, err := scanApproval(q.QueryRow(ctx, `SELECT `+approvalColumns+` FROM pending_approvals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return pendingapproval.PendingApproval{}, noRows(err)
	}
	return p, nil
}

func (r *PostgresRepository) UpdatePendingApproval(ctx context.Context, p pendingapproval.PendingApproval) error {
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `UPDATE pending_approvals SET status = $2, decided_at = $3 WHERE id = $1`,
		p.ID, string(p.Status), p.DecidedAt)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

func (r *PostgresRepository) ListPendingApprovals(ctx context.Context, status *pendingapproval.Status) ([]pendingapproval.PendingApproval, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	rows, err := q.Query(ctx, `
		SELECT `+approvalColumns+`
		FROM pending_approvals
		WHERE $1::text IS NULL OR status = $1
		ORDER BY id DESC`, filter)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list pending approvals")
	}
	defer rows.Close()

	var out []pendingapproval.PendingApproval
	for rows.Next() {
		p, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Audit

func (r *PostgresRepository) InsertAuditEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return audit.Entry{}, err
	}
	err = q.QueryRow(ctx, `
		INSERT INTO audit_entries (operation, target, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		string(e.Operation), string(e.Target), e.Description).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return audit.Entry{}, gerrors.Wrap(err, "failed to insert audit entry")
	}
	return e, nil
}

func stringsOf[T ~string](in []T) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func (r *PostgresRepository) ListAuditEntries(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, 0, err
	}
	ops, targets := stringsOf(filter.Operations), stringsOf(filter.Targets)
	const where = `($1::text[] IS NULL OR operation = ANY($1)) AND ($2::text[] IS NULL OR target = ANY($2))`

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM audit_entries WHERE `+where, ops, targets).Scan(&total); err != nil {
		return nil, 0, gerrors.Wrap(err, "failed to count audit entries")
	}

	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}
	rows, err := q.Query(ctx, `
		SELECT id, operation, target, description, created_at
		FROM audit_entries
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`, ops, targets, limit, filter.Offset)
	if err != nil {
		return nil, 0, gerrors.Wrap(err, "failed to list audit entries")
	}
	defer rows.Close()

	out := []audit.Entry{}
	for rows.Next() {
		var (
			e          audit.Entry
			op, target string
		)
		if err := rows.Scan(&e.ID, &op, &target, &e.Description, &e.CreatedAt); err != nil {
			return nil, 0, gerrors.Wrap(err, "failed to scan audit entry")
		}
		e.Operation, e.Target = audit.Operation(op), audit.Target(target)
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Registry

func (r *PostgresRepository) GetPerson(ctx context.Context, id int64) (registry.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return registry.Person{}, err
	}
	var p registry.Person
	err = q.QueryRow(ctx, `SELECT id, name, active, created_at FROM persons WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt)
	if err != nil {
		return registry.Person{}, noRows(err)
	}
	return p, nil
}

func (r *PostgresRepository) ListPersons(ctx context.Context) ([]registry.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `SELECT id, name, active, created_at FROM persons ORDER BY id`)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list persons")
	}
	defer rows.Close()

	var out []registry.Person
	for rows.Next() {
		var p registry.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan person")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) InsertPerson(ctx context.Context, p registry.Person) (registry.Person, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return registry.Person{}, err
	}
	err = q.QueryRow(ctx, `INSERT INTO persons (name, active) VALUES ($1, $2) RETURNING id, created_at`,
		p.Name, p.Active).Scan(&p.ID, &p.CreatedAt)
	return p, err
}

func (r *PostgresRepository) GetOrganization(ctx context.Context, id int64) (registry.Organization, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return registry.Organization{}, err
	}
	var o registry.Organization
	err = q.QueryRow(ctx, `SELECT id, name, active, created_at FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.Active, &o.CreatedAt)
	if err != nil {
		return registry.Organization{}, noRows(err)
	}
	return o, nil
}

func (r *PostgresRepository) ListOrganizations(ctx context.Context) ([]registry.Organization, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `SELECT id, name, active, created_at FROM organizations ORDER BY id`)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list organizations")
	}
	defer rows.Close()

	var out []registry.Organization
	for rows.Next() {
		var o registry.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Active, &o.CreatedAt); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan organization")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) InsertOrganization(ctx context.Context, o registry.Organization) (registry.Organization, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return registry.Organization{}, err
	}
	err = q.QueryRow(ctx, `INSERT INTO organizations (name, active) VALUES ($1, $2) RETURNING id, created_at`,
		o.Name, o.Active).Scan(&o.ID, &o.CreatedAt)
	return o, err
}

func scanDecree(row pgx.Row) (registry.Decree, error) {
	var d registry.Decree
	if err := row.Scan(&d.ID, &d.Number, &d.IssuedOn, &d.Notes, &d.Active, &d.CreatedAt); err != nil {
		return d, err
	}
	d.IssuedOn = occupancy.DatePtr(d.IssuedOn)
	return d, nil
}

func (r *PostgresRepository) GetDecree(ctx context.Context, id int64) (registry.Decree, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return registry.Decree{}, err
	}
	d, err := scanDecree(q.QueryRow(ctx, `SELECT id, number, issued_on, notes, active, created_at FROM decrees WHERE id = $1`, id))
	if err != nil {
		return registry.Decree{}, noRows(err)
	}
	return d, nil
}

func (r *PostgresRepository) ListDecrees(ctx context.Context) ([]registry.Decree, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `SELECT id, number, issued_on, notes, active, created_at FROM decrees ORDER BY id`)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list decrees")
	}
	defer rows.Close()

	var out []registry.Decree
	for rows.Next() {
		d, err := scanDecree(rows)
		if err != nil {
			return nil, gerrors.Wrap(err, "failed to scan decree")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) InsertDecree(ctx context.Context, d registry.Decree) (registry.Decree, error) {
	q, err := r.querier(ctx)
	if err != nil {
		return registry.Decree{}, err
	}
	return scanDecree(q.QueryRow(ctx, `
		INSERT INTO decrees (number, issued_on, notes, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, number, issued_on, notes, active, created_at`,
		d.Number, d.IssuedOn, d.Notes, d.Active))
}

var registryTables = map[registry.Kind]string{
	registry.KindPerson:       "persons",
	registry.KindOrganization: "organizations",
	registry.KindDecree:       "decrees",
}

func registryTable(kind registry.Kind) (string, error) {
	table, ok := registryTables[kind]
	if !ok {
		return "", services.ErrNotFound
	}
	return table, nil
}

func (r *PostgresRepository) SetRegistryActive(ctx context.Context, kind registry.Kind, id int64, active bool) error {
	table, err := registryTable(kind)
	if err != nil {
		return err
	}
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `UPDATE `+table+` SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

func (r *PostgresRepository) DeleteRegistryEntry(ctx context.Context, kind registry.Kind, id int64) error {
	table, err := registryTable(kind)
	if err != nil {
		return err
	}
	q, err := r.querier(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(tag.RowsAffected())
}

var registryUsage = map[registry.Kind]string{
	registry.KindPerson:       `SELECT EXISTS (SELECT 1 FROM occupancies WHERE person_id = $1)`,
	registry.KindOrganization: `SELECT EXISTS (SELECT 1 FROM positions WHERE organization_id = $1)`,
	registry.KindDecree:       `SELECT EXISTS (SELECT 1 FROM occupancies WHERE decree_id = $1)`,
}

func (r *PostgresRepository) RegistryEntryInUse(ctx context.Context, kind registry.Kind, id int64) (bool, error) {
	query, ok := registryUsage[kind]
	if !ok {
		return false, nil
	}
	q, err := r.querier(ctx)
	if err != nil {
		return false, err
	}
	var inUse bool
	if err := q.QueryRow(ctx, query, id).Scan(&inUse); err != nil {
		return false, gerrors.Wrap(err, fmt.Sprintf("failed to check %s usage", kind))
	}
	return inUse, nil
}
