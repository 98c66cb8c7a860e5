package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/chain"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/registry"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

type memoryState struct {
	persons       map[int64]registry.Person
	organizations map[int64]registry.Organization
	decrees       map[int64]registry.Decree
	positions     map[int64]position.Position
	occupancies   map[int64]occupancy.Occupancy
	approvals     map[int64]pendingapproval.PendingApproval
	audit         []audit.Entry
	seq           int64
}

func newMemoryState() memoryState {
	return memoryState{
		persons:       map[int64]registry.Person{},
		organizations: map[int64]registry.Organization{},
		decrees:       map[int64]registry.Decree{},
		positions:     map[int64]position.Position{},
		occupancies:   map[int64]occupancy.Occupancy{},
		approvals:     map[int64]pendingapproval.PendingApproval{},
	}
}

func (s memoryState) clone() memoryState {
	return memoryState{
		persons:       cloneMap(s.persons, func(v registry.Person) registry.Person { return v }),
		organizations: cloneMap(s.organizations, func(v registry.Organization) registry.Organization { return v }),
		decrees:       cloneMap(s.decrees, cloneDecree),
		positions:     cloneMap(s.positions, clonePosition),
		occupancies:   cloneMap(s.occupancies, cloneOccupancy),
		approvals:     cloneMap(s.approvals, cloneApproval),
		audit:         append([]audit.Entry(nil), s.audit...),
		seq:           s.seq,
	}
}

func cloneMap[V any](in map[int64]V, cp func(V) V) map[int64]V {
	out := make(map[int64]V, len(in))
	for k, v := range in {
		out[k] = cp(v)
	}
	return out
}

func cloneID(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneDecree(d registry.Decree) registry.Decree {
	d.IssuedOn = cloneTime(d.IssuedOn)
	return d
}

func clonePosition(p position.Position) position.Position {
	p.SubstitutesFor = cloneID(p.SubstitutesFor)
	p.Substitute = cloneID(p.Substitute)
	return p
}

func cloneOccupancy(o occupancy.Occupancy) occupancy.Occupancy {
	o.DecreeID = cloneID(o.DecreeID)
	o.StartDate = cloneTime(o.StartDate)
	o.EndDate = cloneTime(o.EndDate)
	return o
}

func cloneApproval(p pendingapproval.PendingApproval) pendingapproval.PendingApproval {
	p.AffectedID = cloneID(p.AffectedID)
	p.DecidedAt = cloneTime(p.DecidedAt)
	if p.Payload.Occupancy != nil {
		op := *p.Payload.Occupancy
		op.DecreeID = cloneID(op.DecreeID)
		op.StartDate = cloneTime(op.StartDate)
		op.EndDate = cloneTime(op.EndDate)
		op.ConflictingID = cloneID(op.ConflictingID)
		p.Payload.Occupancy = &op
	}
	return p
}

// constraint errors mirror the names used by the SQL schema, so both stores
// surface the same failures.
func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "foreign key violation"}
}

func checkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23514", ConstraintName: constraint, Message: "check constraint violated"}
}

type memTxKey struct{}

// MemoryRepository keeps every table in process memory. Transactions are
// serialised by one mutex and roll back by restoring a copy of the state
// taken at begin.
type MemoryRepository struct {
	mu    sync.Mutex
	state memoryState
	now   func() time.Time
}

var _ services.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: newMemoryState(), now: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryRepository) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(memTxKey{}).(*MemoryRepository)
	return owner == r
}

func (r *MemoryRepository) WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if r.inTx(ctx) {
		return fn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, r)); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

// with runs fn against the state, taking the lock unless ctx already holds it.
func (r *MemoryRepository) with(ctx context.Context, fn func(st *memoryState) error) error {
	if r.inTx(ctx) {
		return fn(&r.state)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&r.state)
}

func (s *memoryState) nextID() int64 {
	s.seq++
	return s.seq
}

// Positions

func (r *MemoryRepository) GetPosition(ctx context.Context, id int64) (position.Position, error) {
	var out position.Position
	err := r.with(ctx, func(st *memoryState) error {
		p, ok := st.positions[id]
		if !ok {
			return services.ErrNotFound
		}
		out = clonePosition(p)
		return nil
	})
	return out, err
}

// LockPosition is GetPosition; the repository mutex already serialises writers.
func (r *MemoryRepository) LockPosition(ctx context.Context, id int64) (position.Position, error) {
	return r.GetPosition(ctx, id)
}

func (r *MemoryRepository) ListPositions(ctx context.Context, organizationID *int64) ([]position.Position, error) {
	var out []position.Position
	err := r.with(ctx, func(st *memoryState) error {
		for _, p := range st.positions {
			if organizationID != nil && p.OrganizationID != *organizationID {
				continue
			}
			out = append(out, clonePosition(p))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *MemoryRepository) ListChainLinks(ctx context.Context, organizationID int64) ([]chain.Link, error) {
	var out []chain.Link
	err := r.with(ctx, func(st *memoryState) error {
		for _, p := range st.positions {
			if p.OrganizationID != organizationID {
				continue
			}
			out = append(out, chain.Link{ID: p.ID, SubstitutesFor: cloneID(p.SubstitutesFor), Substitute: cloneID(p.Substitute)})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *MemoryRepository) PositionNameTaken(ctx context.Context, organizationID int64, name string, excludeID int64) (bool, error) {
	var taken bool
	err := r.with(ctx, func(st *memoryState) error {
		taken = st.nameTaken(organizationID, name, excludeID)
		return nil
	})
	return taken, err
}

func (s *memoryState) nameTaken(organizationID int64, name string, excludeID int64) bool {
	for _, p := range s.positions {
		if p.ID != excludeID && p.OrganizationID == organizationID && p.Name == name {
			return true
		}
	}
	return false
}

func (s *memoryState) checkPosition(p position.Position) error {
	if _, ok := s.organizations[p.OrganizationID]; !ok {
		return foreignKeyViolation("positions_organization_id_fkey")
	}
	if s.nameTaken(p.OrganizationID, p.Name, p.ID) {
		return uniqueViolation("positions_organization_id_name_key")
	}
	for _, ref := range []*int64{p.SubstitutesFor, p.Substitute} {
		if ref == nil {
			continue
		}
		if _, ok := s.positions[*ref]; !ok {
			return foreignKeyViolation("positions_substitutes_for_fkey")
		}
	}
	if p.Substitute != nil {
		for _, other := range s.positions {
			if other.ID != p.ID && other.Substitute != nil && *other.Substitute == *p.Substitute {
				return uniqueViolation("positions_substitute_key")
			}
		}
	}
	return nil
}

func (r *MemoryRepository) InsertPosition(ctx context.Context, p position.Position) (position.Position, error) {
	err := r.with(ctx, func(st *memoryState) error {
		if err := st.checkPosition(p); err != nil {
			return err
		}
		now := r.now()
		p.ID = st.nextID()
		p.CreatedAt, p.UpdatedAt = now, now
		st.positions[p.ID] = clonePosition(p)
		return nil
	})
	return p, err
}

func (r *MemoryRepository) UpdatePosition(ctx context.Context, p position.Position) error {
	return r.with(ctx, func(st *memoryState) error {
		cur, ok := st.positions[p.ID]
		if !ok {
			return services.ErrNotFound
		}
		if err := st.checkPosition(p); err != nil {
			return err
		}
		p.CreatedAt = cur.CreatedAt
		p.UpdatedAt = r.now()
		st.positions[p.ID] = clonePosition(p)
		return nil
	})
}

func (r *MemoryRepository) DeletePosition(ctx context.Context, id int64) error {
	return r.with(ctx, func(st *memoryState) error {
		if _, ok := st.positions[id]; !ok {
			return services.ErrNotFound
		}
		for _, o := range st.occupancies {
			if o.PositionID == id {
				return foreignKeyViolation("occupancies_position_id_fkey")
			}
		}
		delete(st.positions, id)
		// chain pointers are ON DELETE SET NULL
		for pid, p := range st.positions {
			changed := false
			if p.Substitute != nil && *p.Substitute == id {
				p.Substitute, changed = nil, true
			}
			if p.SubstitutesFor != nil && *p.SubstitutesFor == id {
				p.SubstitutesFor, changed = nil, true
			}
			if changed {
				st.positions[pid] = p
			}
		}
		return nil
	})
}

// Occupancies

func (r *MemoryRepository) GetOccupancy(ctx context.Context, id int64) (occupancy.Occupancy, error) {
	var out occupancy.Occupancy
	err := r.with(ctx, func(st *memoryState) error {
		o, ok := st.occupancies[id]
		if !ok {
			return services.ErrNotFound
		}
		out = cloneOccupancy(o)
		return nil
	})
	return out, err
}

// ListOccupancies orders by start date, nil first, then id.
func (r *MemoryRepository) ListOccupancies(ctx context.Context, positionID int64) ([]occupancy.Occupancy, error) {
	var out []occupancy.Occupancy
	err := r.with(ctx, func(st *memoryState) error {
		for _, o := range st.occupancies {
			if o.PositionID == positionID {
				out = append(out, cloneOccupancy(o))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].StartDate, out[j].StartDate
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *MemoryRepository) CountOccupancies(ctx context.Context, positionIDs []int64) (int, error) {
	var n int
	err := r.with(ctx, func(st *memoryState) error {
		ids := idSet(positionIDs)
		for _, o := range st.occupancies {
			if _, ok := ids[o.PositionID]; ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s *memoryState) checkOccupancy(o occupancy.Occupancy) error {
	if _, ok := s.persons[o.PersonID]; !ok {
		return foreignKeyViolation("occupancies_person_id_fkey")
	}
	if _, ok := s.positions[o.PositionID]; !ok {
		return foreignKeyViolation("occupancies_position_id_fkey")
	}
	if o.DecreeID != nil {
		if _, ok := s.decrees[*o.DecreeID]; !ok {
			return foreignKeyViolation("occupancies_decree_id_fkey")
		}
	}
	if !occupancy.ValidRange(o.StartDate, o.EndDate) {
		return checkViolation("occupancies_valid_range")
	}
	return nil
}

func (r *MemoryRepository) InsertOccupancy(ctx context.Context, o occupancy.Occupancy) (occupancy.Occupancy, error) {
	err := r.with(ctx, func(st *memoryState) error {
		if err := st.checkOccupancy(o); err != nil {
			return err
		}
		now := r.now()
		o.ID = st.nextID()
		o.CreatedAt, o.UpdatedAt = now, now
		st.occupancies[o.ID] = cloneOccupancy(o)
		return nil
	})
	return o, err
}

func (r *MemoryRepository) UpdateOccupancyTerm(ctx context.Context, id int64, term int) error {
	return r.with(ctx, func(st *memoryState) error {
		o, ok := st.occupancies[id]
		if !ok {
			return services.ErrNotFound
		}
		o.TermNumber = term
		o.UpdatedAt = r.now()
		st.occupancies[id] = o
		return nil
	})
}

func (r *MemoryRepository) UpdateOccupancyEnd(ctx context.Context, id int64, end *time.Time) error {
	return r.with(ctx, func(st *memoryState) error {
		o, ok := st.occupancies[id]
		if !ok {
			return services.ErrNotFound
		}
		o.EndDate = cloneTime(end)
		if !occupancy.ValidRange(o.StartDate, o.EndDate) {
			return checkViolation("occupancies_valid_range")
		}
		o.UpdatedAt = r.now()
		st.occupancies[id] = o
		return nil
	})
}

func (r *MemoryRepository) DeleteOccupancy(ctx context.Context, id int64) error {
	return r.with(ctx, func(st *memoryState) error {
		if _, ok := st.occupancies[id]; !ok {
			return services.ErrNotFound
		}
		delete(st.occupancies, id)
		return nil
	})
}

func (r *MemoryRepository) DeleteOccupanciesByPositions(ctx context.Context, positionIDs []int64) (int64, error) {
	var n int64
	err := r.with(ctx, func(st *memoryState) error {
		ids := idSet(positionIDs)
		for id, o := range st.occupancies {
			if _, ok := ids[o.PositionID]; ok {
				delete(st.occupancies, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// Pending approvals

func (r *MemoryRepository) InsertPendingApproval(ctx context.Context, p pendingapproval.PendingApproval) (pendingapproval.PendingApproval, error) {
	err := r.with(ctx, func(st *memoryState) error {
		if err := p.Payload.Validate(); err != nil {
			return err
		}
		p.ID = st.nextID()
		if p.RequestedAt.IsZero() {
			p.RequestedAt = r.now()
		}
		st.approvals[p.ID] = cloneApproval(p)
		return nil
	})
	return p, err
}

func (r *MemoryRepository) LockPendingApproval(ctx context.Context, id int64) (pendingapproval.PendingApproval, error) {
	var out pendingapproval.PendingApproval
	err := r.with(ctx, func(st *memoryState) error {
		p, ok := st.approvals[id]
		if !ok {
			return services.ErrNotFound
		}
		out = cloneApproval(p)
		return nil
	})
	return out, err
}

func (r *MemoryRepository) UpdatePendingApproval(ctx context.Context, p pendingapproval.PendingApproval) error {
	return r.with(ctx, func(st *memoryState) error {
		if _, ok := st.approvals[p.ID]; !ok {
			return services.ErrNotFound
		}
		st.approvals[p.ID] = cloneApproval(p)
		return nil
	})
}

// ListPendingApprovals returns the newest first.
func (r *MemoryRepository) ListPendingApprovals(ctx context.Context, status *pendingapproval.Status) ([]pendingapproval.PendingApproval, error) {
	var out []pendingapproval.PendingApproval
	err := r.with(ctx, func(st *memoryState) error {
		for _, p := range st.approvals {
			if status != nil && p.Status != *status {
				continue
			}
			out = append(out, cloneApproval(p))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

// Audit

func (r *MemoryRepository) InsertAuditEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	err := r.with(ctx, func(st *memoryState) error {
		e.ID = st.nextID()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = r.now()
		}
		st.audit = append(st.audit, e)
		return nil
	})
	return e, err
}

// ListAuditEntries returns a page of matching entries, newest first, and the
// number of matching entries.
func (r *MemoryRepository) ListAuditEntries(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	var matched []audit.Entry
	err := r.with(ctx, func(st *memoryState) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			if filter.Matches(st.audit[i]) {
				matched = append(matched, st.audit[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if filter.Offset >= total {
		return []audit.Entry{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

// Registry

func (r *MemoryRepository) GetPerson(ctx context.Context, id int64) (registry.Person, error) {
	var out registry.Person
	err := r.with(ctx, func(st *memoryState) error {
		p, ok := st.persons[id]
		if !ok {
			return services.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *MemoryRepository) ListPersons(ctx context.Context) ([]registry.Person, error) {
	var out []registry.Person
	err := r.with(ctx, func(st *memoryState) error {
		for _, p := range st.persons {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *MemoryRepository) InsertPerson(ctx context.Context, p registry.Person) (registry.Person, error) {
	err := r.with(ctx, func(st *memoryState) error {
		p.ID = st.nextID()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = r.now()
		}
		st.persons[p.ID] = p
		return nil
	})
	return p, err
}

func (r *MemoryRepository) GetOrganization(ctx context.Context, id int64) (registry.Organization, error) {
	var out registry.Organization
	err := r.with(ctx, func(st *memoryState) error {
		o, ok := st.organizations[id]
		if !ok {
			return services.ErrNotFound
		}
		out = o
		return nil
	})
	return out, err
}

func (r *MemoryRepository) ListOrganizations(ctx context.Context) ([]registry.Organization, error) {
	var out []registry.Organization
	err := r.with(ctx, func(st *memoryState) error {
		for _, o := range st.organizations {
			out = append(out, o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *MemoryRepository) InsertOrganization(ctx context.Context, o registry.Organization) (registry.Organization, error) {
	err := r.with(ctx, func(st *memoryState) error {
		for _, existing := range st.organizations {
			if existing.Name == o.Name {
				return uniqueViolation("organizations_name_key")
			}
		}
		o.ID = st.nextID()
		if o.CreatedAt.IsZero() {
			o.CreatedAt = r.now()
		}
		st.organizations[o.ID] = o
		return nil
	})
	return o, err
}

func (r *MemoryRepository) GetDecree(ctx context.Context, id int64) (registry.Decree, error) {
	var out registry.Decree
	err := r.with(ctx, func(st *memoryState) error {
		d, ok := st.decrees[id]
		if !ok {
			return services.ErrNotFound
		}
		out = cloneDecree(d)
		return nil
	})
	return out, err
}

func (r *MemoryRepository) ListDecrees(ctx context.Context) ([]registry.Decree, error) {
	var out []registry.Decree
	err := r.with(ctx, func(st *memoryState) error {
		for _, d := range st.decrees {
			out = append(out, cloneDecree(d))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *MemoryRepository) InsertDecree(ctx context.Context, d registry.Decree) (registry.Decree, error) {
	err := r.with(ctx, func(st *memoryState) error {
		for _, existing := range st.decrees {
			if existing.Number == d.Number {
				return uniqueViolation("decrees_number_key")
			}
		}
		d.ID = st.nextID()
		if d.CreatedAt.IsZero() {
			d.CreatedAt = r.now()
		}
		st.decrees[d.ID] = cloneDecree(d)
		return nil
	})
	return d, err
}

func (r *MemoryRepository) SetRegistryActive(ctx context.Context, kind registry.Kind, id int64, active bool) error {
	return r.with(ctx, func(st *memoryState) error {
		switch kind {
		case registry.KindPerson:
			p, ok := st.persons[id]
			if !ok {
				return services.ErrNotFound
			}
			p.Active = active
			st.persons[id] = p
		case registry.KindOrganization:
			o, ok := st.organizations[id]
			if !ok {
				return services.ErrNotFound
			}
			o.Active = active
			st.organizations[id] = o
		case registry.KindDecree:
			d, ok := st.decrees[id]
			if !ok {
				return services.ErrNotFound
			}
			d.Active = active
			st.decrees[id] = d
		default:
			return services.ErrNotFound
		}
		return nil
	})
}

func (r *MemoryRepository) DeleteRegistryEntry(ctx context.Context, kind registry.Kind, id int64) error {
	return r.with(ctx, func(st *memoryState) error {
		if st.referenced(kind, id) {
			return foreignKeyViolation(string(kind) + "_referenced")
		}
		switch kind {
		case registry.KindPerson:
			if _, ok := st.persons[id]; !ok {
				return services.ErrNotFound
			}
			delete(st.persons, id)
		case registry.KindOrganization:
			if _, ok := st.organizations[id]; !ok {
				return services.ErrNotFound
			}
			delete(st.organizations, id)
		case registry.KindDecree:
			if _, ok := st.decrees[id]; !ok {
				return services.ErrNotFound
			}
			delete(st.decrees, id)
		default:
			return services.ErrNotFound
		}
		return nil
	})
}

func (r *MemoryRepository) RegistryEntryInUse(ctx context.Context, kind registry.Kind, id int64) (bool, error) {
	var inUse bool
	err := r.with(ctx, func(st *memoryState) error {
		inUse = st.referenced(kind, id)
		return nil
	})
	return inUse, err
}

func (s *memoryState) referenced(kind registry.Kind, id int64) bool {
	switch kind {
	case registry.KindOrganization:
		for _, p := range s.positions {
			if p.OrganizationID == id {
				return true
			}
		}
	case registry.KindPerson:
		for _, o := range s.occupancies {
			if o.PersonID == id {
				return true
			}
		}
	case registry.KindDecree:
		for _, o := range s.occupancies {
			if o.DecreeID != nil && *o.DecreeID == id {
				return true
			}
		}
	}
	return false
}
