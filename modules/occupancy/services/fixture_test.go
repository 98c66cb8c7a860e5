package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/registry"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/infrastructure/persistence"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	ctx   context.Context
	repo  *persistence.MemoryRepository
	svc   *services.OccupancyService
	org   registry.Organization
	alice registry.Person
	bob   registry.Person
}

func newFixture(t *testing.T, opts ...services.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := persistence.NewMemoryRepository()
	svc := services.NewOccupancyService(repo, opts...)

	org, err := svc.CreateOrganization(ctx, services.CreateNamedInput{Name: "Ministry of Works"})
	require.NoError(t, err)
	alice, err := svc.CreatePerson(ctx, services.CreateNamedInput{Name: "Alice"})
	require.NoError(t, err)
	bob, err := svc.CreatePerson(ctx, services.CreateNamedInput{Name: "Bob"})
	require.NoError(t, err)

	return &fixture{ctx: ctx, repo: repo, svc: svc, org: org, alice: alice, bob: bob}
}

func (f *fixture) position(t *testing.T, name string, substitutesFor *int64) position.Position {
	t.Helper()
	p, err := f.svc.CreatePosition(f.ctx, services.CreatePositionInput{
		Name:           name,
		OrganizationID: f.org.ID,
		SubstitutesFor: substitutesFor,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) occupy(t *testing.T, personID, positionID int64, start, end *time.Time) occupancy.Occupancy {
	t.Helper()
	o, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID:   personID,
		PositionID: positionID,
		StartDate:  start,
		EndDate:    end,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) terms(t *testing.T, positionID int64) []int {
	t.Helper()
	items, err := f.svc.ListOccupancies(f.ctx, positionID)
	require.NoError(t, err)
	out := make([]int, 0, len(items))
	for _, o := range items {
		out = append(out, o.TermNumber)
	}
	return out
}

func requireServiceError(t *testing.T, err error, status int, code string) *services.ServiceError {
	t.Helper()
	require.Error(t, err)
	var svcErr *services.ServiceError
	require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %T: %v", err, err)
	require.Equal(t, code, svcErr.Code, svcErr.Message)
	require.Equal(t, status, svcErr.Status, svcErr.Message)
	return svcErr
}
