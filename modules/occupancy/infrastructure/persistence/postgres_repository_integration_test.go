package persistence_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/infrastructure/persistence"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/configuration"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestPostgresRepository_OccupancyLifecycle(t *testing.T) {
	ctx := context.Background()
	isCI := strings.TrimSpace(os.Getenv("CI")) != "" || strings.EqualFold(strings.TrimSpace(os.Getenv("GITHUB_ACTIONS")), "true")

	pool := newOccupancyTestDB(t, ctx, isCI)
	svc := services.NewOccupancyService(persistence.NewPostgresRepository(pool), services.WithConflictPolicy(services.PolicyDefer))

	org, err := svc.CreateOrganization(ctx, services.CreateNamedInput{Name: "Ministry"})
	require.NoError(t, err)
	alice, err := svc.CreatePerson(ctx, services.CreateNamedInput{Name: "Alice"})
	require.NoError(t, err)
	bob, err := svc.CreatePerson(ctx, services.CreateNamedInput{Name: "Bob"})
	require.NoError(t, err)

	director, err := svc.CreatePosition(ctx, services.CreatePositionInput{Name: "Director", OrganizationID: org.ID})
	require.NoError(t, err)
	vice, err := svc.CreatePosition(ctx, services.CreatePositionInput{Name: "Vice-Director", OrganizationID: org.ID, SubstitutesFor: &director.ID})
	require.NoError(t, err)

	_, err = svc.CreatePosition(ctx, services.CreatePositionInput{Name: "Director", OrganizationID: org.ID})
	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, services.CodeDuplicateName, svcErr.Code)

	first, err := svc.CreateOccupancy(ctx, services.CreateOccupancyInput{PersonID: alice.ID, PositionID: director.ID, StartDate: day(2020, 1, 1), EndDate: day(2021, 12, 31)})
	require.NoError(t, err)
	second, err := svc.CreateOccupancy(ctx, services.CreateOccupancyInput{PersonID: alice.ID, PositionID: director.ID, StartDate: day(2022, 1, 1)})
	require.NoError(t, err)
	require.Equal(t, 2, second.TermNumber)
	require.Equal(t, day(2022, 1, 1), second.StartDate)

	_, err = svc.CreateOccupancy(ctx, services.CreateOccupancyInput{PersonID: bob.ID, PositionID: director.ID, StartDate: day(2023, 1, 1)})
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusConflict, svcErr.Status)
	require.Equal(t, services.CodeOverlap, svcErr.Code)
	require.NotNil(t, svcErr.PendingApprovalID)

	status := pendingapproval.StatusPending
	pending, err := svc.ListPendingApprovals(ctx, &status)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, bob.ID, pending[0].Payload.Occupancy.PersonID)
	require.Equal(t, second.ID, *pending[0].AffectedID)

	deputy, err := svc.CreateOccupancy(ctx, services.CreateOccupancyInput{PersonID: bob.ID, PositionID: vice.ID, StartDate: day(2020, 6, 1), EndDate: day(2020, 12, 31)})
	require.NoError(t, err)

	removed, err := svc.DeleteOccupancy(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{first.ID, deputy.ID}, removed)

	remaining, err := svc.ListOccupancies(ctx, director.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, 1, remaining[0].TermNumber)

	page, err := svc.ListAudit(ctx, services.AuditQuery{Operations: []audit.Operation{audit.OperationRemoval}, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	_, err = svc.DeletePosition(ctx, director.ID, false, false)
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, services.CodePositionHasOccupancies, svcErr.Code)

	affected, err := svc.DeletePosition(ctx, director.ID, false, true)
	require.NoError(t, err)
	require.Equal(t, []int64{director.ID, vice.ID}, affected)
}

func newOccupancyTestDB(tb testing.TB, ctx context.Context, isCI bool) *pgxpool.Pool {
	tb.Helper()

	conf := configuration.Use()
	host := strings.TrimSpace(conf.Database.Host)
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(conf.Database.Port)
	if port == "" {
		port = "5432"
	}
	user := strings.TrimSpace(conf.Database.User)
	if user == "" {
		user = "postgres"
	}
	password := conf.Database.Password

	adminDSN := "postgres://" + user + ":" + password + "@" + host + ":" + port + "/postgres?sslmode=disable"
	adminConn, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		if isCI {
			require.NoError(tb, err)
		}
		tb.Skip("postgres is not reachable; skipping integration test")
	}
	tb.Cleanup(func() { _ = adminConn.Close(ctx) })

	dbName := "itf_" + strings.ToLower(strings.ReplaceAll(tb.Name(), "/", "_"))
	dbName = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, dbName)

	_, _ = adminConn.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName)
	if _, err := adminConn.Exec(ctx, "CREATE DATABASE "+dbName); err != nil {
		if isCI {
			require.NoError(tb, err)
		}
		tb.Skip("failed to create test database; skipping integration test")
	}

	pool, err := pgxpool.New(ctx, "postgres://"+user+":"+password+"@"+host+":"+port+"/"+dbName+"?sslmode=disable")
	require.NoError(tb, err)

	files, err := filepath.Glob(filepath.Join("schema", "migrations", "*.sql"))
	require.NoError(tb, err)
	require.NotEmpty(tb, files)
	for _, file := range files {
		applyGooseUpSQL(tb, ctx, pool, file)
	}

	tb.Cleanup(func() {
		pool.Close()
		_, _ = adminConn.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName)
	})
	return pool
}

func applyGooseUpSQL(tb testing.TB, ctx context.Context, pool *pgxpool.Pool, relPath string) {
	tb.Helper()
	raw, err := os.ReadFile(filepath.Clean(relPath))
	require.NoError(tb, err)
	sql := extractGooseUp(string(raw))
	require.NotEmpty(tb, strings.TrimSpace(sql))
	_, err = pool.Exec(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	require.NoError(tb, err)
}

func extractGooseUp(raw string) string {
	const up = "-- +goose Up"
	const down = "-- +goose Down"
	start := strings.Index(raw, up)
	if start < 0 {
		return raw
	}
	raw = raw[start+len(up):]
	if end := strings.Index(raw, down); end >= 0 {
		raw = raw[:end]
	}
	return raw
}
