package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/infrastructure/persistence"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/composables"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/configuration"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/logging"
)

// cliApp carries the state shared by every subcommand of one process.
type cliApp struct {
	inMemory bool
	policy   string

	// memory backs --in-memory; it lives as long as the process.
	memory *persistence.MemoryRepository
	// loadConf is called lazily so in-memory runs need no environment.
	loadConf func() *configuration.Configuration
	loaded   *configuration.Configuration
}

func newCLIApp() *cliApp {
	return &cliApp{
		memory:   persistence.NewMemoryRepository(),
		loadConf: configuration.Use,
	}
}

func (a *cliApp) conf() *configuration.Configuration {
	if a.loaded == nil {
		a.loaded = a.loadConf()
	}
	return a.loaded
}

func newRootCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "occupancy-engine",
		Short:         "Occupancy integrity engine: positions, occupancies, substitution chains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&app.inMemory, "in-memory", false, "Use the in-memory store instead of Postgres")
	cmd.PersistentFlags().StringVar(&app.policy, "conflict-policy", "", "Override the configured conflict policy (reject|defer)")

	cmd.AddCommand(
		newServeCmd(app),
		newMigrateCmd(app),
		newPositionCmd(app),
		newOccupancyCmd(app),
		newEligibilityCmd(app),
		newApprovalCmd(app),
		newAuditCmd(app),
		newRegistryCmd(app, "person"),
		newRegistryCmd(app, "organization"),
		newDecreeCmd(app),
	)
	return cmd
}

func Execute() {
	app := newCLIApp()
	err := newRootCmd(app).Execute()
	if err != nil {
		writeError(os.Stderr, err)
	}
	if app.loaded != nil {
		app.loaded.Unload()
	}
	os.Exit(exitCode(err))
}

// serviceOptions reads the occupancy configuration when withConf is set and
// applies the --conflict-policy override on top.
func (a *cliApp) serviceOptions(withConf bool) ([]services.Option, error) {
	var opts []services.Option
	if withConf {
		fromConf, err := occupancy.ServiceOptions(a.conf())
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		opts = append(opts, fromConf...)
	}
	if a.policy != "" {
		policy, err := services.ParseConflictPolicy(a.policy)
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		opts = append(opts, services.WithConflictPolicy(policy))
	}
	return opts, nil
}

func (a *cliApp) logger() *logrus.Logger {
	if a.inMemory {
		return logging.ConsoleLogger(logrus.WarnLevel)
	}
	return a.conf().Logger()
}

// service opens the store selected by the flags. The returned func releases it.
func (a *cliApp) service(ctx context.Context) (*services.OccupancyService, context.Context, func(), error) {
	opts, err := a.serviceOptions(!a.inMemory)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx = composables.WithLogger(ctx, logrus.NewEntry(a.logger()))

	if a.inMemory {
		return services.NewOccupancyService(a.memory, opts...), ctx, func() {}, nil
	}
	pool, err := a.connectDB(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return services.NewOccupancyService(persistence.NewPostgresRepository(pool), opts...), ctx, pool.Close, nil
}

func (a *cliApp) connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, a.conf().Database.Opts)
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("db connect failed: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, withCode(exitDB, fmt.Errorf("db connect failed: %w", err))
	}
	return pool, nil
}

// run opens the service, calls fn and prints its result as JSON.
func (a *cliApp) run(cmd *cobra.Command, fn func(ctx context.Context, svc *services.OccupancyService) (any, error)) error {
	svc, ctx, release, err := a.service(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	out, err := fn(ctx, svc)
	if err != nil {
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) {
			return withCode(exitValidation, err)
		}
		return err
	}
	if out == nil {
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func writeError(w io.Writer, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		out := map[string]any{
			"code":    svcErr.Code,
			"message": svcErr.Message,
			"status":  svcErr.Status,
		}
		if svcErr.Rule != 0 {
			out["rule"] = svcErr.Rule
		}
		if svcErr.ConflictingID != nil {
			out["conflicting_id"] = *svcErr.ConflictingID
		}
		if svcErr.PendingApprovalID != nil {
			out["pending_approval_id"] = *svcErr.PendingApprovalID
		}
		_ = writeJSON(w, out)
		return
	}
	_, _ = fmt.Fprintln(w, err.Error())
}
