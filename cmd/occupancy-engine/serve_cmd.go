package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	internalserver "github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/internal/server"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/application"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/logging"
)

func newServeCmd(app *cliApp) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := app.conf()
			logger := conf.Logger()

			if conf.OpenTelemetry.Enabled {
				tracingCleanup := logging.SetupTracing(cmd.Context(), conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
				defer tracingCleanup()
				logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.TempoURL)
			}

			opts, err := app.serviceOptions(true)
			if err != nil {
				return err
			}
			moduleOpts := &occupancy.ModuleOptions{ServiceOptions: opts}
			appOpts := &application.ApplicationOptions{Logger: logger}
			if app.inMemory {
				moduleOpts.Repository = app.memory
				logger.Warn("serving from the in-memory store; data is lost on exit")
			} else {
				pool, err := app.connectDB(cmd.Context())
				if err != nil {
					return err
				}
				defer pool.Close()
				appOpts.Pool = pool
			}

			a := application.New(appOpts)
			if err := application.Load(a, occupancy.NewModule(moduleOpts)); err != nil {
				return err
			}
			srv, err := internalserver.Default(&internalserver.DefaultOptions{
				Logger:        logger,
				Configuration: conf,
				Application:   a,
			})
			if err != nil {
				return err
			}

			if addr == "" {
				addr = conf.SocketAddress
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Infof("Listening on: %s", addr)
			_, _ = cmd.OutOrStdout().Write([]byte("Listening on: " + addr + "\n"))
			return srv.Start(ctx, addr, conf.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the configured socket address)")
	return cmd
}
