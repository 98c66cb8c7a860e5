package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/infrastructure/persistence"
)

func newMigrateCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or inspect the schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(persistence.MigrateUp), string(persistence.MigrateDown), string(persistence.MigrateStatus)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.inMemory {
				return withCode(exitUsage, fmt.Errorf("migrate needs a database; drop --in-memory"))
			}
			db, err := persistence.OpenSQL(app.conf().Database.Opts)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer func() { _ = db.Close() }()

			if err := persistence.RunMigrations(cmd.Context(), db, persistence.MigrateDirection(args[0])); err != nil {
				return withCode(exitDB, err)
			}
			return nil
		},
	}
}
