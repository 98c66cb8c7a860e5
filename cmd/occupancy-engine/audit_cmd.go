package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

func newAuditCmd(app *cliApp) *cobra.Command {
	var (
		operations []string
		targets    []string
		limit      int
		offset     int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Page through the audit trail, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := services.AuditQuery{Limit: limit, Offset: offset}
			for _, v := range operations {
				op, err := audit.ParseOperation(v)
				if err != nil {
					return withCode(exitUsage, err)
				}
				q.Operations = append(q.Operations, op)
			}
			for _, v := range targets {
				t, err := audit.ParseTarget(v)
				if err != nil {
					return withCode(exitUsage, err)
				}
				q.Targets = append(q.Targets, t)
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.ListAudit(ctx, q)
			})
		},
	}
	cmd.Flags().StringSliceVar(&operations, "operation", nil, "Filter by operation (repeatable)")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "Filter by target (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size, 0 for the configured default")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	return cmd
}
