package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

func newApprovalCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approval",
		Short: "Review deferred admissions",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List pending approvals, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *pendingapproval.Status
			if status != "" {
				s, err := pendingapproval.ParseStatus(status)
				if err != nil {
					return withCode(exitUsage, err)
				}
				filter = &s
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.ListPendingApprovals(ctx, filter)
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "pending|approved|rejected")

	cmd.AddCommand(list, newDecisionCmd(app, "approve", true), newDecisionCmd(app, "reject", false))
	return cmd
}

func newDecisionCmd(app *cliApp, use string, approve bool) *cobra.Command {
	short := "Reject a pending approval"
	if approve {
		short = "Approve a pending approval and replay the deferred admission"
	}
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.ApprovePending(ctx, ids[0], approve)
			})
		},
	}
}
