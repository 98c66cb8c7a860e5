package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/registry"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

// newRegistryCmd builds the person and organization commands; both only carry a name.
func newRegistryCmd(app *cliApp, kind string) *cobra.Command {
	k := registry.Kind(kind)
	cmd := &cobra.Command{
		Use:   kind,
		Short: "Manage " + kind + " records",
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a " + kind,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := services.CreateNamedInput{Name: name}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				if k == registry.KindPerson {
					return svc.CreatePerson(ctx, in)
				}
				return svc.CreateOrganization(ctx, in)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Name (required)")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List " + kind + " records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				if k == registry.KindPerson {
					return svc.ListPersons(ctx)
				}
				return svc.ListOrganizations(ctx)
			})
		},
	}

	cmd.AddCommand(create, list, newRegistryRemoveCmd(app, k), newRegistryReactivateCmd(app, k))
	return cmd
}

func newDecreeCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decree",
		Short: "Manage decrees referenced by occupancies",
	}

	var number, issuedOn, notes string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a decree",
		RunE: func(cmd *cobra.Command, args []string) error {
			issued, err := optionalDate(issuedOn)
			if err != nil {
				return err
			}
			in := services.CreateDecreeInput{Number: number, IssuedOn: issued, Notes: notes}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.CreateDecree(ctx, in)
			})
		},
	}
	create.Flags().StringVar(&number, "number", "", "Decree number (required)")
	create.Flags().StringVar(&issuedOn, "issued-on", "", "Issue date YYYY-MM-DD")
	create.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	_ = create.MarkFlagRequired("number")

	list := &cobra.Command{
		Use:   "list",
		Short: "List decrees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.ListDecrees(ctx)
			})
		},
	}

	cmd.AddCommand(create, list,
		newRegistryRemoveCmd(app, registry.KindDecree),
		newRegistryReactivateCmd(app, registry.KindDecree),
	)
	return cmd
}

func newRegistryRemoveCmd(app *cliApp, kind registry.Kind) *cobra.Command {
	var soft bool
	cmd := &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a " + string(kind) + "; --soft marks it inactive instead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				if err := svc.RemoveRegistryEntry(ctx, kind, ids[0], soft); err != nil {
					return nil, err
				}
				return map[string]any{"id": ids[0], "removed": true, "soft": soft}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&soft, "soft", false, "Mark inactive instead of deleting")
	return cmd
}

func newRegistryReactivateCmd(app *cliApp, kind registry.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate ID",
		Short: "Reactivate a soft-removed " + string(kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				if err := svc.ReactivateRegistryEntry(ctx, kind, ids[0]); err != nil {
					return nil, err
				}
				return map[string]any{"id": ids[0], "active": true}, nil
			})
		},
	}
}
