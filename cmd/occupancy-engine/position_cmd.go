package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

func newPositionCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Manage positions and their substitution chains",
	}
	cmd.AddCommand(
		newPositionListCmd(app),
		newPositionCreateCmd(app),
		newPositionUpdateCmd(app),
		newPositionDeleteCmd(app),
		newPositionReactivateCmd(app),
		newPositionImportCmd(app),
	)
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, withCode(exitUsage, fmt.Errorf("invalid id %q", a))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newPositionListCmd(app *cliApp) *cobra.Command {
	var organizationID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List positions, optionally of one organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.ListPositions(ctx, optionalID(organizationID))
			})
		},
	}
	cmd.Flags().Int64Var(&organizationID, "organization", 0, "Organization id filter")
	return cmd
}

func newPositionCreateCmd(app *cliApp) *cobra.Command {
	var (
		in             services.CreatePositionInput
		exclusive      bool
		substitutesFor int64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a position, optionally as the substitute of another",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Exclusive = &exclusive
			in.SubstitutesFor = optionalID(substitutesFor)
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.CreatePosition(ctx, in)
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Position name (required)")
	cmd.Flags().Int64Var(&in.OrganizationID, "organization", 0, "Organization id (required)")
	cmd.Flags().BoolVar(&exclusive, "exclusive", true, "Whether only one person may hold the position at a time")
	cmd.Flags().Int64Var(&substitutesFor, "substitutes-for", 0, "Principal position id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("organization")
	return cmd
}

func newPositionUpdateCmd(app *cliApp) *cobra.Command {
	var (
		name           string
		organizationID int64
		substitutesFor int64
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename, move or relink a position (--substitutes-for 0 unlinks)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			var in services.UpdatePositionInput
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("organization") {
				in.OrganizationID = &organizationID
			}
			if cmd.Flags().Changed("substitutes-for") {
				in.SubstitutesFor = &substitutesFor
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.UpdatePosition(ctx, ids[0], in)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().Int64Var(&organizationID, "organization", 0, "New organization id")
	cmd.Flags().Int64Var(&substitutesFor, "substitutes-for", 0, "New principal position id, 0 to unlink")
	return cmd
}

func newPositionDeleteCmd(app *cliApp) *cobra.Command {
	var soft, force bool
	cmd := &cobra.Command{
		Use:   "delete ID [ID...]",
		Short: "Delete positions with the chain below them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				if len(ids) == 1 {
					affected, err := svc.DeletePosition(ctx, ids[0], soft, force)
					return map[string][]int64{"ids": affected}, err
				}
				return svc.DeletePositions(ctx, ids, soft, force)
			})
		},
	}
	cmd.Flags().BoolVar(&soft, "soft", false, "Mark inactive instead of deleting")
	cmd.Flags().BoolVar(&force, "force", false, "Also delete occupancies of the removed positions")
	return cmd
}

func newPositionReactivateCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate ID [ID...]",
		Short: "Reactivate positions and their inactive principals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				if len(ids) == 1 {
					affected, err := svc.ReactivatePosition(ctx, ids[0])
					return map[string][]int64{"ids": affected}, err
				}
				return svc.ReactivatePositions(ctx, ids)
			})
		},
	}
}

// positionImport is the document accepted by `position import`.
type positionImport struct {
	Positions []services.CreatePositionInput `yaml:"positions"`
}

func readPositionImport(r io.Reader) ([]services.CreatePositionInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc positionImport
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, withCode(exitValidation, fmt.Errorf("import file is empty"))
		}
		return nil, withCode(exitValidation, fmt.Errorf("parse import file: %w", err))
	}
	if len(doc.Positions) == 0 {
		return nil, withCode(exitValidation, fmt.Errorf("import file lists no positions"))
	}
	return doc.Positions, nil
}

func newPositionImportCmd(app *cliApp) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create positions in bulk from a YAML file; each item commits on its own",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return withCode(exitUsage, err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			batch, err := readPositionImport(r)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.CreatePositions(ctx, batch)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with a positions list, - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
