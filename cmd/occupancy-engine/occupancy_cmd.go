package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

func newOccupancyCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "occupancy",
		Short: "Admit, replace, remove and finalize occupancies",
	}
	cmd.AddCommand(
		newOccupancyListCmd(app),
		newOccupancyCreateCmd(app),
		newOccupancyUpdateCmd(app),
		newOccupancyDeleteCmd(app),
		newOccupancyFinalizeCmd(app),
	)
	return cmd
}

func newOccupancyListCmd(app *cliApp) *cobra.Command {
	var positionID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the occupancies of a position in term order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.ListOccupancies(ctx, positionID)
			})
		},
	}
	cmd.Flags().Int64Var(&positionID, "position", 0, "Position id (required)")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

type occupancyFlags struct {
	personID   int64
	positionID int64
	decreeID   int64
	start      string
	end        string
	notes      string
	policy     string
}

func (f *occupancyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.personID, "person", 0, "Person id (required)")
	cmd.Flags().Int64Var(&f.positionID, "position", 0, "Position id (required)")
	cmd.Flags().Int64Var(&f.decreeID, "decree", 0, "Decree id")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date YYYY-MM-DD, empty for an open past")
	cmd.Flags().StringVar(&f.end, "end", "", "End date YYYY-MM-DD, empty for an ongoing tenure")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("person")
	_ = cmd.MarkFlagRequired("position")
}

func (f *occupancyFlags) input() (services.CreateOccupancyInput, error) {
	start, err := optionalDate(f.start)
	if err != nil {
		return services.CreateOccupancyInput{}, err
	}
	end, err := optionalDate(f.end)
	if err != nil {
		return services.CreateOccupancyInput{}, err
	}
	return services.CreateOccupancyInput{
		PersonID:   f.personID,
		PositionID: f.positionID,
		DecreeID:   optionalID(f.decreeID),
		StartDate:  start,
		EndDate:    end,
		Notes:      f.notes,
		Policy:     services.ConflictPolicy(f.policy),
	}, nil
}

func newOccupancyCreateCmd(app *cliApp) *cobra.Command {
	var flags occupancyFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Admit a new occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input()
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.CreateOccupancy(ctx, in)
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&flags.policy, "policy", "", "Conflict policy for this admission (reject|defer)")
	return cmd
}

func newOccupancyUpdateCmd(app *cliApp) *cobra.Command {
	var flags occupancyFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace an occupancy; the replacement gets a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			in, err := flags.input()
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.UpdateOccupancy(ctx, ids[0], in)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newOccupancyDeleteCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID [ID...]",
		Short: "Remove occupancies; several ids are removed all-or-nothing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				if len(ids) == 1 {
					removed, err := svc.DeleteOccupancy(ctx, ids[0])
					return map[string][]int64{"ids": removed}, err
				}
				removed, err := svc.DeleteOccupancies(ctx, ids)
				return map[string][]int64{"ids": removed}, err
			})
		},
	}
}

func newOccupancyFinalizeCmd(app *cliApp) *cobra.Command {
	var (
		end             string
		definitive      bool
		successionStart string
		successionEnd   string
	)
	cmd := &cobra.Command{
		Use:   "finalize ID",
		Short: "End an occupancy and promote the substitution chain below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			endDate, err := parseDateUTC(end)
			if err != nil {
				return err
			}
			start, err := optionalDate(successionStart)
			if err != nil {
				return err
			}
			stop, err := optionalDate(successionEnd)
			if err != nil {
				return err
			}
			if definitive && (start != nil || stop != nil) {
				return withCode(exitUsage, fmt.Errorf("--definitive takes no succession dates"))
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.FinalizeOccupancy(ctx, services.FinalizeInput{
					OccupancyID:     ids[0],
					Definitive:      definitive,
					EndDate:         endDate,
					SuccessionStart: start,
					SuccessionEnd:   stop,
				})
			})
		},
	}
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD (required)")
	cmd.Flags().BoolVar(&definitive, "definitive", false, "Close the chain without promoting substitutes")
	cmd.Flags().StringVar(&successionStart, "succession-start", "", "Start of the promoted occupancies, defaults to --end")
	cmd.Flags().StringVar(&successionEnd, "succession-end", "", "End of the promoted occupancies")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newEligibilityCmd(app *cliApp) *cobra.Command {
	var (
		personID   int64
		positionID int64
		start      string
		end        string
	)
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Check whether a person could hold a position without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDateUTC(start)
			if err != nil {
				return err
			}
			endDate, err := optionalDate(end)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, svc *services.OccupancyService) (any, error) {
				return svc.CheckEligibility(ctx, services.EligibilityInput{
					PersonID:   personID,
					PositionID: positionID,
					StartDate:  &startDate,
					EndDate:    endDate,
				})
			})
		},
	}
	cmd.Flags().Int64Var(&personID, "person", 0, "Person id (required)")
	cmd.Flags().Int64Var(&positionID, "position", 0, "Position id (required)")
	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("person")
	_ = cmd.MarkFlagRequired("position")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}
