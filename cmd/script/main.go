package main

import (
	"context"
	"os"
	"tradejournal/api"
	"tradejournal/cmd"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/util"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ops entrypoint for things that otherwise need an http call, e.g.
//
//	script backfill resume --user u1 --entry <id> --from 2024-01-03
func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var handler *api.ApiHandler
	root := &cobra.Command{
		Use:          "script",
		Short:        "trade journal maintenance",
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			h, err := cmd.InitializeDependencies()
			if err != nil {
				return err
			}
			handler = h
			return nil
		},
		PersistentPostRun: func(c *cobra.Command, args []string) {
			if handler != nil {
				cmd.CloseDependencies(handler)
			}
		},
	}
	get := func() *api.ApiHandler { return handler }

	root.AddCommand(newBackfillCommand(get))
	root.AddCommand(newRepairCommand(get))
	root.AddCommand(newSnapshotCommand(get))
	return root
}

func commandContext() (context.Context, func()) {
	profile, endProfile := domain.NewProfile()
	ctx := logger.WithLogger(context.Background(), logger.New())
	return domain.WithProfile(ctx, profile), endProfile
}

func newBackfillCommand(handler func() *api.ApiHandler) *cobra.Command {
	backfill := &cobra.Command{
		Use:   "backfill",
		Short: "backfill walks",
	}

	var userID, entryID, from string
	resume := &cobra.Command{
		Use:   "resume",
		Short: "rerun a failed walk from the date it stopped on",
		RunE: func(c *cobra.Command, args []string) error {
			id, err := uuid.Parse(entryID)
			if err != nil {
				return err
			}
			ctx, end := commandContext()
			defer end()
			walk, err := handler().TradingService.ResumeBackfill(ctx, userID, id, from)
			if err != nil {
				return err
			}
			util.Pprint(walk)
			return nil
		},
	}
	resume.Flags().StringVar(&userID, "user", "", "user id")
	resume.Flags().StringVar(&entryID, "entry", "", "journal entry id")
	resume.Flags().StringVar(&from, "from", "", "first date to rewrite, YYYY-MM-DD")
	_ = resume.MarkFlagRequired("user")
	_ = resume.MarkFlagRequired("entry")
	_ = resume.MarkFlagRequired("from")

	backfill.AddCommand(resume)
	return backfill
}

func newRepairCommand(handler func() *api.ApiHandler) *cobra.Command {
	var userID string
	repair := &cobra.Command{
		Use:   "repair",
		Short: "retry queued prices for one user, or everyone",
		RunE: func(c *cobra.Command, args []string) error {
			ctx, end := commandContext()
			defer end()
			if userID == "" {
				result, err := handler().PriceRepairApp.RunOnce(ctx)
				if result != nil {
					util.Pprint(result)
				}
				return err
			}
			result, err := handler().PriceRepairService.RepairUser(ctx, userID)
			if err != nil {
				return err
			}
			util.Pprint(result)
			return nil
		},
	}
	repair.Flags().StringVar(&userID, "user", "", "user id, empty for every queued user")
	return repair
}

func newSnapshotCommand(handler func() *api.ApiHandler) *cobra.Command {
	var userID, start, end string
	var live, csv bool
	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "print a user's snapshots, filling gaps",
		RunE: func(c *cobra.Command, args []string) error {
			ctx, endProfile := commandContext()
			defer endProfile()
			h := handler()
			if live {
				s, err := h.LiveSnapshotService.Refresh(ctx, userID)
				if err != nil {
					return err
				}
				util.Pprint(s)
				return nil
			}
			if csv {
				out, err := h.ExportService.SnapshotsCSV(ctx, userID, start, end)
				if err != nil {
					return err
				}
				_, err = c.OutOrStdout().Write(out)
				return err
			}
			series, err := h.ExportService.SnapshotSeries(ctx, userID, start, end)
			if err != nil {
				return err
			}
			util.Pprint(series)
			return nil
		},
	}
	snapshot.Flags().StringVar(&userID, "user", "", "user id")
	snapshot.Flags().StringVar(&start, "start", "", "first date, empty for the first trade")
	snapshot.Flags().StringVar(&end, "end", "", "last date, empty for yesterday")
	snapshot.Flags().BoolVar(&live, "live", false, "recompute today instead")
	snapshot.Flags().BoolVar(&csv, "csv", false, "print csv")
	_ = snapshot.MarkFlagRequired("user")
	return snapshot
}
