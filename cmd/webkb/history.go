package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/model"
	"github.com/nao1215/webkb/internal/report"
)

var (
	// errNoRuns is returned by "history last" on an empty history.
	errNoRuns = errors.New("no runs recorded")

	// errNoHistoryDir is returned when --db-dir is empty.
	errNoHistoryDir = errors.New("no history directory given")

	// errNotEnoughRuns is returned by "history diff" with fewer than two runs.
	errNotEnoughRuns = errors.New("at least two runs are needed to compare")
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored crawl runs",
		Long: `History lists the crawl runs stored in the history database, newest
first, as a markdown table.

Examples:
  # The ten latest runs
  webkb history --limit 10

  # The report of the latest run
  webkb history last --format markdown

  # What changed between the two latest runs
  webkb history diff`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to list (0: all)")
	cmd.AddCommand(newHistoryLastCmd(), newHistoryDiffCmd())

	return cmd
}

func newHistoryLastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Print the report of the latest run",
		Args:  cobra.NoArgs,
		RunE:  runHistoryLastCmd,
	}
	cmd.Flags().StringP("format", "f", "text", "Report format: markdown, json, text")
	return cmd
}

func newHistoryDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [older-id newer-id]",
		Short: "Compare the pages of two stored runs",
		Long: `Diff lists the pages added, removed and changed between two runs.
Without arguments the two latest runs are compared. IDs are shown by
"webkb history".`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 run IDs, received %d", len(args))
			}
			return nil
		},
		RunE: runHistoryDiffCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Print the comparison as JSON")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	if dbDir == "" {
		return errNoHistoryDir
	}
	db, err := openHistory(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	rows := make([]report.HistoryRow, len(records))
	for i, rec := range records {
		rows[i] = report.HistoryRow{ID: rec.ID, Stats: rec.Stats}
	}
	return report.WriteHistory(cmd.OutOrStdout(), rows)
}

func runHistoryLastCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	writer, err := newReportWriter(cmd.OutOrStdout(), format, getVerboseFlag(cmd))
	if err != nil {
		return err
	}

	if dbDir == "" {
		return errNoHistoryDir
	}
	db, err := openHistory(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.Latest(cmd.Context())
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w in %s", errNoRuns, db.Path())
	}
	_, err = writer.Write(run)
	return err
}

func runHistoryDiffCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	ids := make([]int64, 0, 2)
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", arg, err)
		}
		ids = append(ids, id)
	}

	if dbDir == "" {
		return errNoHistoryDir
	}
	db, err := openHistory(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if len(ids) == 0 {
		records, err := db.List(ctx, 2)
		if err != nil {
			return err
		}
		if len(records) < 2 {
			return errNotEnoughRuns
		}
		ids = append(ids, records[1].ID, records[0].ID)
	}

	runs := make([]*model.Run, 0, 2)
	for _, id := range ids {
		run, err := db.Get(ctx, id)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %d not found in %s", id, db.Path())
		}
		runs = append(runs, run)
	}
	return report.WriteDiff(cmd.OutOrStdout(), report.Diff(runs[0], runs[1]), asJSON)
}
