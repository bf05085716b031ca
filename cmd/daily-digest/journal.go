// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-digest/internal/journal"
	"github.com/pdiddy/daily-digest/pkg/types"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the local run journal",
	Long: `Journal reads the SQLite run journal: every pipeline run with its
terminal state and errors, and every published post.`,
}

// --- list subcommand ---

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runJournalList,
}

func runJournalList(cmd *cobra.Command, args []string) error {
	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context(), journalOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-26s  %-8s  %s\n", "Started", "State", "Tries", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-20s  %-26s  %-8d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.State, r.PublishAttempts, r.Title)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// --- stats subcommand ---

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize runs by terminal state",
	RunE:  runJournalStats,
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := journalOptsFromFlags(cmd)
	sum, err := store.Summary(cmd.Context(), opts.Since)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Runs:             %d\n", sum.Runs)
	fmt.Fprintf(os.Stdout, "Published:        %d\n", sum.Published)
	fmt.Fprintf(os.Stdout, "Failed:           %d\n", sum.Failed)
	fmt.Fprintf(os.Stdout, "Publish attempts: %d\n", sum.PublishAttempts)
	fmt.Fprintf(os.Stdout, "CTAs inserted:    %d\n", sum.CTAs)

	states := make([]string, 0, len(sum.ByState))
	for s := range sum.ByState {
		states = append(states, string(s))
	}
	sort.Strings(states)
	for _, s := range states {
		fmt.Fprintf(os.Stdout, "  %-26s %d\n", s, sum.ByState[types.RunState(s)])
	}
	return nil
}

// --- export subcommand ---

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs and published posts to YAML or JSON",
	Long: `Export writes the runs matching the filter flags, and the posts published
in the same period, to standard output or to --output.`,
	RunE: runJournalExport,
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != journal.FormatYAML && format != journal.FormatJSON {
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	w := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	return store.Export(cmd.Context(), w, format, journalOptsFromFlags(cmd))
}

// --- shared helpers ---

func journalOptsFromFlags(cmd *cobra.Command) journal.QueryOptions {
	days, _ := cmd.Flags().GetInt("days")
	state, _ := cmd.Flags().GetString("state")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := journal.QueryOptions{State: types.RunState(state), Limit: limit}
	if days > 0 {
		opts.Since = time.Now().AddDate(0, 0, -days)
	}
	return opts
}

func init() {
	// Shared filters, inherited by subcommands.
	journalCmd.PersistentFlags().Int("days", 7, "only runs started in the last N days (0 = all)")
	journalCmd.PersistentFlags().String("state", "", "filter by terminal state, e.g. Done or AbortedPublishFailed")
	journalCmd.PersistentFlags().Int("limit", 0, "maximum runs (0 = no limit)")

	journalListCmd.Flags().Bool("json", false, "output runs as JSON")

	journalExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	journalExportCmd.Flags().String("output", "", "write to file instead of standard output")

	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalStatsCmd)
	journalCmd.AddCommand(journalExportCmd)
	rootCmd.AddCommand(journalCmd)
}
