// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-digest/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:     "run-once",
	Aliases: []string{"daily", "run"},
	Short:   "Select a topic, draft, verify and publish one article",
	Long: `Run-once executes one publication: it picks a fresh topic from the configured
feeds, drafts the article, verifies its code and subject (regenerating once
on failure), renders the cover, inserts CTAs and publishes to Ghost.

Without Ghost credentials the run stops after asset preparation. The run is
recorded in the journal either way.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("json", false, "print the run record as JSON")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, runErr := a.runOnce(ctx)
	if res.RunID != "" {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := printResult(res, jsonOutput); err != nil {
			return err
		}
	}
	return runErr
}

func printResult(res orchestrator.Result, jsonOutput bool) error {
	rec := res.Record()
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Fprintf(os.Stdout, "Run:      %s\n", rec.ID)
	fmt.Fprintf(os.Stdout, "State:    %s\n", rec.State)
	fmt.Fprintf(os.Stdout, "Title:    %s\n", rec.Title)
	fmt.Fprintf(os.Stdout, "Source:   %s\n", rec.Source)
	if rec.PostURL != "" {
		fmt.Fprintf(os.Stdout, "Post:     %s\n", rec.PostURL)
	}
	fmt.Fprintf(os.Stdout, "Attempts: %d\n", rec.PublishAttempts)
	fmt.Fprintf(os.Stdout, "CTAs:     %d\n", rec.CTAs)
	for _, e := range rec.Errors {
		fmt.Fprintf(os.Stdout, "  - %s\n", e)
	}
	return nil
}

// signalContext ends on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
