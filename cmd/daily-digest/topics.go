// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-digest/internal/topics"
	"github.com/pdiddy/daily-digest/pkg/types"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Show the topic a run would select, without drafting or publishing",
	Long: `Topics fetches every configured feed, applies the freshness, history,
anchor and duplicate filters, and prints the ranked survivors along with
the rejected candidates and per-source counts. Nothing is published or
recorded.`,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().Int("limit", 15, "maximum ranked candidates to print")
	topicsCmd.Flags().Bool("rejected", false, "also list rejected candidates")
	topicsCmd.Flags().Bool("json", false, "output the selection as JSON")

	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	topic, sel, err := a.selector.Select(ctx)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Topic    types.Topic       `json:"topic"`
			Ranked   []topics.Ranked   `json:"ranked"`
			Rejected []topics.Rejected `json:"rejected"`
			Fallback bool              `json:"fallback"`
			Sources  map[string]int    `json:"sources"`
		}{topic, sel.Ranked, sel.Rejected, sel.Fallback, sel.Sources.PerSource})
	}

	limit, _ := cmd.Flags().GetInt("limit")
	showRejected, _ := cmd.Flags().GetBool("rejected")
	printSelection(topic, sel, limit, showRejected)
	return nil
}

func printSelection(topic types.Topic, sel topics.Selection, limit int, showRejected bool) {
	fmt.Fprintf(os.Stdout, "Selected: %s [%s]\n", topic.Title, topic.Source)
	if sel.Fallback {
		fmt.Fprintln(os.Stdout, "(fallback topic: no candidate survived filtering)")
	}
	fmt.Fprintf(os.Stdout, "Fetched %d, fresh %d, history %d, failed sources %d\n\n",
		sel.Fetched, sel.Fresh, sel.History, sel.Sources.Failed)

	if len(sel.Ranked) > 0 {
		fmt.Fprintf(os.Stdout, "%-4s  %-7s  %-5s  %-10s  %s\n", "Rank", "Score", "Risk", "Source", "Title")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
		for i, r := range sel.Ranked {
			if limit > 0 && i >= limit {
				break
			}
			fmt.Fprintf(os.Stdout, "%-4d  %-7.2f  %-5.2f  %-10s  %s\n",
				i+1, r.Adjusted, r.Risk, r.Source, r.Title)
		}
	}

	for _, e := range sel.Sources.Errors {
		fmt.Fprintf(os.Stdout, "source %s failed: %v\n", e.Source, e.Err)
	}

	if !showRejected || len(sel.Rejected) == 0 {
		return
	}
	fmt.Fprintf(os.Stdout, "\n%d rejected:\n", len(sel.Rejected))
	for _, r := range sel.Rejected {
		detail := ""
		if r.Detail != "" {
			detail = " (" + r.Detail + ")"
		}
		fmt.Fprintf(os.Stdout, "  %-14s %s%s\n", r.Reason, r.Title, detail)
	}
}
