// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Build and mail the weekly publication report",
	Long: `Weekly summarizes the last seven days: publications, newsletter opens,
the top and best-read articles, CTA click-through, and pipeline runs from the
journal. The report is mailed over SMTP when configured and always printed.`,
	RunE: runWeekly,
}

func init() {
	weeklyCmd.Flags().Bool("json", false, "print the report as JSON")

	rootCmd.AddCommand(weeklyCmd)
}

func runWeekly(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, body, err := a.weekly(ctx, time.Now())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Print(body)
	return nil
}
