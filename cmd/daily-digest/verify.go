// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file.html>",
	Short: "Verify an article's code snippets and topic",
	Long: `Verify runs the verification engine over an HTML article: Python code
blocks are parsed and the first snippets executed in the configured sandbox,
and the topic is corroborated through the configured search backends. Use
"-" to read the article from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("topic", "", "topic to corroborate (skipped when empty)")
	verifyCmd.Flags().Bool("json", false, "output the outcome as JSON")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var (
		content []byte
		err     error
	)
	if args[0] == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading article: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	topic, _ := cmd.Flags().GetString("topic")
	out := a.verifier.Verify(ctx, string(content), topic)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(os.Stdout, "Passed:   %t\n", out.Passed)
		fmt.Fprintf(os.Stdout, "Executed: %d, skipped: %d\n", out.Executed, out.Skipped)
		if out.Corroboration != "" {
			fmt.Fprintf(os.Stdout, "Evidence: %s\n", out.Corroboration)
		}
		for _, e := range out.Errors {
			fmt.Fprintf(os.Stdout, "  - %s\n", e)
		}
	}

	if !out.Passed {
		return fmt.Errorf("verification failed with %d error(s)", len(out.Errors))
	}
	return nil
}
