package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/promptgate/internal/retention"
	"github.com/fyrsmithlabs/promptgate/internal/scrub"
)

var (
	factsPath  string
	outputPath string
)

func init() {
	optimizeCmd.Flags().StringVar(&factsPath, "facts", "", "YAML file of facts the prompt must keep")
	optimizeCmd.Flags().StringVar(&outputPath, "out", "", "write the YAML result to this file instead of stdout")
}

// optimizeCmd compresses a prompt to the configured budget
var optimizeCmd = &cobra.Command{
	Use:   "optimize [file]",
	Short: "Compress a prompt to the length budget and check fact retention",
	Long: `Compress a prompt from a file or stdin to the configured compression budget,
then verify that every fact in --facts survived.

Credentials matching the scrub rules are redacted from the written text.
The result is written even when retention fails; the command then exits
non-zero unless retention.advisory is set.

Examples:
  # Compress a prompt file
  promptgate optimize --facts facts.yaml prompt.txt

  # Compress from stdin
  cat prompt.txt | promptgate optimize -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOptimize,
}

// optimizeOutput is the YAML document optimize writes.
type optimizeOutput struct {
	Text           string            `yaml:"text"`
	OriginalLength int               `yaml:"original_length"`
	FinalLength    int               `yaml:"final_length"`
	Ratio          float64           `yaml:"ratio"`
	Strategies     []string          `yaml:"strategies"`
	Retention      *retention.Report `yaml:"retention"`
	Redactions     []scrub.Finding   `yaml:"redactions,omitempty"`
}

func runOptimize(cmd *cobra.Command, args []string) error {
	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	set, _, err := loadFacts(factsPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	result, err := rt.services.Compression().Optimize(ctx, input, rt.budget, set.Facts())
	if err != nil {
		return fmt.Errorf("optimizing prompt: %w", err)
	}
	report, verifyErr := rt.services.Retention().Verify(ctx, input, result.Text, set)
	if verifyErr != nil && !errors.Is(verifyErr, retention.ErrDataLoss) {
		return verifyErr
	}

	scrubbed := rt.scrubber.Scrub(result.Text)
	out := optimizeOutput{
		Text:           scrubbed.Text,
		OriginalLength: result.OriginalLength,
		FinalLength:    result.FinalLength,
		Ratio:          result.Ratio(),
		Strategies:     result.StrategyNames(),
		Retention:      report,
		Redactions:     scrubbed.Findings,
	}
	if err := writeOutput(cmd, outputPath, out); err != nil {
		return err
	}
	return verifyErr
}
