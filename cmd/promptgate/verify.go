package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/promptgate/internal/retention"
)

var originalPath string

func init() {
	verifyCmd.Flags().StringVar(&factsPath, "facts", "", "YAML file of facts the prompt must keep (required)")
	verifyCmd.Flags().StringVar(&originalPath, "original", "", "uncompressed prompt; facts absent from it are not scored")
	verifyCmd.Flags().StringVar(&outputPath, "out", "", "write the YAML report to this file instead of stdout")
	_ = verifyCmd.MarkFlagRequired("facts")
}

// verifyCmd checks a compressed prompt for fact retention
var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Check that a compressed prompt kept its facts",
	Long: `Check a compressed prompt from a file or stdin against the facts in --facts.

With --original, facts missing from the original prompt are reported as
warnings and left out of the retention score. Without it every fact is scored.

Examples:
  # Verify against the uncompressed prompt
  promptgate verify --facts facts.yaml --original prompt.txt compressed.txt

  # Verify every fact is present
  promptgate verify --facts facts.yaml compressed.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	compressed, err := readInput(cmd, args)
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

	var report *retention.Report
	var verifyErr error
	if originalPath != "" {
		original, err := os.ReadFile(originalPath)
		if err != nil {
			return fmt.Errorf("failed to read original %s: %w", originalPath, err)
		}
		report, verifyErr = rt.services.Retention().Verify(ctx, string(original), compressed, set)
	} else {
		report, verifyErr = rt.services.Retention().VerifyFields(ctx, compressed, set)
	}
	if verifyErr != nil && !errors.Is(verifyErr, retention.ErrDataLoss) {
		return verifyErr
	}

	if err := writeOutput(cmd, outputPath, report); err != nil {
		return err
	}
	return verifyErr
}
