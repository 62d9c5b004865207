package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/promptgate/internal/evaluation"
	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/prompt"
	"github.com/fyrsmithlabs/promptgate/internal/regeneration"
)

var (
	personaName  string
	siblingPaths []string
)

func init() {
	evaluateCmd.Flags().StringVar(&personaName, "persona", "", "persona whose voice markers and forbidden phrases apply")
	evaluateCmd.Flags().StringVar(&factsPath, "facts", "", "YAML facts file; research patterns are scored")
	evaluateCmd.Flags().StringSliceVar(&siblingPaths, "siblings", nil, "previously accepted items compared for cross-item variation")
	evaluateCmd.Flags().StringVar(&outputPath, "out", "", "write the YAML scores to this file instead of stdout")
}

// evaluateCmd scores content without generating anything
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [file]",
	Short: "Score content against the configured quality gates",
	Long: `Score content from a file or stdin the way generate scores each attempt,
and report which requirement gates it fails.

Examples:
  # Score a draft in the technical persona's voice
  promptgate evaluate --persona technical --siblings a.md,b.md draft.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

// evaluateOutput is the YAML document evaluate writes.
type evaluateOutput struct {
	Scores    regeneration.ScoreBundle `yaml:"scores"`
	Satisfied bool                     `yaml:"satisfied"`
	Failing   []regeneration.Gate      `yaml:"failing,omitempty"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	content, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	_, research, err := loadFacts(factsPath)
	if err != nil {
		return err
	}
	siblings, err := readFiles(siblingPaths)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	profiles, err := loadProfiles(rt.cfg)
	if err != nil {
		return err
	}
	persona, err := resolvePersona(profiles, personaName)
	if err != nil {
		return err
	}
	evaluator, err := newEvaluator(rt, persona, research, siblings)
	if err != nil {
		return err
	}
	requirements, err := regeneration.FromToggles(rt.cfg.Requirements,
		rt.cfg.Generation.QualityThreshold, rt.cfg.Generation.MinVoiceAuthenticity)
	if err != nil {
		return err
	}

	bundle := evaluator.Evaluate(ctx, content)
	return writeOutput(cmd, outputPath, evaluateOutput{
		Scores:    bundle,
		Satisfied: requirements.Satisfied(bundle),
		Failing:   requirements.Failing(bundle),
	})
}

// newEvaluator builds the scoring oracle for one subject.
func newEvaluator(rt *runtime, persona *prompt.Persona, research *facts.Research, siblings []string) (*evaluation.Evaluator, error) {
	var patterns []string
	if research != nil {
		patterns = research.Patterns
	}
	ec, err := evaluationConfig(rt.cfg, persona, patterns)
	if err != nil {
		return nil, err
	}
	evaluator, err := evaluation.New(ec,
		evaluation.WithLogger(rt.logger.Named("evaluation")),
		evaluation.WithSiblings(siblings...),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing evaluator: %w", err)
	}
	return evaluator, nil
}
