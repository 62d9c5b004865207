// Package pipeline turns a prompt template into generated content: render,
// compress to the length budget, verify fact retention, then call the LLM.
//
// Generator.Generate has the regeneration.GenerateFunc signature, so a
// Generator plugs straight into Regenerator.Run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/compression"
	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/llm"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
	"github.com/fyrsmithlabs/promptgate/internal/prompt"
	"github.com/fyrsmithlabs/promptgate/internal/regeneration"
	"github.com/fyrsmithlabs/promptgate/internal/retention"
	"github.com/fyrsmithlabs/promptgate/internal/scrub"
)

// Template variables set by the generator. They override caller vars.
const (
	VarTargetWords = "target_words"
	VarAttempt     = "attempt"
	VarPersona     = "persona"
	VarFacts       = "facts"
)

// ErrMissingDependency is returned when Options lacks a required collaborator.
var ErrMissingDependency = errors.New("pipeline: missing dependency")

// Options configures a Generator.
type Options struct {
	// Template is the template name rendered for every attempt.
	Template string

	// Vars are passed to the template on every attempt.
	Vars map[string]interface{}

	// Persona, when set, is exposed to the template as {{.persona}}.
	Persona *prompt.Persona

	Facts  facts.FactSet
	Budget compression.Budget

	Assembler  *prompt.Assembler
	Compressor *compression.Service
	Verifier   *retention.Verifier
	Client     llm.Client
	Logger     *logging.Logger

	// Scrubber, when set, redacts credentials from the compressed prompt
	// before it is sent.
	Scrubber *scrub.Scrubber
}

// Prepared is a prompt ready to send.
type Prepared struct {
	Rendered    string
	Compression *compression.Result
	Retention   *retention.Report
	Scrub       scrub.Result

	// Recompressed is set when redaction markers pushed the prompt past the
	// hard limit and the scrubbed text was compressed again.
	Recompressed *compression.Result
}

// Prompt returns the text sent to the model.
func (p *Prepared) Prompt() string {
	switch {
	case p.Recompressed != nil:
		return p.Recompressed.Text
	case p.Scrub.Redacted():
		return p.Scrub.Text
	}
	return p.Compression.Text
}

// Generator produces content for one subject.
type Generator struct {
	opts   Options
	logger *logging.Logger
}

// New creates a Generator.
func New(opts Options) (*Generator, error) {
	switch {
	case opts.Template == "":
		return nil, fmt.Errorf("%w: template name", ErrMissingDependency)
	case opts.Assembler == nil:
		return nil, fmt.Errorf("%w: assembler", ErrMissingDependency)
	case opts.Compressor == nil:
		return nil, fmt.Errorf("%w: compressor", ErrMissingDependency)
	case opts.Verifier == nil:
		return nil, fmt.Errorf("%w: verifier", ErrMissingDependency)
	case opts.Client == nil:
		return nil, fmt.Errorf("%w: llm client", ErrMissingDependency)
	}
	if opts.Budget == (compression.Budget{}) {
		return nil, fmt.Errorf("%w: compression budget", ErrMissingDependency)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{opts: opts, logger: logger}, nil
}

// Prepare renders the template for targetWords, compresses it and verifies
// the compressed prompt kept its facts. A *retention.DataLossError is
// returned together with the Prepared prompt when retention fails.
func (g *Generator) Prepare(ctx context.Context, attemptIndex, targetWords int) (*Prepared, error) {
	rendered, err := g.opts.Assembler.Assemble(g.opts.Template, g.vars(attemptIndex, targetWords))
	if err != nil {
		return nil, fmt.Errorf("assembling prompt: %w", err)
	}

	result, err := g.opts.Compressor.Optimize(ctx, rendered, g.opts.Budget, g.opts.Facts.Facts())
	if err != nil {
		return nil, fmt.Errorf("optimizing prompt: %w", err)
	}

	p := &Prepared{Rendered: rendered, Compression: result, Scrub: g.opts.Scrubber.Scrub(result.Text)}
	if p.Scrub.Redacted() {
		g.logger.Warn(ctx, "credentials redacted from prompt",
			zap.Int("redactions", len(p.Scrub.Findings)),
			zap.Strings("rules", p.Scrub.RuleIDs()),
		)
		if n := utf8.RuneCountInString(p.Scrub.Text); n > g.opts.Budget.HardLimit() {
			again, err := g.opts.Compressor.Optimize(ctx, p.Scrub.Text, g.opts.Budget, g.opts.Facts.Facts())
			if err != nil {
				return nil, fmt.Errorf("optimizing scrubbed prompt: %w", err)
			}
			g.logger.Warn(ctx, "scrubbed prompt exceeded hard limit, compressed again",
				zap.Int("scrubbed_length", n),
				zap.Int("final_length", again.FinalLength),
			)
			p.Recompressed = again
		}
	}
	report, err := g.opts.Verifier.Verify(ctx, rendered, result.Text, g.opts.Facts)
	p.Retention = report
	if err != nil {
		return p, err
	}
	return p, nil
}

// Generate implements regeneration.GenerateFunc.
func (g *Generator) Generate(ctx context.Context, attemptIndex, targetWords int) (string, error) {
	p, err := g.Prepare(ctx, attemptIndex, targetWords)
	if err != nil {
		return "", err
	}

	g.logger.Debug(ctx, "prompt prepared",
		zap.Int("target_words", targetWords),
		zap.Int("prompt_length", utf8.RuneCountInString(p.Prompt())),
		zap.Strings("strategies", p.Compression.StrategyNames()),
		zap.Float64("retention_score", p.Retention.RetentionScore),
	)

	content, err := g.opts.Client.Complete(ctx, p.Prompt())
	if err != nil {
		return "", fmt.Errorf("completing prompt: %w", err)
	}
	return content, nil
}

// vars copies the caller vars and adds the per-attempt values.
func (g *Generator) vars(attemptIndex, targetWords int) map[string]interface{} {
	vars := make(map[string]interface{}, len(g.opts.Vars)+4)
	for k, v := range g.opts.Vars {
		vars[k] = v
	}
	vars[VarTargetWords] = targetWords
	vars[VarAttempt] = attemptIndex + 1
	if g.opts.Persona != nil {
		vars[VarPersona] = *g.opts.Persona
	} else if _, ok := vars[VarPersona]; !ok {
		// Present but nil so {{if .persona}} works under missingkey=error.
		vars[VarPersona] = nil
	}
	if _, ok := vars[VarFacts]; !ok {
		names := make([]string, 0, g.opts.Facts.Len())
		for _, f := range g.opts.Facts.Facts() {
			names = append(names, f.Name)
		}
		vars[VarFacts] = names
	}
	return vars
}

var _ regeneration.GenerateFunc = (*Generator)(nil).Generate
