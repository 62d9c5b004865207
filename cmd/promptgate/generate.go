package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/llm"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
	"github.com/fyrsmithlabs/promptgate/internal/pipeline"
	"github.com/fyrsmithlabs/promptgate/internal/prompt"
	"github.com/fyrsmithlabs/promptgate/internal/regeneration"
	"github.com/fyrsmithlabs/promptgate/internal/services"
)

// maxSubjectBytes bounds --subject, which also seeds the regenerator.
const maxSubjectBytes = 256

var (
	templateName string
	varsPath     string
	subject      string
	metricsAddr  string
	itemCount    int
)

func init() {
	generateCmd.Flags().StringVar(&templateName, "template", "", "prompt template name under templates.dir (required)")
	generateCmd.Flags().StringVar(&varsPath, "vars", "", "YAML file of template variables")
	generateCmd.Flags().StringVar(&personaName, "persona", "", "persona to write in")
	generateCmd.Flags().StringVar(&factsPath, "facts", "", "YAML file of facts and research the prompt must keep")
	generateCmd.Flags().StringSliceVar(&siblingPaths, "siblings", nil, "previously accepted items compared for cross-item variation")
	generateCmd.Flags().StringVar(&subject, "subject", "", "subject being written about; seeds target lengths (default: template name)")
	generateCmd.Flags().StringVar(&outputPath, "out", "", "write the YAML session to this file instead of stdout")
	generateCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while generating")
	generateCmd.Flags().IntVar(&itemCount, "count", 1, "number of items to generate; each kept item becomes a sibling of the next")
	_ = generateCmd.MarkFlagRequired("template")
}

// generateCmd runs a quality-gated regeneration session
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate content until it clears the configured quality gates",
	Long: `Render a prompt template, compress it to the budget, verify fact retention
and call the configured LLM. Each attempt is scored and the session stops at
the first attempt that satisfies every enabled requirement; otherwise the
best-scoring attempt is kept.

The session record, including every attempt and its scores, is written as YAML.
With --count N, N items are generated in sequence and written as a YAML list.
Each kept item joins the sibling set, so later items are scored for variation
against earlier ones.

Examples:
  # Generate a description in the technical persona
  promptgate generate --template description --vars vars.yaml \
    --persona technical --facts research.yaml --subject "aluminum rust removal"

  # Expose regeneration metrics while the session runs
  promptgate generate --template description --metrics-addr :9091`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

// generateOutput is the YAML document generate writes. Content is the
// accepted attempt when one cleared every gate, otherwise the best-scoring one.
type generateOutput struct {
	Subject string                `yaml:"subject"`
	Content string                `yaml:"content,omitempty"`
	Session *regeneration.Session `yaml:"session"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	vars, err := loadVars(varsPath)
	if err != nil {
		return err
	}
	set, research, err := loadFacts(factsPath)
	if err != nil {
		return err
	}
	siblings, err := readFiles(siblingPaths)
	if err != nil {
		return err
	}
	if subject == "" {
		subject = templateName
	}
	if len(subject) > maxSubjectBytes || !utf8.ValidString(subject) {
		return fmt.Errorf("subject must be valid UTF-8 of at most %d bytes", maxSubjectBytes)
	}
	if itemCount < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", itemCount)
	}

	ctx := logging.WithSubject(cmd.Context(), subject)
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	reg, err := newGenerationRegistry(ctx, rt, research, siblings)
	if err != nil {
		return err
	}
	defer reg.Templates().Close()

	persona, err := resolvePersona(reg.Personas(), personaName)
	if err != nil {
		return err
	}

	gen, err := pipeline.New(pipeline.Options{
		Template:   templateName,
		Vars:       vars,
		Persona:    persona,
		Facts:      set,
		Budget:     rt.budget,
		Assembler:  reg.Assembler(),
		Compressor: reg.Compression(),
		Verifier:   reg.Retention(),
		Client:     reg.LLM(),
		Logger:     rt.logger.Named("pipeline"),
		Scrubber:   rt.scrubber,
	})
	if err != nil {
		return err
	}

	requirements, err := regeneration.FromToggles(rt.cfg.Requirements,
		rt.cfg.Generation.QualityThreshold, rt.cfg.Generation.MinVoiceAuthenticity)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		stop := serveMetrics(rt, metricsAddr)
		defer stop()
	}

	rt.logger.Info(ctx, "generation started",
		zap.String("template", templateName),
		zap.String("persona", personaName),
		zap.Int("facts", set.Len()),
		zap.Strings("gates", gateStrings(requirements.Gates)),
	)

	outs := make([]generateOutput, 0, itemCount)
	var runErr error
	for item := 1; item <= itemCount; item++ {
		itemCtx := ctx
		if itemCount > 1 {
			itemCtx = logging.WithItem(ctx, item)
		}
		session, err := reg.Regenerator().Run(itemCtx, gen.Generate, reg.Evaluator().Evaluate,
			requirements, rt.cfg.Generation.MaxRegenerationAttempts)
		if session == nil {
			return err
		}

		out := generateOutput{Subject: subject, Session: session}
		if w := session.Winner(); w != nil {
			out.Content = w.Content
			reg.Evaluator().Observe(w.Content)
		}
		outs = append(outs, out)
		if err != nil {
			runErr = err
			break
		}
	}

	var doc interface{} = outs
	if itemCount == 1 {
		doc = outs[0]
	}
	if err := writeOutput(cmd, outputPath, doc); err != nil {
		return err
	}
	return runErr
}

// newGenerationRegistry builds the full service set for one subject. The
// evaluator carries the persona's voice markers and the research patterns,
// and the regenerator is seeded from the subject.
func newGenerationRegistry(ctx context.Context, rt *runtime, research *facts.Research, siblings []string) (services.Registry, error) {
	templates, err := prompt.NewCache(rt.cfg.Templates.Dir, prompt.WithLogger(rt.logger.Named("templates")))
	if err != nil {
		return nil, err
	}
	if rt.cfg.Templates.Watch {
		if err := templates.Watch(ctx); err != nil {
			rt.logger.Warn(ctx, "template watch unavailable", zap.Error(err))
		}
	}

	profiles, err := loadProfiles(rt.cfg)
	if err != nil {
		_ = templates.Close()
		return nil, err
	}
	persona, err := resolvePersona(profiles, personaName)
	if err != nil {
		_ = templates.Close()
		return nil, err
	}

	evaluator, err := newEvaluator(rt, persona, research, siblings)
	if err != nil {
		_ = templates.Close()
		return nil, err
	}

	regenerator, err := regeneration.NewRegenerator(
		regenerationConfig(rt.cfg, regeneration.SeedFromSubject(subject)),
		regeneration.WithLogger(rt.logger.Named("regeneration")),
		regeneration.WithMetrics(regeneration.NewMetrics(rt.metrics)),
		regeneration.WithTracerProvider(rt.telemetry.TracerProvider()),
	)
	if err != nil {
		_ = templates.Close()
		return nil, err
	}

	client, err := llm.New(llm.FromConfig(rt.cfg.LLM, rt.cfg.Compression.HardLimit),
		llm.WithLogger(rt.logger.Named("llm")))
	if err != nil {
		_ = templates.Close()
		return nil, fmt.Errorf("initializing llm client: %w", err)
	}

	return services.NewRegistry(services.Options{
		Compression: rt.services.Compression(),
		Retention:   rt.services.Retention(),
		Regenerator: regenerator,
		Evaluator:   evaluator,
		Templates:   templates,
		Personas:    profiles,
		LLM:         client,
	}), nil
}

// serveMetrics exposes the runtime's Prometheus registry on addr until the
// returned stop function is called.
func serveMetrics(rt *runtime, addr string) func() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(rt.metrics, promhttp.HandlerOpts{})))

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error(context.Background(), "metrics server failed", zap.Error(err))
		}
	}()
	rt.logger.Info(context.Background(), "serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	}
}

func gateStrings(gs []regeneration.Gate) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = string(g)
	}
	return out
}
