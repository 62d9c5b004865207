package services

import (
	"github.com/fyrsmithlabs/promptgate/internal/compression"
	"github.com/fyrsmithlabs/promptgate/internal/evaluation"
	"github.com/fyrsmithlabs/promptgate/internal/llm"
	"github.com/fyrsmithlabs/promptgate/internal/prompt"
	"github.com/fyrsmithlabs/promptgate/internal/regeneration"
	"github.com/fyrsmithlabs/promptgate/internal/retention"
)

// Registry provides access to all promptgate services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Compression() *compression.Service
	Retention() *retention.Verifier
	Regenerator() *regeneration.Regenerator
	Evaluator() *evaluation.Evaluator
	Templates() *prompt.Cache
	Assembler() *prompt.Assembler
	Personas() *prompt.Profiles
	LLM() llm.Client
}

// Options configures the registry with service instances.
type Options struct {
	Compression *compression.Service
	Retention   *retention.Verifier
	Regenerator *regeneration.Regenerator
	Evaluator   *evaluation.Evaluator
	Templates   *prompt.Cache
	Personas    *prompt.Profiles
	LLM         llm.Client
}

// registry is the concrete implementation of Registry.
type registry struct {
	compression *compression.Service
	retention   *retention.Verifier
	regenerator *regeneration.Regenerator
	evaluator   *evaluation.Evaluator
	templates   *prompt.Cache
	assembler   *prompt.Assembler
	personas    *prompt.Profiles
	llm         llm.Client
}

// NewRegistry creates a new service registry. An assembler is derived from
// the template cache when one is set.
func NewRegistry(opts Options) Registry {
	r := &registry{
		compression: opts.Compression,
		retention:   opts.Retention,
		regenerator: opts.Regenerator,
		evaluator:   opts.Evaluator,
		templates:   opts.Templates,
		personas:    opts.Personas,
		llm:         opts.LLM,
	}
	if opts.Templates != nil {
		r.assembler = prompt.NewAssembler(opts.Templates)
	}
	return r
}

func (r *registry) Compression() *compression.Service      { return r.compression }
func (r *registry) Retention() *retention.Verifier         { return r.retention }
func (r *registry) Regenerator() *regeneration.Regenerator { return r.regenerator }
func (r *registry) Evaluator() *evaluation.Evaluator       { return r.evaluator }
func (r *registry) Templates() *prompt.Cache               { return r.templates }
func (r *registry) Assembler() *prompt.Assembler           { return r.assembler }
func (r *registry) Personas() *prompt.Profiles             { return r.personas }
func (r *registry) LLM() llm.Client                        { return r.llm }
