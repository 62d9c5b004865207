// Package evaluation scores generated content for the regeneration loop.
//
// The Evaluator combines readability limits, forbidden and AI-tell phrase
// detection, persona voice markers, structural heuristics, cross-item
// similarity and research-pattern coverage into a regeneration.ScoreBundle.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
	"github.com/fyrsmithlabs/promptgate/internal/regeneration"
)

// ErrInvalidConfig is returned for out-of-range evaluator settings.
var ErrInvalidConfig = errors.New("invalid evaluation config")

// DefaultAITells are phrases that mark text as machine-written.
var DefaultAITells = []string{
	"delve",
	"tapestry",
	"testament to",
	"in today's fast-paced",
	"it's worth noting",
	"it is worth noting",
	"in conclusion",
	"game-changer",
	"seamlessly",
	"unlock the potential",
	"navigate the complexities",
	"plays a crucial role",
	"a myriad of",
	"cutting-edge",
	"in the realm of",
	"embark on",
}

// QualityWeights weight each sub-score in the composite quality score.
type QualityWeights struct {
	AIPatterns         float64
	VoiceAuthenticity  float64
	Structural         float64
	Readability        float64
	CrossItemVariation float64
}

// DefaultQualityWeights returns the weights used when none are configured.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		AIPatterns:         0.30,
		VoiceAuthenticity:  0.20,
		Structural:         0.20,
		Readability:        0.15,
		CrossItemVariation: 0.15,
	}
}

func (w QualityWeights) total() float64 {
	return w.AIPatterns + w.VoiceAuthenticity + w.Structural + w.Readability + w.CrossItemVariation
}

// Config configures an Evaluator.
type Config struct {
	Readability ReadabilityLimits

	// ForbiddenPhrases must never appear in content.
	ForbiddenPhrases []string

	// AITells defaults to DefaultAITells when nil.
	AITells []string

	// AILikeThreshold is the AI-tell count at which content is flagged
	// AI-like. Defaults to 2.
	AILikeThreshold int

	// VoiceMarkers are persona phrases expected in authentic content.
	VoiceMarkers []string

	// Patterns are research patterns the content should mention.
	Patterns []string

	// NearDuplicateSimilarity is the shingle Jaccard similarity at or above
	// which a sibling counts as a near duplicate. Defaults to 0.5.
	NearDuplicateSimilarity float64

	// ShingleSize is the word count per shingle. Defaults to 3.
	ShingleSize int

	Weights QualityWeights
}

func (c *Config) applyDefaults() {
	if c.AITells == nil {
		c.AITells = DefaultAITells
	}
	if c.AILikeThreshold == 0 {
		c.AILikeThreshold = 2
	}
	if c.NearDuplicateSimilarity == 0 {
		c.NearDuplicateSimilarity = 0.5
	}
	if c.ShingleSize == 0 {
		c.ShingleSize = 3
	}
	if c.Weights == (QualityWeights{}) {
		c.Weights = DefaultQualityWeights()
	}
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	if c.Readability.MaxAvgSentenceWords < 0 || c.Readability.MaxAvgWordLength < 0 {
		return fmt.Errorf("%w: readability limits must not be negative", ErrInvalidConfig)
	}
	if c.AILikeThreshold < 1 {
		return fmt.Errorf("%w: ai_like_threshold must be at least 1", ErrInvalidConfig)
	}
	if c.NearDuplicateSimilarity <= 0 || c.NearDuplicateSimilarity > 1 {
		return fmt.Errorf("%w: near_duplicate_similarity must be in (0,1], got %g",
			ErrInvalidConfig, c.NearDuplicateSimilarity)
	}
	if c.ShingleSize < 1 {
		return fmt.Errorf("%w: shingle_size must be at least 1", ErrInvalidConfig)
	}
	w := c.Weights
	if w.AIPatterns < 0 || w.VoiceAuthenticity < 0 || w.Structural < 0 ||
		w.Readability < 0 || w.CrossItemVariation < 0 || w.total() == 0 {
		return fmt.Errorf("%w: quality weights must be non-negative with a positive sum", ErrInvalidConfig)
	}
	return nil
}

// Evaluator scores content. Safe for concurrent use.
type Evaluator struct {
	config   Config
	patterns []facts.CriticalFact
	logger   *logging.Logger

	mu       sync.RWMutex
	siblings []map[string]bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSiblings seeds the sibling corpus used for cross-item variation.
func WithSiblings(items ...string) Option {
	return func(e *Evaluator) {
		for _, item := range items {
			e.siblings = append(e.siblings, shingles(item, e.config.ShingleSize))
		}
	}
}

// New creates an Evaluator.
func New(cfg Config, opts ...Option) (*Evaluator, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Evaluator{
		config: cfg,
		logger: logging.NewNop(),
	}
	for _, p := range cfg.Patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		e.patterns = append(e.patterns, facts.CriticalFact{Name: p, Severity: facts.SeverityMedium})
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate scores content. It implements regeneration.EvaluateFunc.
func (e *Evaluator) Evaluate(ctx context.Context, content string) regeneration.ScoreBundle {
	lowered := strings.ToLower(content)

	aiTells, tellsFound := countPhrases(lowered, e.config.AITells)
	forbidden, forbiddenFound := countPhrases(lowered, e.config.ForbiddenPhrases)
	readability := Readability(content, e.config.Readability)
	patternCount := e.patternCount(lowered)

	b := regeneration.ScoreBundle{
		AILike:               aiTells >= e.config.AILikeThreshold,
		AIPatternScore:       clamp(100-20*float64(aiTells), 0, 100),
		IssueCount:           aiTells + forbidden + len(readability.Violations),
		ForbiddenPhraseCount: forbidden,
		PatternCount:         patternCount,
		PatternFound:         len(e.patterns) == 0 || patternCount > 0,
		VoiceAuthenticity:    e.voiceAuthenticity(lowered),
		StructuralAverage:    structuralScore(content),
		Readability:          readability,
		CrossItem:            e.crossItem(content),
	}
	b.Quality = e.quality(b.SubScores())

	e.logger.Debug(ctx, "content evaluated",
		zap.Float64("quality", b.Quality),
		zap.Int("issues", b.IssueCount),
		zap.Strings("ai_tells", tellsFound),
		zap.Strings("forbidden_phrases", forbiddenFound),
		zap.Float64("max_similarity", b.CrossItem.MaxSimilarity),
	)
	return b
}

// Observe adds accepted content to the sibling corpus.
func (e *Evaluator) Observe(content string) {
	s := shingles(content, e.config.ShingleSize)
	if len(s) == 0 {
		return
	}
	e.mu.Lock()
	e.siblings = append(e.siblings, s)
	e.mu.Unlock()
}

// SiblingCount returns the size of the sibling corpus.
func (e *Evaluator) SiblingCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.siblings)
}

func (e *Evaluator) patternCount(lowered string) int {
	n := 0
	for _, p := range e.patterns {
		if p.PresentIn(lowered) {
			n++
		}
	}
	return n
}

// voiceAuthenticity is the percentage of voice markers present. Without
// markers every voice is authentic.
func (e *Evaluator) voiceAuthenticity(lowered string) float64 {
	total := 0
	present := 0
	for _, m := range e.config.VoiceMarkers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		total++
		if strings.Contains(lowered, m) {
			present++
		}
	}
	if total == 0 {
		return 100
	}
	return float64(present) / float64(total) * 100
}

func (e *Evaluator) crossItem(content string) regeneration.CrossItemResult {
	own := shingles(content, e.config.ShingleSize)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var maxSim float64
	near := 0
	for _, sib := range e.siblings {
		sim := jaccard(own, sib)
		if sim > maxSim {
			maxSim = sim
		}
		if sim >= e.config.NearDuplicateSimilarity {
			near++
		}
	}
	return regeneration.CrossItemResult{
		Pass:           near == 0,
		MaxSimilarity:  maxSim,
		NearDuplicates: near,
		Score:          (1 - maxSim) * 100,
	}
}

func (e *Evaluator) quality(s regeneration.SubScores) float64 {
	w := e.config.Weights
	sum := s.AIPatterns*w.AIPatterns +
		s.VoiceAuthenticity*w.VoiceAuthenticity +
		s.Structural*w.Structural +
		s.Readability*w.Readability +
		s.CrossItemVariation*w.CrossItemVariation
	q := sum / w.total()
	return clamp(math.Round(q*100)/100, 0, 100)
}
