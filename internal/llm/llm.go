// Package llm provides completion clients for the Anthropic Messages API and
// OpenAI-compatible chat completion APIs.
//
// Clients wait on a token-bucket rate limiter before each call, refuse
// prompts above the configured hard limit and retry rate-limited (429) and
// server (5xx) failures with exponential backoff.
//
//	client, err := llm.New(llm.Config{
//	    Provider: llm.ProviderAnthropic,
//	    APIKey:   cfg.LLM.APIKey,
//	})
//	if err != nil {
//	    return err
//	}
//	text, err := client.Complete(ctx, prompt)
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/promptgate/internal/config"
	"github.com/fyrsmithlabs/promptgate/internal/logging"
)

// Provider names a completion API.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 1024
	defaultTimeout          = 60 * time.Second
	defaultRequestsPerMin   = 50
	defaultBurst            = 5
	defaultBaseBackoff      = 1 * time.Second
)

var (
	// ErrMissingAPIKey indicates a client was configured without credentials.
	ErrMissingAPIKey = errors.New("llm API key required")

	// ErrUnsupportedProvider indicates an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported llm provider")

	// ErrPromptTooLong indicates a prompt above the configured hard limit.
	ErrPromptTooLong = errors.New("prompt exceeds hard limit")

	// ErrEmptyResponse indicates a successful call that returned no text.
	ErrEmptyResponse = errors.New("empty response from API")
)

// Client generates text completions.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures a Client.
type Config struct {
	Provider    Provider
	Model       string
	BaseURL     string
	APIKey      config.Secret
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// RequestsPerMinute bounds the call rate. Defaults to 50.
	RequestsPerMinute int

	// MaxRetries is the number of retries after the first call.
	MaxRetries int

	// BaseBackoff is the first retry delay; each retry doubles it.
	BaseBackoff time.Duration

	// MaxPromptChars rejects longer prompts before any request is made.
	// Zero disables the check.
	MaxPromptChars int
}

// FromConfig converts the llm configuration section. maxPromptChars is
// normally the compression hard limit.
func FromConfig(c config.LLMConfig, maxPromptChars int) Config {
	return Config{
		Provider:          Provider(c.Provider),
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		MaxTokens:         c.MaxTokens,
		Temperature:       c.Temperature,
		Timeout:           c.Timeout.Or(defaultTimeout),
		RequestsPerMinute: c.RequestsPerMinute,
		MaxRetries:        c.MaxRetries,
		MaxPromptChars:    maxPromptChars,
	}
}

// Option configures a Client.
type Option func(*base)

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithHTTPClient replaces the HTTP client. The configured timeout is not
// applied to a replacement client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) {
		if c != nil {
			b.httpClient = c
		}
	}
}

// New creates a Client for cfg.Provider. An empty provider selects Anthropic.
func New(cfg Config, opts ...Option) (Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderAnthropic
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		b, err := newBase(cfg, defaultAnthropicModel, defaultAnthropicBaseURL, opts)
		if err != nil {
			return nil, err
		}
		return &anthropicClient{base: b}, nil
	case ProviderOpenAI:
		b, err := newBase(cfg, defaultOpenAIModel, defaultOpenAIBaseURL, opts)
		if err != nil {
			return nil, err
		}
		return &openAIClient{base: b}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// base holds the transport state shared by both providers.
type base struct {
	provider       Provider
	model          string
	apiKey         config.Secret
	baseURL        string
	maxTokens      int
	temperature    float64
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	baseBackoff    time.Duration
	maxPromptChars int
	logger         *logging.Logger
}

func newBase(cfg Config, model, baseURL string, opts []Option) (*base, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, cfg.Provider)
	}
	if cfg.Model != "" {
		model = cfg.Model
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMin
	}
	backoff := cfg.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBaseBackoff
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	b := &base{
		provider:       cfg.Provider,
		model:          model,
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		maxTokens:      maxTokens,
		temperature:    cfg.Temperature,
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Limit(float64(rpm)/60.0), defaultBurst),
		maxRetries:     retries,
		baseBackoff:    backoff,
		maxPromptChars: cfg.MaxPromptChars,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger.Debug(context.Background(), "llm client configured",
		zap.String("provider", string(b.provider)),
		zap.String("model", b.model),
		logging.Secret("credential", b.apiKey),
	)
	return b, nil
}

// complete checks the prompt, then runs do with rate limiting and retries.
func (b *base) complete(ctx context.Context, prompt string, do func(context.Context) (string, error)) (string, error) {
	if b.maxPromptChars > 0 {
		if n := utf8.RuneCountInString(prompt); n > b.maxPromptChars {
			return "", fmt.Errorf("%w: %d characters (max %d)", ErrPromptTooLong, n, b.maxPromptChars)
		}
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := b.baseBackoff * time.Duration(1<<(attempt-1))
			b.logger.Warn(ctx, "llm request failed, retrying",
				zap.String("provider", string(b.provider)),
				zap.Int("retry", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := do(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status is rate limiting or a server error.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// retryableError wraps a transport failure that can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryableError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var re *retryableError
	return errors.As(err, &re)
}
