package http

import (
	"github.com/fyrsmithlabs/promptgate/internal/facts"
	"github.com/fyrsmithlabs/promptgate/internal/retention"
	"github.com/fyrsmithlabs/promptgate/internal/scrub"
)

// OptimizeRequest is the request body for POST /api/v1/optimize.
type OptimizeRequest struct {
	Prompt string               `json:"prompt"`
	Facts  []facts.CriticalFact `json:"facts,omitempty"`

	// Budget overrides the server budget when set.
	Budget *BudgetRequest `json:"budget,omitempty"`
}

// BudgetRequest carries optional compression limits.
type BudgetRequest struct {
	TargetLength     int `json:"target_length"`
	HardLimit        int `json:"hard_limit"`
	WarningThreshold int `json:"warning_threshold"`
}

// OptimizeResponse is the response body for POST /api/v1/optimize.
type OptimizeResponse struct {
	Prompt           string            `json:"prompt"`
	OriginalLength   int               `json:"original_length"`
	FinalLength      int               `json:"final_length"`
	CompressionRatio float64           `json:"compression_ratio"`
	Strategies       []string          `json:"strategies"`
	Retention        *retention.Report `json:"retention,omitempty"`
	Redactions       []scrub.Finding   `json:"redactions,omitempty"`
}

// VerifyRequest is the request body for POST /api/v1/verify.
type VerifyRequest struct {
	Original   string               `json:"original"`
	Compressed string               `json:"compressed"`
	Facts      []facts.CriticalFact `json:"facts"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
	Budget   BudgetRequest     `json:"budget"`
	// MinimumRetention is the verifier threshold in percent.
	MinimumRetention float64 `json:"minimum_retention"`
}
