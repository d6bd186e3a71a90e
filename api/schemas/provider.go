package schemas

import (
	"context"
	"errors"
	"fmt"
)

// -- AI Model Provider Contract --

// GenerationOptions tunes a single provider request.
type GenerationOptions struct {
	Temperature     float32 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
}

// GenerationRequest encapsulates a complete request to the model provider:
// the standing instructions, the user-visible prompt and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}

// ModelProvider is the consumed AI reasoning capability. Any backend that can
// turn a prompt into text is substitutable; the engine never depends on a
// concrete vendor client.
type ModelProvider interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// ChunkFinding is the wire shape of one finding reported by the provider for a
// code chunk. Line numbers refer to the SourceUnit, not the chunk.
type ChunkFinding struct {
	Category    string  `json:"category"`
	CWE         string  `json:"cwe"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale"`
	LineStart   int     `json:"line_start"`
	LineEnd     int     `json:"line_end"`
}

// ProviderErrorKind classifies provider failures for the retry policy.
type ProviderErrorKind string

const (
	ProviderRateLimited       ProviderErrorKind = "rate_limited"
	ProviderAuthFailure       ProviderErrorKind = "auth_failure"
	ProviderTimeout           ProviderErrorKind = "timeout"
	ProviderMalformedResponse ProviderErrorKind = "malformed_response"
	ProviderQuotaExceeded     ProviderErrorKind = "quota_exceeded"
)

// ProviderError wraps a failure from the model provider with its kind.
// Transient kinds are retried with backoff; fatal kinds abort the semantic
// pass for the whole SourceUnit.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool {
	return e.Kind == ProviderRateLimited || e.Kind == ProviderTimeout
}

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}

// AsProviderError unwraps err to a *ProviderError when present.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
