// Package provider holds the concrete AI model backends plus the retry and
// rate-budget decorators layered over them. A single HTTP attempt lives
// here; retry decisions belong to Policy so every caller shares one policy.
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiProvider talks to the Google Gemini generateContent API. It makes
// exactly one attempt per Generate call and reports failures as
// schemas.ProviderError so the retry policy can classify them.
type GeminiProvider struct {
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGeminiProvider initializes the client from LLM configuration.
func NewGeminiProvider(cfg config.LLMConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	return &GeminiProvider{
		apiKey:    cfg.APIKey,
		endpoint:  endpoint,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: observability.GetLogger().Named("provider.gemini"),
	}, nil
}

// Generate performs a single generateContent round trip.
func (p *GeminiProvider) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := p.buildRequestPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", schemas.NewProviderError(schemas.ProviderMalformedResponse,
			fmt.Errorf("marshal request payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", schemas.NewProviderError(schemas.ProviderMalformedResponse,
			fmt.Errorf("build HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	startTime := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Network failures and client-side deadlines are timeout-class.
		return "", schemas.NewProviderError(schemas.ProviderTimeout,
			fmt.Errorf("execute HTTP request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", schemas.NewProviderError(schemas.ProviderTimeout,
			fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", p.classifyStatus(resp.StatusCode, respBody)
	}

	var responsePayload geminiResponsePayload
	if err := json.Unmarshal(respBody, &responsePayload); err != nil {
		return "", schemas.NewProviderError(schemas.ProviderMalformedResponse,
			fmt.Errorf("decode response payload: %w", err))
	}

	if len(responsePayload.Candidates) == 0 {
		return "", schemas.NewProviderError(schemas.ProviderMalformedResponse,
			errors.New("response contained no candidates"))
	}

	candidate := responsePayload.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", schemas.NewProviderError(schemas.ProviderMalformedResponse,
			fmt.Errorf("response contained empty content parts (finish reason %q)", candidate.FinishReason))
	}

	p.logger.Debug("generation complete",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("prompt_tokens", responsePayload.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", responsePayload.UsageMetadata.CandidatesTokenCount),
	)

	return candidate.Content.Parts[0].Text, nil
}

func (p *GeminiProvider) buildRequestPayload(req schemas.GenerationRequest) geminiRequestPayload {
	genConfig := geminiGenerationConfig{
		Temperature:     float64(req.Options.Temperature),
		MaxOutputTokens: p.maxTokens,
	}
	if req.Options.ForceJSONFormat {
		genConfig.ResponseMimeType = "application/json"
	}

	payload := geminiRequestPayload{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: req.UserPrompt}},
			},
		},
		GenerationConfig: genConfig,
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &geminiSystemInstruction{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}
	return payload
}

// classifyStatus maps an HTTP error status onto the provider error taxonomy.
func (p *GeminiProvider) classifyStatus(statusCode int, body []byte) error {
	p.logger.Warn("API returned error status",
		zap.Int("status", statusCode),
		zap.String("response", truncate(string(body), 500)))

	err := fmt.Errorf("status %d: %s", statusCode, truncate(string(body), 500))

	switch {
	case statusCode == http.StatusTooManyRequests:
		if strings.Contains(strings.ToLower(string(body)), "quota") {
			return schemas.NewProviderError(schemas.ProviderQuotaExceeded, err)
		}
		return schemas.NewProviderError(schemas.ProviderRateLimited, err)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return schemas.NewProviderError(schemas.ProviderAuthFailure, err)
	case statusCode == http.StatusRequestTimeout || statusCode >= 500:
		return schemas.NewProviderError(schemas.ProviderTimeout, err)
	default:
		return schemas.NewProviderError(schemas.ProviderMalformedResponse, err)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// apiKeyFromEnv resolves the key from the conventional environment
// variables when the config leaves it blank.
func apiKeyFromEnv() string {
	for _, name := range []string{"VULNDETECTIVE_LLM_API_KEY", "GEMINI_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
