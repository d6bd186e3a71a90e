// Package analyzer implements the semantic pass. It delegates reasoning to
// a ModelProvider, chunking large units with overlapping windows, retrying
// transient provider failures, and merging duplicate reports from the
// overlap regions.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/observability"
	"github.com/hexborne/vulndetective/internal/provider"
)

// Result is the outcome of the semantic pass over one unit. Degraded marks
// that at least one chunk was skipped after exhausting retries; Warnings
// carry one entry per skipped chunk.
type Result struct {
	Findings []schemas.Finding
	Degraded bool
	Warnings []string
}

// Analyzer runs the AI-backed semantic pass.
type Analyzer struct {
	provider schemas.ModelProvider
	policy   *provider.Policy
	cfg      config.AnalyzerConfig
	logger   *zap.Logger
}

// New builds an Analyzer over the given provider.
func New(p schemas.ModelProvider, cfg config.AnalyzerConfig) *Analyzer {
	if cfg.MaxChunkLines < 1 {
		cfg.MaxChunkLines = 400
	}
	if cfg.ChunkConcurrency < 1 {
		cfg.ChunkConcurrency = 1
	}
	return &Analyzer{
		provider: p,
		policy:   provider.NewPolicy(cfg.Retry),
		cfg:      cfg,
		logger:   observability.GetLogger().Named("analyzer"),
	}
}

// Analyze runs the semantic pass over the unit. Hints are pattern-screener
// findings; each chunk's prompt carries the hints whose span falls inside its
// window. Chunks are analyzed concurrently; all chunk results are joined
// before merging so the output never depends on completion order. A fatal
// provider failure aborts the whole unit and returns an error; transient
// exhaustion only degrades the affected chunk.
func (a *Analyzer) Analyze(ctx context.Context, unit *schemas.SourceUnit, hints []schemas.Finding) (*Result, error) {
	if unit == nil || unit.IsEmpty() {
		return &Result{}, nil
	}

	chunks := chunkUnit(unit, a.cfg.MaxChunkLines, a.cfg.OverlapLines)
	a.logger.Debug("semantic pass starting",
		zap.String("unit", unit.Name),
		zap.Int("chunks", len(chunks)))

	var (
		mu       sync.Mutex
		findings []schemas.Finding
		warnings []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.ChunkConcurrency)

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			chunkFindings, err := a.analyzeChunk(gctx, unit, chunk, hintsInWindow(hints, chunk))
			if err != nil {
				if pe, ok := schemas.AsProviderError(err); ok && pe.Transient() {
					// Retries exhausted on a transient failure: degrade this
					// chunk and keep going.
					a.logger.Warn("chunk analysis degraded",
						zap.String("unit", unit.Name),
						zap.Int("chunk", chunk.Index),
						zap.Error(err))
					mu.Lock()
					warnings = append(warnings, fmt.Sprintf(
						"semantic analysis skipped lines %d-%d: %v",
						chunk.StartLine, chunk.EndLine, err))
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("chunk %d (lines %d-%d): %w",
					chunk.Index, chunk.StartLine, chunk.EndLine, err)
			}
			mu.Lock()
			findings = append(findings, chunkFindings...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := dedupeOverlaps(findings)
	sortFindings(merged)
	sort.Strings(warnings)

	return &Result{
		Findings: merged,
		Degraded: len(warnings) > 0,
		Warnings: warnings,
	}, nil
}

// analyzeChunk performs one provider round trip under the retry policy and
// converts the wire findings into unit-scoped findings.
func (a *Analyzer) analyzeChunk(ctx context.Context, unit *schemas.SourceUnit, chunk Chunk, hints []schemas.Finding) ([]schemas.Finding, error) {
	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildChunkPrompt(unit, chunk, hints),
		Options: schemas.GenerationOptions{
			Temperature:     a.cfg.Temperature,
			ForceJSONFormat: true,
		},
	}

	raw, err := a.policy.Execute(ctx, func(ctx context.Context) (string, error) {
		return a.provider.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	wire, err := provider.ParseJSONResponse[[]schemas.ChunkFinding](raw)
	if err != nil {
		return nil, schemas.NewProviderError(schemas.ProviderMalformedResponse, err)
	}

	var out []schemas.Finding
	for _, cf := range *wire {
		f, ok := a.toFinding(unit, chunk, cf)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// toFinding validates one wire finding and anchors it to the unit. Reports
// outside the chunk's line window or with nonsense coordinates are dropped.
func (a *Analyzer) toFinding(unit *schemas.SourceUnit, chunk Chunk, cf schemas.ChunkFinding) (schemas.Finding, bool) {
	if cf.Category == "" || cf.LineStart < 1 || cf.LineEnd < cf.LineStart {
		return schemas.Finding{}, false
	}
	if cf.LineStart < chunk.StartLine || cf.LineEnd > chunk.EndLine {
		a.logger.Debug("dropping out-of-window finding",
			zap.String("category", cf.Category),
			zap.Int("line_start", cf.LineStart),
			zap.Int("line_end", cf.LineEnd))
		return schemas.Finding{}, false
	}

	confidence := cf.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}

	evidence := unit.LineRange(cf.LineStart, cf.LineEnd)
	return schemas.Finding{
		ID:          uuid.New().String(),
		UnitID:      unit.ID,
		Origin:      schemas.OriginSemantic,
		Category:    cf.Category,
		CWE:         cf.CWE,
		Span:        schemas.Span{StartLine: cf.LineStart, EndLine: cf.LineEnd},
		Description: cf.Description,
		Evidence:    evidence,
		Confidence:  confidence,
		Rationale:   cf.Rationale,
	}, true
}

// hintsInWindow filters hints down to those whose span lies inside the
// chunk's line window.
func hintsInWindow(hints []schemas.Finding, chunk Chunk) []schemas.Finding {
	var out []schemas.Finding
	for _, h := range hints {
		if h.Span.Within(chunk.StartLine, chunk.EndLine) {
			out = append(out, h)
		}
	}
	return out
}

// dedupeOverlaps collapses findings reported by more than one chunk for the
// same weakness. Two findings are duplicates when they share a category and
// their spans overlap; the higher-confidence report survives.
func dedupeOverlaps(findings []schemas.Finding) []schemas.Finding {
	if len(findings) < 2 {
		return findings
	}
	sortFindings(findings)

	var out []schemas.Finding
	for _, f := range findings {
		dup := false
		for i := range out {
			if out[i].Category == f.Category && out[i].Span.Overlaps(f.Span, 0) {
				if f.Confidence > out[i].Confidence {
					out[i] = f
				}
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	return out
}

func sortFindings(findings []schemas.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Span.StartLine != findings[j].Span.StartLine {
			return findings[i].Span.StartLine < findings[j].Span.StartLine
		}
		return findings[i].Category < findings[j].Category
	})
}
