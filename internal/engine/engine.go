// Package engine orchestrates a scan: pattern screen, semantic analysis,
// reconciliation and scoring, per unit and across batches.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/analyzer"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/cvss"
	"github.com/hexborne/vulndetective/internal/merger"
	"github.com/hexborne/vulndetective/internal/observability"
	"github.com/hexborne/vulndetective/internal/provider"
	"github.com/hexborne/vulndetective/internal/screener"
)

// InputError marks a problem with the caller's input rather than a failure
// of the engine itself.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// Engine runs the full detection pipeline.
type Engine struct {
	screener *screener.Screener
	analyzer *analyzer.Analyzer
	merger   *merger.Merger
	cfg      config.EngineConfig
	logger   *zap.Logger
}

// New assembles an Engine over the given model provider. The provider is
// wrapped in a shared rate budget so every unit in a batch draws from the
// same allowance.
func New(cfg *config.Config, modelProvider schemas.ModelProvider) *Engine {
	throttled := provider.NewThrottled(modelProvider, cfg.Engine.ProviderRate, cfg.Engine.ProviderBurst)
	return &Engine{
		screener: screener.New(cfg.Screener),
		analyzer: analyzer.New(throttled, cfg.Analyzer),
		merger:   merger.New(cfg.Merger),
		cfg:      cfg.Engine,
		logger:   observability.GetLogger().Named("engine"),
	}
}

// AnalyzeUnit runs the pipeline over one SourceUnit. A provider failure
// that survives retries degrades the result to heuristic-only findings; an
// empty unit is the caller's error.
func (e *Engine) AnalyzeUnit(ctx context.Context, unit *schemas.SourceUnit) (*schemas.UnitResult, error) {
	if unit == nil || unit.IsEmpty() {
		return nil, &InputError{Msg: "source unit is empty"}
	}

	patternFindings := e.screener.Screen(unit)

	var (
		semanticFindings []schemas.Finding
		degraded         bool
		warnings         []string
	)

	semRes, err := e.analyzer.Analyze(ctx, unit, patternFindings)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		// Fatal provider failure: the semantic pass is lost for this unit,
		// but the deterministic findings still stand.
		e.logger.Warn("semantic pass failed, continuing with pattern findings only",
			zap.String("unit", unit.Name),
			zap.Error(err))
		degraded = true
		warnings = append(warnings, fmt.Sprintf("semantic analysis unavailable: %v", err))
	default:
		semanticFindings = semRes.Findings
		degraded = semRes.Degraded
		warnings = append(warnings, semRes.Warnings...)
	}

	merged, mergeWarnings := e.merger.Merge(patternFindings, semanticFindings)
	warnings = append(warnings, mergeWarnings...)

	scored := make([]schemas.ScoredFinding, 0, len(merged))
	for _, f := range merged {
		scored = append(scored, scoreFinding(f))
	}
	sortScored(scored)

	e.logger.Info("unit analysis complete",
		zap.String("unit", unit.Name),
		zap.Int("pattern_findings", len(patternFindings)),
		zap.Int("semantic_findings", len(semanticFindings)),
		zap.Int("canonical_findings", len(scored)),
		zap.Bool("degraded", degraded))

	return &schemas.UnitResult{
		UnitID:   unit.ID,
		UnitName: unit.Name,
		Language: unit.Language,
		Degraded: degraded,
		Warnings: warnings,
		Findings: scored,
	}, nil
}

// AnalyzeBatch analyzes several units concurrently, bounded by the
// configured unit concurrency. Unit results keep the input order. An
// InputError on one unit fails the batch; it signals a caller bug, not a
// bad scan target.
func (e *Engine) AnalyzeBatch(ctx context.Context, units []*schemas.SourceUnit) (*schemas.ResultSet, error) {
	if len(units) == 0 {
		return nil, &InputError{Msg: "no source units to analyze"}
	}

	limit := e.cfg.MaxConcurrentUnits
	if limit < 1 {
		limit = 1
	}

	results := make([]*schemas.UnitResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			res, err := e.AnalyzeUnit(gctx, unit)
			if err != nil {
				name := "<nil>"
				if unit != nil {
					name = unit.Name
				}
				return fmt.Errorf("unit %s: %w", name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &schemas.ResultSet{
		ScanID:    uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Units:     make([]schemas.UnitResult, 0, len(results)),
	}
	for _, r := range results {
		set.Units = append(set.Units, *r)
	}
	set.Summary = summarize(set)
	return set, nil
}

// scoreFinding attaches the CVSS evaluation and the composite risk score.
func scoreFinding(f schemas.Finding) schemas.ScoredFinding {
	vector := vectorFor(f.Category)
	score, err := cvss.ScoreString(vector)
	if err != nil {
		// The vector table is static and covered by tests; an invalid entry
		// cannot occur at runtime.
		panic(fmt.Sprintf("invalid scoring vector %q: %v", vector, err))
	}

	return schemas.ScoredFinding{
		Finding:       f,
		Vector:        vector,
		BaseScore:     score.Base,
		TemporalScore: score.Temporal,
		EnvScore:      score.Environmental,
		RiskScore:     riskScore(score.Effective(), f.Confidence, f.Rationale, f.Description),
		Severity:      score.Severity,
	}
}

// sortScored orders findings most-urgent first: severity band, then risk
// score, then source position.
func sortScored(findings []schemas.ScoredFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := schemas.SeverityRank(findings[i].Severity), schemas.SeverityRank(findings[j].Severity)
		if ri != rj {
			return ri < rj
		}
		if findings[i].RiskScore != findings[j].RiskScore {
			return findings[i].RiskScore > findings[j].RiskScore
		}
		return findings[i].Span.StartLine < findings[j].Span.StartLine
	})
}

func summarize(set *schemas.ResultSet) map[string]int {
	summary := map[string]int{
		"total_units":    len(set.Units),
		"degraded_units": 0,
		"total_findings": 0,
	}
	for _, unit := range set.Units {
		if unit.Degraded {
			summary["degraded_units"]++
		}
		summary["total_findings"] += len(unit.Findings)
		for _, f := range unit.Findings {
			summary[string(f.Severity)]++
		}
	}
	return summary
}
