// Package merger reconciles the pattern and semantic finding streams into
// one canonical list. Matching, confidence adjustment and provenance are
// all deterministic: the same inputs always produce the same output, and
// merged output passed back in is returned unchanged.
package merger

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/observability"
)

// Merger reconciles findings from the two detection origins.
type Merger struct {
	spanTolerance   int
	agreementBonus  float64
	ambiguityWindow int
	logger          *zap.Logger
}

// New builds a Merger from configuration.
func New(cfg config.MergerConfig) *Merger {
	bonus := cfg.AgreementBonus
	if bonus < 0 {
		bonus = 0
	}
	return &Merger{
		spanTolerance:   cfg.SpanTolerance,
		agreementBonus:  bonus,
		ambiguityWindow: cfg.AmbiguityWindow,
		logger:          observability.GetLogger().Named("merger"),
	}
}

// Merge reconciles the two streams. A pattern finding and a semantic
// finding describe the same weakness when their categories match and their
// spans overlap within the span tolerance. Agreement raises confidence to
// the larger of the two plus the agreement bonus, capped at 1.0, and marks
// the finding corroborated. Unmatched findings pass through tagged
// heuristic-only or ai-only.
//
// Findings that already carry provenance are treated as canonical and pass
// through untouched, which makes Merge idempotent.
func (m *Merger) Merge(pattern, semantic []schemas.Finding) ([]schemas.Finding, []string) {
	var (
		out      []schemas.Finding
		warnings []string
	)

	var rawPattern []schemas.Finding
	for _, f := range pattern {
		if f.Provenance != "" {
			out = append(out, f)
			continue
		}
		rawPattern = append(rawPattern, f)
	}
	var rawSemantic []schemas.Finding
	for _, f := range semantic {
		if f.Provenance != "" {
			out = append(out, f)
			continue
		}
		rawSemantic = append(rawSemantic, f)
	}

	matchedSemantic := make([]bool, len(rawSemantic))

	for _, pf := range rawPattern {
		bestIdx := -1
		candidates := 0
		for i, sf := range rawSemantic {
			if matchedSemantic[i] || sf.Category != pf.Category {
				continue
			}
			if pf.Span.Overlaps(sf.Span, m.spanTolerance) {
				candidates++
				if bestIdx == -1 || betterMatch(rawSemantic[i], rawSemantic[bestIdx], pf) {
					bestIdx = i
				}
			}
		}

		if bestIdx == -1 {
			if near := m.nearMiss(pf, rawSemantic, matchedSemantic); near != "" {
				warnings = append(warnings, near)
			}
			pf.Provenance = schemas.ProvenanceHeuristic
			out = append(out, pf)
			continue
		}
		if candidates > 1 {
			warnings = append(warnings, fmt.Sprintf(
				"ambiguous corroboration for %s at lines %d-%d: %d semantic candidates, merged the closest",
				pf.Category, pf.Span.StartLine, pf.Span.EndLine, candidates))
		}

		matchedSemantic[bestIdx] = true
		out = append(out, m.corroborate(pf, rawSemantic[bestIdx]))
	}

	for i, sf := range rawSemantic {
		if matchedSemantic[i] {
			continue
		}
		sf.Provenance = schemas.ProvenanceAI
		out = append(out, sf)
	}

	sortCanonical(out)
	sort.Strings(warnings)

	if len(warnings) > 0 {
		m.logger.Debug("merge produced warnings", zap.Strings("warnings", warnings))
	}
	return out, warnings
}

// corroborate combines an agreeing pair. The pattern finding's identity
// (ID, rule) is kept so repeated scans remain traceable to the rule that
// fired; the semantic side contributes the richer description and
// rationale.
func (m *Merger) corroborate(pf, sf schemas.Finding) schemas.Finding {
	merged := pf
	merged.Provenance = schemas.ProvenanceCorroborated
	merged.Description = sf.Description
	merged.Rationale = sf.Rationale
	if sf.CWE != "" {
		merged.CWE = sf.CWE
	}

	confidence := pf.Confidence
	if sf.Confidence > confidence {
		confidence = sf.Confidence
	}
	confidence += m.agreementBonus
	if confidence > 1.0 {
		confidence = 1.0
	}
	merged.Confidence = confidence

	// Cover both reports' extents.
	if sf.Span.StartLine < merged.Span.StartLine {
		merged.Span.StartLine = sf.Span.StartLine
		merged.Span.StartCol = sf.Span.StartCol
	}
	if sf.Span.EndLine > merged.Span.EndLine {
		merged.Span.EndLine = sf.Span.EndLine
		merged.Span.EndCol = sf.Span.EndCol
	}
	return merged
}

// nearMiss reports a warning when a same-category semantic finding sits
// just outside the span tolerance. These are worth a human look: the two
// passes likely saw the same weakness but disagreed on its extent.
func (m *Merger) nearMiss(pf schemas.Finding, semantic []schemas.Finding, matched []bool) string {
	if m.ambiguityWindow <= 0 {
		return ""
	}
	for i, sf := range semantic {
		if matched[i] || sf.Category != pf.Category {
			continue
		}
		gap := pf.Span.Gap(sf.Span)
		if gap > m.spanTolerance && gap <= m.spanTolerance+m.ambiguityWindow {
			return fmt.Sprintf(
				"possible missed corroboration for %s: pattern at lines %d-%d, semantic at lines %d-%d",
				pf.Category, pf.Span.StartLine, pf.Span.EndLine,
				sf.Span.StartLine, sf.Span.EndLine)
		}
	}
	return ""
}

// betterMatch prefers the semantic candidate closer to the pattern span,
// breaking ties on higher confidence.
func betterMatch(a, b, pf schemas.Finding) bool {
	ga, gb := pf.Span.Gap(a.Span), pf.Span.Gap(b.Span)
	if ga != gb {
		return ga < gb
	}
	return a.Confidence > b.Confidence
}

func sortCanonical(findings []schemas.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Span.StartLine != findings[j].Span.StartLine {
			return findings[i].Span.StartLine < findings[j].Span.StartLine
		}
		if findings[i].Category != findings[j].Category {
			return findings[i].Category < findings[j].Category
		}
		return findings[i].ID < findings[j].ID
	})
}
