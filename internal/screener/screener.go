// Package screener implements the deterministic pattern stage. It runs a
// fixed regex rule table over source lines and emits heuristic findings with
// no external calls, so its output for a given unit never varies.
package screener

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/observability"
)

// Screener screens source units against a rule table.
type Screener struct {
	rules             []Rule
	defaultConfidence float64
	logger            *zap.Logger
}

// New builds a Screener over the built-in rule set.
func New(cfg config.ScreenerConfig) *Screener {
	return NewWithRules(cfg, DefaultRules)
}

// NewWithRules builds a Screener with an explicit rule set. Used by tests
// and by callers that load additional rule packs.
func NewWithRules(cfg config.ScreenerConfig, rules []Rule) *Screener {
	defaultConfidence := cfg.DefaultConfidence
	if defaultConfidence <= 0 || defaultConfidence > 1 {
		defaultConfidence = 0.6
	}
	return &Screener{
		rules:             rules,
		defaultConfidence: defaultConfidence,
		logger:            observability.GetLogger().Named("screener"),
	}
}

// Screen runs every applicable rule over every line of the unit. Findings
// are ordered by start line, then rule ID, so repeated runs over the same
// unit produce the same sequence.
func (s *Screener) Screen(unit *schemas.SourceUnit) []schemas.Finding {
	if unit == nil || unit.IsEmpty() {
		return nil
	}

	var findings []schemas.Finding
	numLines := unit.NumLines()
	for lineNo := 1; lineNo <= numLines; lineNo++ {
		line, ok := unit.Line(lineNo)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed, unit.Language) {
			continue
		}
		for _, rule := range s.rules {
			if !rule.AppliesTo(unit.Language) {
				continue
			}
			loc := rule.Pattern.FindStringIndex(line)
			if loc == nil {
				continue
			}
			confidence := rule.Confidence
			if confidence == 0 {
				confidence = s.defaultConfidence
			}
			findings = append(findings, schemas.Finding{
				ID:          uuid.New().String(),
				UnitID:      unit.ID,
				Origin:      schemas.OriginPattern,
				Category:    rule.Category,
				CWE:         rule.CWE,
				RuleID:      rule.ID,
				Span:        schemas.Span{StartLine: lineNo, StartCol: loc[0] + 1, EndLine: lineNo, EndCol: loc[1]},
				Description: rule.Description,
				Evidence:    trimmed,
				Confidence:  confidence,
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Span.StartLine != findings[j].Span.StartLine {
			return findings[i].Span.StartLine < findings[j].Span.StartLine
		}
		return findings[i].RuleID < findings[j].RuleID
	})

	if len(findings) > 0 {
		s.logger.Debug("pattern screen complete",
			zap.String("unit", unit.Name),
			zap.Int("findings", len(findings)))
	}
	return findings
}

// isCommentLine filters full-line comments so rule text inside prose does
// not fire. Inline trailing comments are intentionally still scanned.
func isCommentLine(trimmed, language string) bool {
	switch language {
	case "python", "ruby", "shell":
		return strings.HasPrefix(trimmed, "#")
	case "go", "javascript", "typescript", "java", "c", "cpp":
		return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "/*")
	default:
		return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//")
	}
}
