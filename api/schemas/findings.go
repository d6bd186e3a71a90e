package schemas

// -- Finding Schemas --

// Origin tags which detection pass produced a raw finding.
type Origin string

const (
	OriginPattern  Origin = "pattern"  // Produced by the deterministic pattern screener.
	OriginSemantic Origin = "semantic" // Produced by the AI-backed semantic analyzer.
)

// Provenance records how a canonical finding was corroborated. A degraded
// analysis surfaces as a set containing only heuristic-only entries.
type Provenance string

const (
	ProvenanceHeuristic    Provenance = "heuristic-only"
	ProvenanceAI           Provenance = "ai-only"
	ProvenanceCorroborated Provenance = "corroborated"
)

// Severity bands map numeric CVSS scores to qualitative labels. The values are
// lowercase to align with database ENUMs.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank orders severities for sorting, critical first. Unknown values
// sort last.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityNone:
		return 4
	default:
		return 5
	}
}

// Span locates a finding inside one SourceUnit. Lines and columns are 1-based;
// a zero column means "whole line".
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col,omitempty"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col,omitempty"`
}

// Overlaps reports whether two spans share at least one line after expanding
// each by tolerance lines in both directions.
func (s Span) Overlaps(other Span, tolerance int) bool {
	return s.StartLine-tolerance <= other.EndLine && other.StartLine-tolerance <= s.EndLine
}

// Within reports whether the span lies entirely inside [startLine, endLine].
func (s Span) Within(startLine, endLine int) bool {
	return s.StartLine >= startLine && s.EndLine <= endLine
}

// Gap returns the number of lines separating two non-overlapping spans, or 0
// when they overlap.
func (s Span) Gap(other Span) int {
	switch {
	case s.EndLine < other.StartLine:
		return other.StartLine - s.EndLine
	case other.EndLine < s.StartLine:
		return s.StartLine - other.EndLine
	default:
		return 0
	}
}

// Finding is one suspected vulnerability in a SourceUnit. Findings are created
// by the screener and the analyzer, reconciled by the merger and never mutated
// in place; merging produces new values. Provenance is empty on raw findings
// and assigned by the merger.
type Finding struct {
	ID          string     `json:"id"`
	UnitID      string     `json:"unit_id"`
	Origin      Origin     `json:"origin"`
	Category    string     `json:"category"`
	CWE         string     `json:"cwe,omitempty"`
	RuleID      string     `json:"rule_id,omitempty"` // Screener rule that fired, kept for traceability.
	Span        Span       `json:"span"`
	Description string     `json:"description"`
	Evidence    string     `json:"evidence,omitempty"`
	Confidence  float64    `json:"confidence"`
	Rationale   string     `json:"rationale,omitempty"`
	Provenance  Provenance `json:"provenance,omitempty"`
}

// ScoredFinding is the terminal output of the engine: a canonical finding with
// its CVSS vector, numeric scores and severity band. Owned by the reporter
// after the engine emits it.
type ScoredFinding struct {
	Finding

	Vector        string   `json:"cvss_vector"`
	BaseScore     float64  `json:"base_score"`
	TemporalScore *float64 `json:"temporal_score,omitempty"`
	EnvScore      *float64 `json:"environmental_score,omitempty"`

	// RiskScore is the composite triage score: base score weighted by the
	// finding's confidence plus an exploitability bonus, capped at 10.0.
	RiskScore float64  `json:"risk_score"`
	Severity  Severity `json:"severity"`
}
