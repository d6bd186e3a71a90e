package schemas

import (
	"context"
	"time"
)

// -- Result Schemas --

// UnitResult is the ordered, scored outcome for one SourceUnit. Degraded means
// the semantic pass failed fatally and the findings are screener-derived only.
type UnitResult struct {
	UnitID   string          `json:"unit_id"`
	UnitName string          `json:"unit_name"`
	Language string          `json:"language,omitempty"`
	Degraded bool            `json:"degraded"`
	Warnings []string        `json:"warnings,omitempty"`
	Findings []ScoredFinding `json:"findings"`
}

// ResultSet is the contract consumed by the external reporter, patch generator
// and exploit generator: every unit's scored findings for one scan.
type ResultSet struct {
	ScanID    string         `json:"scan_id"`
	StartedAt time.Time      `json:"started_at"`
	Units     []UnitResult   `json:"units"`
	Summary   map[string]int `json:"summary"`
}

// Findings returns all scored findings across units in report order.
func (r *ResultSet) Findings() []ScoredFinding {
	var out []ScoredFinding
	for _, u := range r.Units {
		out = append(out, u.Findings...)
	}
	return out
}

// -- External Collaborator Interfaces --

// SourceAcquirer supplies decoded, language-tagged SourceUnits for a local
// path, directory, or remote URL. Acquisition is strictly outside the scoring
// core.
type SourceAcquirer interface {
	Acquire(ctx context.Context, target string) ([]*SourceUnit, error)
}

// Reporter renders a completed ResultSet. Rendering lives outside this core;
// the engine only guarantees the record-set contract above.
type Reporter interface {
	Write(ctx context.Context, set *ResultSet) error
}

// FindingStore persists scored findings for later retrieval, keyed by scan ID.
type FindingStore interface {
	PersistResults(ctx context.Context, set *ResultSet) error
	GetFindingsByScanID(ctx context.Context, scanID string) ([]ScoredFinding, error)
}
