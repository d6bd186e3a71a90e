package engine

import (
	"strings"
)

// exploitKeywords mark findings whose rationale suggests exploitation needs
// no special conditions. Their presence adds a flat triage bonus.
var exploitKeywords = []string{"easy", "trivial", "simple", "straightforward"}

const exploitBonus = 1.0

// riskScore computes the composite triage score: the CVSS base score
// weighted by detection confidence, plus the exploitability bonus when the
// finding's own text signals a low exploitation bar. Capped at 10.0.
func riskScore(baseScore, confidence float64, texts ...string) float64 {
	score := baseScore * confidence

	for _, text := range texts {
		lower := strings.ToLower(text)
		hit := false
		for _, kw := range exploitKeywords {
			if strings.Contains(lower, kw) {
				score += exploitBonus
				hit = true
				break
			}
		}
		if hit {
			break
		}
	}

	if score > 10.0 {
		score = 10.0
	}
	return score
}
