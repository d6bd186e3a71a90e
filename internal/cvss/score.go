package cvss

import (
	"math"

	"github.com/hexborne/vulndetective/api/schemas"
)

// Score holds the numeric results of evaluating a vector. Temporal and
// Environmental are nil when their metric groups were not supplied.
type Score struct {
	Base          float64
	Temporal      *float64
	Environmental *float64
	Severity      schemas.Severity
}

// Effective returns the most specific score available: environmental, then
// temporal, then base.
func (s Score) Effective() float64 {
	if s.Environmental != nil {
		return *s.Environmental
	}
	if s.Temporal != nil {
		return *s.Temporal
	}
	return s.Base
}

// Metric weight tables from the CVSS 3.1 specification, section 7.4.

var avWeights = map[string]float64{"N": 0.85, "A": 0.62, "L": 0.55, "P": 0.2}
var acWeights = map[string]float64{"L": 0.77, "H": 0.44}
var uiWeights = map[string]float64{"N": 0.85, "R": 0.62}
var ciaWeights = map[string]float64{"N": 0.0, "L": 0.22, "H": 0.56}

// PR weight depends on whether the vulnerability changes scope.
var prWeightsUnchanged = map[string]float64{"N": 0.85, "L": 0.62, "H": 0.27}
var prWeightsChanged = map[string]float64{"N": 0.85, "L": 0.68, "H": 0.5}

var eWeights = map[string]float64{"X": 1.0, "U": 0.91, "P": 0.94, "F": 0.97, "H": 1.0}
var rlWeights = map[string]float64{"X": 1.0, "O": 0.95, "T": 0.96, "W": 0.97, "U": 1.0}
var rcWeights = map[string]float64{"X": 1.0, "U": 0.92, "R": 0.96, "C": 1.0}
var reqWeights = map[string]float64{"X": 1.0, "L": 0.5, "M": 1.0, "H": 1.5}

// roundup implements the Roundup function from the specification, appendix A:
// the smallest number, specified to one decimal place, that is equal to or
// higher than its input. Integer arithmetic avoids floating point drift.
func roundup(v float64) float64 {
	i := int(math.Round(v * 100000))
	if i%10000 == 0 {
		return float64(i) / 100000.0
	}
	return (math.Floor(float64(i)/10000.0) + 1) / 10.0
}

// SeverityOf maps a numeric score to its qualitative band.
func SeverityOf(score float64) schemas.Severity {
	switch {
	case score <= 0.0:
		return schemas.SeverityNone
	case score < 4.0:
		return schemas.SeverityLow
	case score < 7.0:
		return schemas.SeverityMedium
	case score < 9.0:
		return schemas.SeverityHigh
	default:
		return schemas.SeverityCritical
	}
}

// Calculate evaluates a validated vector. The function is pure and
// deterministic; it never fails because a Vector is valid by construction.
func Calculate(v Vector) Score {
	base := baseScore(v)
	s := Score{Base: base}

	if v.HasTemporal() {
		t := temporalScore(base, v)
		s.Temporal = &t
	}
	if v.HasEnvironmental() {
		e := environmentalScore(v)
		s.Environmental = &e
	}

	s.Severity = SeverityOf(s.Effective())
	return s
}

func baseScore(v Vector) float64 {
	iss := 1.0 - (1.0-ciaWeights[v.C])*(1.0-ciaWeights[v.I])*(1.0-ciaWeights[v.A])

	var impact float64
	if v.S == "U" {
		impact = 6.42 * iss
	} else {
		impact = 7.52*(iss-0.029) - 3.25*math.Pow(iss-0.02, 15)
	}

	if impact <= 0 {
		return 0.0
	}

	exploitability := 8.22 * avWeights[v.AV] * acWeights[v.AC] * prWeight(v.PR, v.S) * uiWeights[v.UI]

	if v.S == "U" {
		return roundup(math.Min(impact+exploitability, 10.0))
	}
	return roundup(math.Min(1.08*(impact+exploitability), 10.0))
}

// temporalScore layers the temporal modifiers onto the already-rounded base
// score, per the specification.
func temporalScore(base float64, v Vector) float64 {
	return roundup(base * eWeights[v.E] * rlWeights[v.RL] * rcWeights[v.RC])
}

// environmentalScore recomputes the score with modified base metrics and
// security requirements. A modified metric of "X" inherits the base value.
func environmentalScore(v Vector) float64 {
	mav := orBase(v.MAV, v.AV)
	mac := orBase(v.MAC, v.AC)
	mpr := orBase(v.MPR, v.PR)
	mui := orBase(v.MUI, v.UI)
	ms := orBase(v.MS, v.S)
	mc := orBase(v.MC, v.C)
	mi := orBase(v.MI, v.I)
	ma := orBase(v.MA, v.A)

	miss := math.Min(
		1.0-(1.0-reqWeights[v.CR]*ciaWeights[mc])*
			(1.0-reqWeights[v.IR]*ciaWeights[mi])*
			(1.0-reqWeights[v.AR]*ciaWeights[ma]),
		0.915,
	)

	var modImpact float64
	if ms == "U" {
		modImpact = 6.42 * miss
	} else {
		modImpact = 7.52*(miss-0.029) - 3.25*math.Pow(miss*0.9731-0.02, 13)
	}

	if modImpact <= 0 {
		return 0.0
	}

	modExploitability := 8.22 * avWeights[mav] * acWeights[mac] * prWeight(mpr, ms) * uiWeights[mui]

	temporalFactor := eWeights[v.E] * rlWeights[v.RL] * rcWeights[v.RC]
	if ms == "U" {
		return roundup(roundup(math.Min(modImpact+modExploitability, 10.0)) * temporalFactor)
	}
	return roundup(roundup(math.Min(1.08*(modImpact+modExploitability), 10.0)) * temporalFactor)
}

func prWeight(pr, scope string) float64 {
	if scope == "C" {
		return prWeightsChanged[pr]
	}
	return prWeightsUnchanged[pr]
}

func orBase(modified, base string) string {
	if modified == "X" || modified == "" {
		return base
	}
	return modified
}

// ScoreString parses and evaluates a vector string in one step. This is the
// entry point the engine uses when scoring canonical findings.
func ScoreString(s string) (Score, error) {
	v, err := Parse(s)
	if err != nil {
		return Score{}, err
	}
	return Calculate(v), nil
}
