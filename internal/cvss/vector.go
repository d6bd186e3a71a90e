// Package cvss implements the published CVSS 3.1 vector format and scoring
// algorithm. Vectors are only constructible from a fully valid metric set;
// partially specified vectors never exist as values.
package cvss

import (
	"fmt"
	"strings"
)

const prefix = "CVSS:3.1"

// VectorError reports a malformed vector string. Construction fails and no
// scoring is ever attempted on the input.
type VectorError struct {
	Vector string
	Reason string
}

func (e *VectorError) Error() string {
	return fmt.Sprintf("invalid CVSS vector %q: %s", e.Vector, e.Reason)
}

// metricSpec describes one metric position in the canonical vector ordering.
type metricSpec struct {
	key      string
	required bool
	domain   []string
}

// Canonical metric ordering per the CVSS 3.1 specification, section 6.
// Parsing is strict and order-sensitive: base metrics are mandatory and must
// appear in this order; temporal and environmental metrics are optional but
// may not repeat or appear out of order.
var metricOrder = []metricSpec{
	{"AV", true, []string{"N", "A", "L", "P"}},
	{"AC", true, []string{"L", "H"}},
	{"PR", true, []string{"N", "L", "H"}},
	{"UI", true, []string{"N", "R"}},
	{"S", true, []string{"U", "C"}},
	{"C", true, []string{"N", "L", "H"}},
	{"I", true, []string{"N", "L", "H"}},
	{"A", true, []string{"N", "L", "H"}},
	{"E", false, []string{"X", "U", "P", "F", "H"}},
	{"RL", false, []string{"X", "O", "T", "W", "U"}},
	{"RC", false, []string{"X", "U", "R", "C"}},
	{"CR", false, []string{"X", "L", "M", "H"}},
	{"IR", false, []string{"X", "L", "M", "H"}},
	{"AR", false, []string{"X", "L", "M", "H"}},
	{"MAV", false, []string{"X", "N", "A", "L", "P"}},
	{"MAC", false, []string{"X", "L", "H"}},
	{"MPR", false, []string{"X", "N", "L", "H"}},
	{"MUI", false, []string{"X", "N", "R"}},
	{"MS", false, []string{"X", "U", "C"}},
	{"MC", false, []string{"X", "N", "L", "H"}},
	{"MI", false, []string{"X", "N", "L", "H"}},
	{"MA", false, []string{"X", "N", "L", "H"}},
}

// Vector is a validated CVSS 3.1 metric set. Base metrics are always present;
// optional metrics hold "X" (not defined) when omitted from the source string.
type Vector struct {
	// Base metrics.
	AV, AC, PR, UI, S, C, I, A string
	// Temporal metrics.
	E, RL, RC string
	// Environmental metrics.
	CR, IR, AR                         string
	MAV, MAC, MPR, MUI, MS, MC, MI, MA string
}

// Parse validates a vector string and constructs a Vector. Any missing,
// duplicated, out-of-order or out-of-domain metric yields a *VectorError.
func Parse(s string) (Vector, error) {
	fail := func(reason string) (Vector, error) {
		return Vector{}, &VectorError{Vector: s, Reason: reason}
	}

	parts := strings.Split(s, "/")
	if parts[0] != prefix {
		return fail(`must begin with "CVSS:3.1"`)
	}

	var v Vector
	pos := 0 // Cursor into metricOrder; only moves forward.
	for _, part := range parts[1:] {
		key, val, ok := strings.Cut(part, ":")
		if !ok || key == "" || val == "" {
			return fail(fmt.Sprintf("malformed metric segment %q", part))
		}

		// Advance the cursor to this metric, requiring every skipped
		// mandatory metric to have been seen already.
		idx := -1
		for i := pos; i < len(metricOrder); i++ {
			if metricOrder[i].key == key {
				idx = i
				break
			}
			if metricOrder[i].required {
				return fail(fmt.Sprintf("missing required metric %s before %s", metricOrder[i].key, key))
			}
		}
		if idx == -1 {
			if knownMetric(key) {
				return fail(fmt.Sprintf("metric %s duplicated or out of order", key))
			}
			return fail(fmt.Sprintf("unknown metric %s", key))
		}

		spec := metricOrder[idx]
		if !inDomain(val, spec.domain) {
			return fail(fmt.Sprintf("metric %s has invalid value %q", key, val))
		}
		v.set(key, val)
		pos = idx + 1
	}

	// Any mandatory metric left beyond the cursor was never supplied.
	for i := pos; i < len(metricOrder); i++ {
		if metricOrder[i].required {
			return fail(fmt.Sprintf("missing required metric %s", metricOrder[i].key))
		}
	}

	v.fillNotDefined()
	return v, nil
}

// MustParse is a test and table-literal helper; it panics on invalid input.
func MustParse(s string) Vector {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func knownMetric(key string) bool {
	for _, m := range metricOrder {
		if m.key == key {
			return true
		}
	}
	return false
}

func inDomain(val string, domain []string) bool {
	for _, d := range domain {
		if val == d {
			return true
		}
	}
	return false
}

func (v *Vector) set(key, val string) {
	switch key {
	case "AV":
		v.AV = val
	case "AC":
		v.AC = val
	case "PR":
		v.PR = val
	case "UI":
		v.UI = val
	case "S":
		v.S = val
	case "C":
		v.C = val
	case "I":
		v.I = val
	case "A":
		v.A = val
	case "E":
		v.E = val
	case "RL":
		v.RL = val
	case "RC":
		v.RC = val
	case "CR":
		v.CR = val
	case "IR":
		v.IR = val
	case "AR":
		v.AR = val
	case "MAV":
		v.MAV = val
	case "MAC":
		v.MAC = val
	case "MPR":
		v.MPR = val
	case "MUI":
		v.MUI = val
	case "MS":
		v.MS = val
	case "MC":
		v.MC = val
	case "MI":
		v.MI = val
	case "MA":
		v.MA = val
	}
}

func (v *Vector) get(key string) string {
	switch key {
	case "AV":
		return v.AV
	case "AC":
		return v.AC
	case "PR":
		return v.PR
	case "UI":
		return v.UI
	case "S":
		return v.S
	case "C":
		return v.C
	case "I":
		return v.I
	case "A":
		return v.A
	case "E":
		return v.E
	case "RL":
		return v.RL
	case "RC":
		return v.RC
	case "CR":
		return v.CR
	case "IR":
		return v.IR
	case "AR":
		return v.AR
	case "MAV":
		return v.MAV
	case "MAC":
		return v.MAC
	case "MPR":
		return v.MPR
	case "MUI":
		return v.MUI
	case "MS":
		return v.MS
	case "MC":
		return v.MC
	case "MI":
		return v.MI
	case "MA":
		return v.MA
	}
	return ""
}

// fillNotDefined normalizes omitted optional metrics to the explicit "X" value
// so the calculator never branches on empty strings.
func (v *Vector) fillNotDefined() {
	for _, spec := range metricOrder {
		if !spec.required && v.get(spec.key) == "" {
			v.set(spec.key, "X")
		}
	}
}

// HasTemporal reports whether any temporal metric was supplied.
func (v Vector) HasTemporal() bool {
	return v.E != "X" || v.RL != "X" || v.RC != "X"
}

// HasEnvironmental reports whether any environmental metric was supplied.
func (v Vector) HasEnvironmental() bool {
	for _, m := range []string{v.CR, v.IR, v.AR, v.MAV, v.MAC, v.MPR, v.MUI, v.MS, v.MC, v.MI, v.MA} {
		if m != "X" {
			return true
		}
	}
	return false
}

// String renders the canonical vector form, omitting not-defined optional
// metrics. Parse(v.String()) always succeeds for a valid Vector.
func (v Vector) String() string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, spec := range metricOrder {
		val := v.get(spec.key)
		if !spec.required && (val == "" || val == "X") {
			continue
		}
		b.WriteByte('/')
		b.WriteString(spec.key)
		b.WriteByte(':')
		b.WriteString(val)
	}
	return b.String()
}
