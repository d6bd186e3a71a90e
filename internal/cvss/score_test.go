package cvss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexborne/vulndetective/api/schemas"
)

func TestCalculate_BaseScores(t *testing.T) {
	cases := []struct {
		vector   string
		base     float64
		severity schemas.Severity
	}{
		// Remote unauthenticated full compromise, the classic 9.8.
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 9.8, schemas.SeverityCritical},
		// Scope change pushes the same impacts to a flat 10.0.
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H", 10.0, schemas.SeverityCritical},
		// Local, hard, privileged, user-assisted, low availability impact.
		{"CVSS:3.1/AV:L/AC:H/PR:H/UI:R/S:U/C:N/I:N/A:L", 1.8, schemas.SeverityLow},
		// Reflected XSS shape.
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N", 6.1, schemas.SeverityMedium},
		// Local information disclosure.
		{"CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:N/A:N", 5.5, schemas.SeverityMedium},
		// Network low-impact pair.
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:L/I:L/A:N", 6.5, schemas.SeverityMedium},
		// No impact at all scores zero regardless of exploitability.
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:N", 0.0, schemas.SeverityNone},
	}

	for _, tc := range cases {
		t.Run(tc.vector, func(t *testing.T) {
			s, err := ScoreString(tc.vector)
			require.NoError(t, err)

			assert.InDelta(t, tc.base, s.Base, 0.001)
			assert.Equal(t, tc.severity, s.Severity)
			assert.Nil(t, s.Temporal)
			assert.Nil(t, s.Environmental)
		})
	}
}

func TestCalculate_ScoreBounds(t *testing.T) {
	// Every combination of base metric values stays within [0, 10] and lands
	// exactly on a tenth.
	for _, av := range []string{"N", "A", "L", "P"} {
		for _, ac := range []string{"L", "H"} {
			for _, pr := range []string{"N", "L", "H"} {
				for _, scope := range []string{"U", "C"} {
					for _, c := range []string{"N", "L", "H"} {
						v := Vector{AV: av, AC: ac, PR: pr, UI: "N", S: scope, C: c, I: "L", A: "H"}
						v.fillNotDefined()
						s := Calculate(v)
						assert.GreaterOrEqual(t, s.Base, 0.0, v.String())
						assert.LessOrEqual(t, s.Base, 10.0, v.String())
						tenths := s.Base * 10
						assert.InDelta(t, math.Round(tenths), tenths, 1e-6,
							"score %v of %s is not a multiple of 0.1", s.Base, v.String())
					}
				}
			}
		}
	}
}

func TestCalculate_Temporal(t *testing.T) {
	s, err := ScoreString("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/E:F/RL:O/RC:C")
	require.NoError(t, err)

	assert.InDelta(t, 9.8, s.Base, 0.001)
	require.NotNil(t, s.Temporal)
	// 9.8 * 0.97 * 0.95 * 1.0 rounded up.
	assert.InDelta(t, 9.1, *s.Temporal, 0.001)
	assert.Equal(t, schemas.SeverityCritical, s.Severity)
	assert.InDelta(t, 9.1, s.Effective(), 0.001)
}

func TestCalculate_Environmental(t *testing.T) {
	t.Run("lowered security requirements reduce the score", func(t *testing.T) {
		s, err := ScoreString("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/CR:L/IR:L/AR:L")
		require.NoError(t, err)

		assert.InDelta(t, 9.8, s.Base, 0.001)
		require.NotNil(t, s.Environmental)
		assert.InDelta(t, 8.0, *s.Environmental, 0.001)
		assert.Equal(t, schemas.SeverityHigh, s.Severity)
	})

	t.Run("modified attack vector physical", func(t *testing.T) {
		s, err := ScoreString("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/MAV:P")
		require.NoError(t, err)

		require.NotNil(t, s.Environmental)
		assert.InDelta(t, 6.8, *s.Environmental, 0.001)
		assert.Equal(t, schemas.SeverityMedium, s.Severity)
	})
}

func TestRoundup(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.0, 0.0},
		{4.0, 4.0},
		{4.02, 4.1},
		{4.00001, 4.1},
		{9.7602, 9.8},
		{10.0, 10.0},
		// 8.6 is notorious for floating point representation drift; the
		// integer-based roundup must not bump it to 8.7.
		{8.6, 8.6},
		{1.745, 1.8},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, roundup(tc.in), 1e-9, "roundup(%v)", tc.in)
	}
}

func TestSeverityOf_Bands(t *testing.T) {
	assert.Equal(t, schemas.SeverityNone, SeverityOf(0.0))
	assert.Equal(t, schemas.SeverityLow, SeverityOf(0.1))
	assert.Equal(t, schemas.SeverityLow, SeverityOf(3.9))
	assert.Equal(t, schemas.SeverityMedium, SeverityOf(4.0))
	assert.Equal(t, schemas.SeverityMedium, SeverityOf(6.9))
	assert.Equal(t, schemas.SeverityHigh, SeverityOf(7.0))
	assert.Equal(t, schemas.SeverityHigh, SeverityOf(8.9))
	assert.Equal(t, schemas.SeverityCritical, SeverityOf(9.0))
	assert.Equal(t, schemas.SeverityCritical, SeverityOf(10.0))
}
