package cvss

import (
	"errors"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidBaseVector(t *testing.T) {
	v, err := Parse("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
	require.NoError(t, err)

	assert.Equal(t, "N", v.AV)
	assert.Equal(t, "L", v.AC)
	assert.Equal(t, "N", v.PR)
	assert.Equal(t, "N", v.UI)
	assert.Equal(t, "U", v.S)
	assert.Equal(t, "H", v.C)
	assert.Equal(t, "H", v.I)
	assert.Equal(t, "H", v.A)

	// Omitted optional metrics normalize to the explicit "not defined" value.
	assert.Equal(t, "X", v.E)
	assert.Equal(t, "X", v.MAV)
	assert.False(t, v.HasTemporal())
	assert.False(t, v.HasEnvironmental())
}

func TestParse_TemporalAndEnvironmental(t *testing.T) {
	v, err := Parse("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/E:F/RL:O/RC:C/CR:H/MAV:L")
	require.NoError(t, err)

	assert.True(t, v.HasTemporal())
	assert.True(t, v.HasEnvironmental())
	assert.Equal(t, "F", v.E)
	assert.Equal(t, "O", v.RL)
	assert.Equal(t, "C", v.RC)
	assert.Equal(t, "H", v.CR)
	assert.Equal(t, "L", v.MAV)
	// Untouched environmental metrics stay not defined.
	assert.Equal(t, "X", v.MS)
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		vector string
	}{
		{"empty string", ""},
		{"wrong version prefix", "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
		{"missing PR metric", "CVSS:3.1/AV:N/AC:L/UI:N/S:U/C:H/I:H/A:H"},
		{"missing trailing availability", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H"},
		{"duplicated metric", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/A:H"},
		{"out of order base metrics", "CVSS:3.1/AC:L/AV:N/PR:N/UI:N/S:U/C:H/I:H/A:H"},
		{"out of order temporal metrics", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/RL:O/E:F"},
		{"value outside domain", "CVSS:3.1/AV:Z/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
		{"unknown metric", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/ZZ:N"},
		{"segment without value", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A"},
		{"base only prefix", "CVSS:3.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.vector)
			require.Error(t, err)

			var verr *VectorError
			require.True(t, errors.As(err, &verr), "error must be a *VectorError")
			assert.Equal(t, tc.vector, verr.Vector)
		})
	}
}

func TestParse_MissingPRNeverScores(t *testing.T) {
	s, err := ScoreString("CVSS:3.1/AV:N/AC:L/UI:N/S:U/C:H/I:H/A:H")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PR")
	assert.Zero(t, s.Base)
}

func TestVector_StringRoundTrip(t *testing.T) {
	inputs := []string{
		"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
		"CVSS:3.1/AV:L/AC:H/PR:H/UI:R/S:C/C:N/I:L/A:H",
		"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/E:F/RL:O/RC:C",
		"CVSS:3.1/AV:A/AC:L/PR:L/UI:R/S:U/C:L/I:L/A:N/CR:L/IR:M/AR:H/MAV:P/MS:C",
	}
	for _, in := range inputs {
		v, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, v.String())
	}
}

// FuzzParse asserts the parser never panics and that every accepted vector
// survives a render/reparse cycle unchanged.
func FuzzParse(f *testing.F) {
	f.Add([]byte("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"))
	f.Add([]byte("CVSS:3.1/AV:P/AC:H/PR:H/UI:R/S:C/C:N/I:N/A:N/E:U/RL:U/RC:U"))
	f.Add([]byte("CVSS:3.1/"))

	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		s, err := fuzzConsumer.GetString()
		if err != nil {
			return
		}

		v, err := Parse(s)
		if err != nil {
			return
		}

		reparsed, err := Parse(v.String())
		require.NoError(t, err)
		require.Equal(t, v, reparsed)
	})
}
