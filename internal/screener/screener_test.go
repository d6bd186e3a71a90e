package screener

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
)

func newTestScreener() *Screener {
	return New(config.ScreenerConfig{DefaultConfidence: 0.6})
}

func unit(t *testing.T, name, language, text string) *schemas.SourceUnit {
	t.Helper()
	return schemas.NewSourceUnit(name, language, text)
}

func TestScreenEmptyUnit(t *testing.T) {
	s := newTestScreener()
	assert.Nil(t, s.Screen(nil))
}

func TestScreenDetectsSQLInjection(t *testing.T) {
	src := "import db\n" +
		"def lookup(name):\n" +
		"    query = \"SELECT * FROM users WHERE name = '\" + name + \"'\"\n" +
		"    return db.execute(query)\n"
	findings := newTestScreener().Screen(unit(t, "lookup.py", "python", src))

	require.NotEmpty(t, findings)
	f := findings[0]
	assert.Equal(t, schemas.OriginPattern, f.Origin)
	assert.Equal(t, schemas.CategorySQLInjection, f.Category)
	assert.Equal(t, "CWE-89", f.CWE)
	assert.Equal(t, "VD001", f.RuleID)
	assert.Equal(t, 3, f.Span.StartLine)
	assert.Equal(t, 3, f.Span.EndLine)
	assert.Contains(t, f.Evidence, "SELECT * FROM users")
	assert.Equal(t, 0.7, f.Confidence)
	assert.Empty(t, f.Provenance, "raw findings carry no provenance")
}

func TestScreenLanguageScopedRules(t *testing.T) {
	cSrc := "#include <string.h>\nvoid f(char *in) {\n    char buf[16];\n    strcpy(buf, in);\n}\n"

	t.Run("fires for c", func(t *testing.T) {
		findings := newTestScreener().Screen(unit(t, "f.c", "c", cSrc))
		require.Len(t, findings, 1)
		assert.Equal(t, schemas.CategoryBufferOverflow, findings[0].Category)
		assert.Equal(t, 4, findings[0].Span.StartLine)
	})

	t.Run("silent for python", func(t *testing.T) {
		findings := newTestScreener().Screen(unit(t, "f.py", "python", "strcpy(buf, in)\n"))
		assert.Empty(t, findings)
	})
}

func TestScreenGenericRulesApplyToUnknownLanguage(t *testing.T) {
	src := "api_key = \"sk-live-0123456789abcdef\"\n"
	findings := newTestScreener().Screen(unit(t, "settings.conf", "", src))
	require.Len(t, findings, 1)
	assert.Equal(t, schemas.CategoryHardcodedSecret, findings[0].Category)
}

func TestScreenSkipsCommentLines(t *testing.T) {
	src := "# password = \"hunter2secret\"\nvalue = 1\n"
	findings := newTestScreener().Screen(unit(t, "cfg.py", "python", src))
	assert.Empty(t, findings)
}

func TestScreenOrderingAndDeterminism(t *testing.T) {
	src := "import os, pickle\n" +
		"os.system(\"convert \" + path)\n" +
		"data = pickle.loads(blob)\n" +
		"h = md5(data)\n"
	u := unit(t, "tool.py", "python", src)
	s := newTestScreener()

	first := s.Screen(u)
	require.GreaterOrEqual(t, len(first), 3)
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		ordered := prev.Span.StartLine < cur.Span.StartLine ||
			(prev.Span.StartLine == cur.Span.StartLine && prev.RuleID <= cur.RuleID)
		assert.True(t, ordered, "findings must be ordered by line then rule ID")
	}

	second := s.Screen(u)
	diff := cmp.Diff(first, second, cmpopts.IgnoreFields(schemas.Finding{}, "ID"))
	assert.Empty(t, diff, "repeated screens must agree apart from assigned IDs")
}

func TestScreenMultipleRulesSameLine(t *testing.T) {
	src := "db.execute(\"SELECT * FROM t WHERE id=\" + uid)\n"
	findings := newTestScreener().Screen(unit(t, "q.py", "python", src))
	require.Len(t, findings, 2)
	assert.Equal(t, "VD001", findings[0].RuleID)
	assert.Equal(t, "VD002", findings[1].RuleID)
}
