package screener

import (
	"regexp"

	"github.com/hexborne/vulndetective/api/schemas"
)

// Rule is a single deterministic detection pattern. A rule fires when its
// expression matches a source line for one of the rule's languages.
type Rule struct {
	ID          string
	Category    string
	CWE         string
	Description string
	// Confidence reflects how rarely the pattern appears in benign code.
	// Zero means "use the configured default".
	Confidence float64
	// Languages restricts the rule; empty means it applies everywhere.
	Languages []string
	Pattern   *regexp.Regexp
}

// AppliesTo reports whether the rule should run against the given language.
func (r Rule) AppliesTo(language string) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range r.Languages {
		if l == language {
			return true
		}
	}
	return false
}

// DefaultRules is the built-in rule set, ordered by rule ID. The IDs are
// stable; reports and suppressions reference them.
var DefaultRules = []Rule{
	{
		ID:          "VD001",
		Category:    schemas.CategorySQLInjection,
		CWE:         "CWE-89",
		Description: "SQL statement built with string concatenation or interpolation",
		Confidence:  0.7,
		Pattern:     regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE)\s+.*(\+\s*\w|%s|%\(|\|\||\$\{|f["'])`),
	},
	{
		ID:          "VD002",
		Category:    schemas.CategorySQLInjection,
		CWE:         "CWE-89",
		Description: "Query executed with formatted string instead of bound parameters",
		Confidence:  0.65,
		Pattern:     regexp.MustCompile(`(?i)(execute|query|exec)\s*\(\s*(f["']|["'].*%s|.*\.format\(|.*\+\s*\w)`),
	},
	{
		ID:          "VD010",
		Category:    schemas.CategoryCommandInjection,
		CWE:         "CWE-78",
		Description: "Shell command constructed from dynamic input",
		Confidence:  0.75,
		Languages:   []string{"python"},
		Pattern:     regexp.MustCompile(`(os\.system|os\.popen|subprocess\.(call|run|Popen|check_output))\s*\(.*(\+|%s|\.format\(|f["']|shell\s*=\s*True)`),
	},
	{
		ID:          "VD011",
		Category:    schemas.CategoryCommandInjection,
		CWE:         "CWE-78",
		Description: "Process spawned through a shell with interpolated arguments",
		Confidence:  0.7,
		Languages:   []string{"javascript"},
		Pattern:     regexp.MustCompile("(child_process|cp)\\.(exec|execSync)\\s*\\(\\s*(`|[\"'].*\\+|\\w+\\s*\\+)"),
	},
	{
		ID:          "VD012",
		Category:    schemas.CategoryCommandInjection,
		CWE:         "CWE-78",
		Description: "Command string passed to a shell interpreter",
		Confidence:  0.6,
		Languages:   []string{"go"},
		Pattern:     regexp.MustCompile(`exec\.Command(Context)?\s*\(\s*"(sh|bash|cmd)"`),
	},
	{
		ID:          "VD020",
		Category:    schemas.CategoryBufferOverflow,
		CWE:         "CWE-120",
		Description: "Unbounded copy into a fixed-size buffer",
		Confidence:  0.8,
		Languages:   []string{"c", "cpp"},
		Pattern:     regexp.MustCompile(`\b(strcpy|strcat|sprintf|gets|vsprintf|scanf)\s*\(`),
	},
	{
		ID:          "VD030",
		Category:    schemas.CategoryXSS,
		CWE:         "CWE-79",
		Description: "Untrusted value written into the DOM without encoding",
		Confidence:  0.65,
		Languages:   []string{"javascript"},
		Pattern:     regexp.MustCompile(`(innerHTML\s*=|outerHTML\s*=|document\.write\s*\(|dangerouslySetInnerHTML)`),
	},
	{
		ID:          "VD031",
		Category:    schemas.CategoryXSS,
		CWE:         "CWE-79",
		Description: "Template autoescaping disabled or raw markup rendered",
		Confidence:  0.6,
		Languages:   []string{"python"},
		Pattern:     regexp.MustCompile(`(\|\s*safe\b|mark_safe\s*\(|autoescape\s*=\s*False|Markup\s*\()`),
	},
	{
		ID:          "VD040",
		Category:    schemas.CategoryPathTraversal,
		CWE:         "CWE-22",
		Description: "File path assembled from request-controlled input",
		Confidence:  0.6,
		Pattern:     regexp.MustCompile(`(?i)(open|readfile|sendfile|os\.path\.join|filepath\.Join)\s*\(.*(request\.|params|query|req\.|argv|\.\./)`),
	},
	{
		ID:          "VD050",
		Category:    schemas.CategoryCodeInjection,
		CWE:         "CWE-95",
		Description: "Dynamic code evaluation of runtime data",
		Confidence:  0.75,
		Pattern:     regexp.MustCompile(`\b(eval|exec)\s*\(\s*[^)"'\s]`),
	},
	{
		ID:          "VD060",
		Category:    schemas.CategoryFormatString,
		CWE:         "CWE-134",
		Description: "Externally controlled format string",
		Confidence:  0.7,
		Languages:   []string{"c", "cpp"},
		Pattern:     regexp.MustCompile(`\b(printf|fprintf|syslog)\s*\(\s*[a-z_][a-zA-Z0-9_]*\s*[,)]`),
	},
	{
		ID:          "VD070",
		Category:    schemas.CategoryHardcodedSecret,
		CWE:         "CWE-798",
		Description: "Credential or API key embedded in source",
		Confidence:  0.55,
		Pattern:     regexp.MustCompile(`(?i)(password|passwd|secret|api_?key|access_?token)\s*[:=]\s*["'][^"']{6,}["']`),
	},
	{
		ID:          "VD080",
		Category:    schemas.CategoryWeakCrypto,
		CWE:         "CWE-327",
		Description: "Broken or weak cryptographic primitive",
		Confidence:  0.7,
		Pattern:     regexp.MustCompile(`(?i)\b(md5|sha1|des|rc4|ecb)\s*(\(|\.)`),
	},
	{
		ID:          "VD090",
		Category:    schemas.CategoryInsecureDeserial,
		CWE:         "CWE-502",
		Description: "Deserialization of untrusted data",
		Confidence:  0.7,
		Languages:   []string{"python"},
		Pattern:     regexp.MustCompile(`(pickle\.loads?\s*\(|yaml\.load\s*\((?:[^)]*[^e)])?\)|marshal\.loads?\s*\()`),
	},
}
