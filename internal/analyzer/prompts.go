package analyzer

import (
	"fmt"
	"strings"

	"github.com/hexborne/vulndetective/api/schemas"
)

const systemPrompt = `You are a security code auditor. You review source code for exploitable vulnerabilities.

Report only real, concrete weaknesses in the code you are shown. Do not report style issues, missing hardening, or speculative concerns without a code path.

Respond with a JSON array only. Each element has this shape:
{
  "category": "<one of the known categories, or a concise name>",
  "cwe": "CWE-<number>",
  "description": "<one sentence: what is wrong and where>",
  "confidence": <0.0 to 1.0>,
  "rationale": "<why this is exploitable, referencing the code>",
  "line_start": <absolute line number>,
  "line_end": <absolute line number>
}

Use the absolute line numbers printed in the left margin of the code. If the code contains no vulnerabilities, respond with [].`

// buildChunkPrompt renders one chunk as a numbered listing so the model
// reports findings in absolute unit coordinates. Screener hints inside the
// window are listed as candidates to confirm or refute.
func buildChunkPrompt(unit *schemas.SourceUnit, chunk Chunk, hints []schemas.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n", unit.Name)
	if unit.Language != "" {
		fmt.Fprintf(&sb, "Language: %s\n", unit.Language)
	}
	fmt.Fprintf(&sb, "Lines %d-%d of %d:\n\n", chunk.StartLine, chunk.EndLine, unit.NumLines())

	lines := strings.Split(chunk.Text, "\n")
	for i, line := range lines {
		fmt.Fprintf(&sb, "%5d | %s\n", chunk.StartLine+i, line)
	}

	if len(hints) > 0 {
		sb.WriteString("\nA pattern screener flagged these candidates; confirm or refute each, and report anything it missed:\n")
		for _, h := range hints {
			fmt.Fprintf(&sb, "- line %d: %s (%s)\n", h.Span.StartLine, h.Category, h.Description)
		}
	}

	sb.WriteString("\nKnown categories: ")
	sb.WriteString(strings.Join(schemas.KnownCategories, ", "))
	sb.WriteString("\n\nList every vulnerability visible in these lines as a JSON array.")
	return sb.String()
}
