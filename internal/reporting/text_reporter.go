package reporting

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hexborne/vulndetective/api/schemas"
)

// TextReporter renders a human-readable summary for terminal use.
type TextReporter struct {
	writer io.WriteCloser
}

// NewTextReporter creates a text reporter that takes ownership of writer.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

// Write renders the set.
func (r *TextReporter) Write(ctx context.Context, set *schemas.ResultSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scan %s\n", set.ScanID)
	fmt.Fprintf(&sb, "Units analyzed: %d, findings: %d\n",
		set.Summary["total_units"], set.Summary["total_findings"])
	if degraded := set.Summary["degraded_units"]; degraded > 0 {
		fmt.Fprintf(&sb, "Degraded units: %d (semantic analysis incomplete)\n", degraded)
	}
	sb.WriteString("\n")

	for _, unit := range set.Units {
		fmt.Fprintf(&sb, "== %s", unit.UnitName)
		if unit.Degraded {
			sb.WriteString(" [degraded]")
		}
		sb.WriteString(" ==\n")

		if len(unit.Findings) == 0 {
			sb.WriteString("  no findings\n\n")
			continue
		}
		for _, f := range unit.Findings {
			fmt.Fprintf(&sb, "  [%s] %s (risk %.1f)\n", strings.ToUpper(string(f.Severity)), f.Category, f.RiskScore)
			fmt.Fprintf(&sb, "    lines %d-%d", f.Span.StartLine, f.Span.EndLine)
			if f.CWE != "" {
				fmt.Fprintf(&sb, ", %s", f.CWE)
			}
			fmt.Fprintf(&sb, ", %s, confidence %.2f\n", f.Provenance, f.Confidence)
			if f.Description != "" {
				fmt.Fprintf(&sb, "    %s\n", f.Description)
			}
		}
		for _, w := range unit.Warnings {
			fmt.Fprintf(&sb, "  warning: %s\n", w)
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(r.writer, sb.String())
	return err
}

// Close releases the underlying writer.
func (r *TextReporter) Close() error {
	return r.writer.Close()
}
