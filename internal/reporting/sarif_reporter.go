package reporting

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/observability"
	"github.com/hexborne/vulndetective/internal/reporting/sarif"
)

const (
	toolName     = "VulnDetective"
	toolInfoURI  = "https://github.com/hexborne/vulndetective"
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// ruleIDSanitizer keeps alphanumerics, underscores and dots; every other
// run of characters collapses to a single hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// SARIFReporter renders results in the SARIF 2.1.0 format, which CI
// systems and code hosts ingest natively. It is safe for concurrent Write
// calls; the log is serialized once on Close.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu        sync.Mutex
	log       *sarif.Log
	ruleIndex map[string]bool
	closed    bool
}

// NewSARIFReporter creates the reporter. It takes ownership of writer.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	log := &sarif.Log{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           toolName,
						Version:        pString(toolVersion),
						InformationURI: pString(toolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}
	return &SARIFReporter{
		writer:    writer,
		logger:    observability.GetLogger().Named("sarif_reporter"),
		log:       log,
		ruleIndex: make(map[string]bool),
	}
}

// Write appends every scored finding in the set to the log.
func (r *SARIFReporter) Write(ctx context.Context, set *schemas.ResultSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter already closed")
	}

	run := r.log.Runs[0]
	for _, unit := range set.Units {
		for _, f := range unit.Findings {
			ruleID := sarifRuleID(f)
			r.ensureRule(run, ruleID, f)

			message := f.Description
			if message == "" {
				message = f.Category
			}

			run.Results = append(run.Results, &sarif.Result{
				RuleID:  ruleID,
				Level:   severityToLevel(f.Severity),
				Message: &sarif.Message{Text: pString(message)},
				Locations: []*sarif.Location{
					{
						PhysicalLocation: &sarif.PhysicalLocation{
							ArtifactLocation: &sarif.ArtifactLocation{URI: pString(unit.UnitName)},
							Region: &sarif.Region{
								StartLine:   f.Span.StartLine,
								StartColumn: f.Span.StartCol,
								EndLine:     f.Span.EndLine,
								EndColumn:   f.Span.EndCol,
							},
						},
					},
				},
				Properties: &sarif.PropertyBag{
					"cvssVector": f.Vector,
					"cvssScore":  f.BaseScore,
					"riskScore":  f.RiskScore,
					"confidence": f.Confidence,
					"provenance": string(f.Provenance),
					"cwe":        f.CWE,
					"scanId":     set.ScanID,
				},
			})
		}
	}
	return nil
}

// Close serializes the accumulated log and releases the writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.log); err != nil {
		r.writer.Close()
		return fmt.Errorf("encode SARIF log: %w", err)
	}
	r.logger.Debug("SARIF report written", zap.Int("results", len(r.log.Runs[0].Results)))
	return r.writer.Close()
}

// ensureRule registers the rule descriptor once per distinct rule ID.
func (r *SARIFReporter) ensureRule(run *sarif.Run, ruleID string, f schemas.ScoredFinding) {
	if r.ruleIndex[ruleID] {
		return
	}
	r.ruleIndex[ruleID] = true

	descriptor := &sarif.ReportingDescriptor{
		ID:               ruleID,
		Name:             pString(f.Category),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(f.Category)},
	}
	if f.CWE != "" {
		descriptor.Properties = &sarif.PropertyBag{"cwe": f.CWE}
	}
	run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, descriptor)
}

// sarifRuleID derives a stable rule identifier: the screener rule ID when
// one exists, the category otherwise.
func sarifRuleID(f schemas.ScoredFinding) string {
	base := f.RuleID
	if base == "" {
		base = "AI." + f.Category
	}
	sanitized := ruleIDSanitizer.ReplaceAllString(base, "-")
	return strings.Trim(sanitized, "-")
}

func severityToLevel(s schemas.Severity) sarif.Level {
	switch s {
	case schemas.SeverityCritical, schemas.SeverityHigh:
		return sarif.LevelError
	case schemas.SeverityMedium:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

func pString(s string) *string { return &s }
