package reporting

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/hexborne/vulndetective/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter writes the ResultSet verbatim as indented JSON. The JSON
// shape is the machine-readable contract consumed by downstream tooling.
type JSONReporter struct {
	writer io.WriteCloser
}

// NewJSONReporter creates a JSON reporter that takes ownership of writer.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

// Write renders the set.
func (r *JSONReporter) Write(ctx context.Context, set *schemas.ResultSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode result set: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
