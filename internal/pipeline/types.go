package pipeline

import (
	"time"

	"github.com/ajitpratap0/concord/pkg/formats/columnar"
	"github.com/ajitpratap0/concord/pkg/report"
)

// Result summarises one pipeline run.
type Result struct {
	RunID   string `json:"run_id"`
	Source  string `json:"source"`
	Table   string `json:"table"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`

	// Report is nil for conversions
	Report *report.Report `json:"report,omitempty"`
	// Output is nil when no columnar output is configured
	Output     *columnar.WriteStats `json:"output,omitempty"`
	OutputPath string               `json:"output_path,omitempty"`
	ReportPath string               `json:"report_path,omitempty"`
	// Locations lists the objects stored through the sink
	Locations []string `json:"locations,omitempty"`

	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	ResidentMemory uint64        `json:"resident_memory_bytes"`
}

// Inconsistent reports whether the run produced a report with at least one
// inconsistent key.
func (r *Result) Inconsistent() bool {
	return r != nil && r.Report != nil && !r.Report.Consistent
}
