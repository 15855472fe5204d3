package entity

import (
	"time"

	"github.com/dev112317/stryker-assessment/constants"
)

// Report is the exportable snapshot of a batch's completed jobs.
type Report struct {
	ExportedAt     time.Time        `json:"exported_at"`
	TotalDocuments int              `json:"total_documents"`
	Documents      []ReportDocument `json:"documents"`
}

// ReportDocument is one completed job flattened for export. Processing time
// is reported in milliseconds.
type ReportDocument struct {
	Filename       string            `json:"filename"`
	DocumentType   constants.DocType `json:"document_type"`
	ProcessingTime int64             `json:"processing_time"`
	Confidence     float64           `json:"confidence"`
	ExtractedData  map[string]any    `json:"extracted_data"`
}
