// Package export snapshots completed jobs into serializable reports. All
// functions are read-only over the job set; writing bytes anywhere is the
// caller's business.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/entity"
)

// Service renders reports. A zero-config façade; only the logger is
// injectable.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BuildReport snapshots the completed jobs, ordered by job id. Deterministic
// given the same completed set, aside from the ExportedAt stamp. Jobs are
// never mutated.
func (s *Service) BuildReport(jobs []*entity.ProcessingJob) entity.Report {
	var completed []*entity.ProcessingJob
	for _, j := range jobs {
		if j.Status == constants.JobCompleted && j.Result != nil {
			completed = append(completed, j)
		}
	}
	sort.Slice(completed, func(i, k int) bool {
		return completed[i].ID.String() < completed[k].ID.String()
	})

	docs := make([]entity.ReportDocument, 0, len(completed))
	for _, j := range completed {
		docs = append(docs, entity.ReportDocument{
			Filename:       j.Source.Name,
			DocumentType:   j.DeclaredType,
			ProcessingTime: j.Result.ProcessingTime.Milliseconds(),
			Confidence:     j.Result.Confidence,
			ExtractedData:  j.Result.Fields,
		})
	}

	return entity.Report{
		ExportedAt:     time.Now().UTC(),
		TotalDocuments: len(docs),
		Documents:      docs,
	}
}

// WriteJSON renders the report as an indented JSON document.
func (s *Service) WriteJSON(report entity.Report) ([]byte, error) {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	s.logger.Info("export.json.ok", "documents", report.TotalDocuments, "bytes", len(b))
	return b, nil
}

// WriteXLSX renders the report as an XLSX workbook (as bytes).
func (s *Service) WriteXLSX(report entity.Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"File Name",
		"Document Type",
		"Processing Time (ms)",
		"Confidence (%)",
		"Extracted Fields",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, doc := range report.Documents {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, doc.Filename)
		write(2, string(doc.DocumentType))
		write(3, doc.ProcessingTime)
		write(4, fmt.Sprintf("%.1f", doc.Confidence))
		write(5, truncate(flattenFields(doc.ExtractedData), 250))

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 36) // file name
	_ = f.SetColWidth(sheet, "B", "B", 20) // type
	_ = f.SetColWidth(sheet, "C", "D", 18) // timing, confidence
	_ = f.SetColWidth(sheet, "E", "E", 80) // fields

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", report.TotalDocuments,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// flattenFields renders the field map as "k=v; ..." with sorted keys so the
// workbook is deterministic.
func flattenFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "raw_text" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s=%v", k, fields[k])
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
