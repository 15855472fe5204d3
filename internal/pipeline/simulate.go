package pipeline

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/entity"
)

// Step is one scripted phase of the simulated path.
type Step struct {
	Stage    constants.Stage
	Progress int
	Message  string
	Delay    time.Duration
}

// Script is the stage/duration table driving a simulated run. The table is
// independent of any concurrency primitive; cancellation interrupts it
// between steps.
type Script []Step

// DefaultScript mirrors the timing of a typical live run.
func DefaultScript() Script {
	return Script{
		{constants.StageUpload, 15, "Uploading document...", 800 * time.Millisecond},
		{constants.StageExtraction, 40, "Extracting text content...", 1200 * time.Millisecond},
		{constants.StageAnalysis, 75, "AI is analyzing the document...", 2 * time.Second},
		{constants.StageValidation, 95, "Validating extracted data...", 800 * time.Millisecond},
	}
}

// FastScript keeps the stage sequence but compresses the delays. Useful for
// demos and tests that only care about ordering.
func FastScript() Script {
	s := DefaultScript()
	for i := range s {
		s[i].Delay = time.Millisecond
	}
	return s
}

// remainingFrom sums the delays of step i and everything after it.
func (s Script) remainingFrom(i int) time.Duration {
	var total time.Duration
	for ; i < len(s); i++ {
		total += s[i].Delay
	}
	return total
}

// demoConfidence returns a realistic confidence score for synthetic results.
func demoConfidence() float64 {
	return 92.5 + rand.Float64()*4.5
}

// demoFields builds the synthetic field map for a category. The field set
// matches what the live service returns for the same category, so consumers
// never branch on the execution path.
func demoFields(dt constants.DocType, src entity.SourceFile) map[string]any {
	base := map[string]any{
		"raw_text": fmt.Sprintf("This is extracted text content from %s...", src.Name),
	}

	switch dt {
	case constants.Invoice:
		base["vendor_name"] = "Acme Corporation"
		base["invoice_number"] = "INV-2024-001"
		base["date"] = "2024-01-15"
		base["total_amount"] = "$1,250.00"
		base["subtotal"] = "$1,150.00"
		base["tax_amount"] = "$100.00"
		base["due_date"] = "2024-02-15"
		base["payment_terms"] = "Net 30"
	case constants.Receipt:
		base["merchant_name"] = "Tech Store Plus"
		base["transaction_date"] = "2024-01-15"
		base["transaction_time"] = "14:30:25"
		base["total_amount"] = "$89.99"
		base["payment_method"] = "Credit Card"
		base["subtotal"] = "$82.99"
		base["tax_amount"] = "$7.00"
	case constants.Contract:
		base["contract_title"] = "Software Development Agreement"
		base["parties"] = []any{"TechCorp Inc.", "DevStudio LLC"}
		base["effective_date"] = "2024-01-01"
		base["expiration_date"] = "2024-12-31"
		base["governing_law"] = "State of California"
		base["payment_terms"] = "Monthly payments of $5,000"
	case constants.FinancialStatement:
		base["statement_type"] = "Income Statement"
		base["period"] = "Q4 2023"
		base["company_name"] = "Innovation Corp"
		base["revenue"] = "$2,500,000"
		base["net_income"] = "$450,000"
		base["total_assets"] = "$5,200,000"
		base["total_liabilities"] = "$1,800,000"
	}
	return base
}
