package constants

import (
	"path/filepath"
	"strings"
)

// DocType is one of the closed set of document categories the pipeline accepts.
type DocType string

const (
	Invoice            DocType = "invoice"
	Receipt            DocType = "receipt"
	Contract           DocType = "contract"
	FinancialStatement DocType = "financial_statement"
)

var allDocTypes = []DocType{
	Invoice,
	Receipt,
	Contract,
	FinancialStatement,
}

// AllDocTypes returns the supported categories in declaration order.
func AllDocTypes() []DocType {
	out := make([]DocType, len(allDocTypes))
	copy(out, allDocTypes)
	return out
}

// AsStringSlice returns the categories as plain strings.
func AsStringSlice() []string {
	result := make([]string, len(allDocTypes))
	for i, dt := range allDocTypes {
		result[i] = string(dt)
	}
	return result
}

// Canonicalize maps free-form input to a category. The second return reports
// whether the input matched; unmatched input falls back to Invoice.
func Canonicalize(input string) (DocType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, dt := range allDocTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}
	return Invoice, false
}

// Keyword and extension tables for filename-based detection. Accuracy is
// advisory: a mismatch flags the job for review, it never blocks processing.
var docTypeKeywords = map[DocType][]string{
	Invoice:            {"invoice", "bill", "inv", "billing", "payment", "due"},
	Receipt:            {"receipt", "rec", "purchase", "transaction", "store", "shop"},
	Contract:           {"contract", "agreement", "terms", "conditions", "party", "parties"},
	FinancialStatement: {"financial", "statement", "balance", "income", "cash", "flow", "report"},
}

var docTypeExtensions = map[DocType][]string{
	Invoice:            {".pdf", ".png", ".jpg", ".jpeg"},
	Receipt:            {".pdf", ".png", ".jpg", ".jpeg"},
	Contract:           {".pdf", ".docx", ".doc"},
	FinancialStatement: {".pdf", ".xlsx", ".xls", ".csv"},
}

// DetectType guesses a category from the filename by keyword and extension
// scoring. Returns the best category and its score in [0, 1].
func DetectType(filename string) (DocType, float64) {
	nameLower := strings.ToLower(filename)
	ext := strings.ToLower(filepath.Ext(filename))

	best := Invoice
	bestScore := -1.0
	for _, dt := range allDocTypes {
		score := 0.0
		for _, kw := range docTypeKeywords[dt] {
			if strings.Contains(nameLower, kw) {
				score += 0.3
			}
		}
		for _, e := range docTypeExtensions[dt] {
			if ext == e {
				score += 0.2
				break
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			best, bestScore = dt, score
		}
	}
	return best, bestScore
}

// AllowedExtensions holds the file extensions accepted for upload.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"docx": {},
	"doc":  {},
	"xlsx": {},
	"xls":  {},
	"csv":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSupportedFile reports whether the filename carries an accepted extension.
func IsSupportedFile(filename string) bool {
	_, ok := AllowedExtensions[NormalizeExt(filepath.Ext(filename))]
	return ok
}
