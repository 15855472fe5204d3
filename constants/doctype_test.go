package constants

import "testing"

func TestDetectType(t *testing.T) {
	tests := []struct {
		filename string
		want     DocType
	}{
		{"invoice_march_2024.pdf", Invoice},
		{"utility_bill.png", Invoice},
		{"receipt_grocery_002.jpg", Receipt},
		{"store_purchase.pdf", Receipt},
		{"service_agreement.docx", Contract},
		{"terms_and_conditions.pdf", Contract},
		{"q3_balance_statement.csv", FinancialStatement},
		{"cash_flow_report.xlsx", FinancialStatement},
	}
	for _, tt := range tests {
		got, score := DetectType(tt.filename)
		if got != tt.want {
			t.Errorf("DetectType(%q) = %s (score %v), want %s", tt.filename, got, score, tt.want)
		}
		if score < 0 || score > 1 {
			t.Errorf("DetectType(%q) score %v outside [0, 1]", tt.filename, score)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	if dt, ok := Canonicalize(" Receipt "); dt != Receipt || !ok {
		t.Errorf("Canonicalize(Receipt) = %s, %v", dt, ok)
	}
	if dt, ok := Canonicalize("mystery"); dt != Invoice || ok {
		t.Errorf("Canonicalize(mystery) = %s, %v, want invoice fallback", dt, ok)
	}
}

func TestIsSupportedFile(t *testing.T) {
	if !IsSupportedFile("doc.PDF") {
		t.Errorf("uppercase extension rejected")
	}
	if IsSupportedFile("malware.exe") {
		t.Errorf("exe accepted")
	}
}
