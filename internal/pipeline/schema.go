package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dev112317/stryker-assessment/constants"
)

// buildResultSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map for one document category. It constrains the types of the well-known
// fields but leaves the payload open: the extraction service may return
// anything it found.
func buildResultSchema(dt constants.DocType) map[string]any {
	props := map[string]any{
		"raw_text": map[string]any{"type": "string"},
	}

	switch dt {
	case constants.Invoice:
		for _, k := range []string{"vendor_name", "invoice_number", "date", "due_date", "total_amount", "subtotal", "tax_amount", "payment_terms"} {
			props[k] = map[string]any{"type": "string"}
		}
	case constants.Receipt:
		for _, k := range []string{"merchant_name", "transaction_date", "transaction_time", "total_amount", "payment_method", "subtotal", "tax_amount"} {
			props[k] = map[string]any{"type": "string"}
		}
	case constants.Contract:
		for _, k := range []string{"contract_title", "effective_date", "expiration_date", "governing_law", "payment_terms"} {
			props[k] = map[string]any{"type": "string"}
		}
		props["parties"] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	case constants.FinancialStatement:
		for _, k := range []string{"statement_type", "period", "company_name", "revenue", "net_income", "total_assets", "total_liabilities"} {
			props[k] = map[string]any{"type": "string"}
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           props,
	}
}

// validateFields validates an extracted payload against the category schema.
func validateFields(dt constants.DocType, fields map[string]any) error {
	b, err := json.Marshal(buildResultSchema(dt))
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// Round-trip through JSON so numbers and nested values take the generic
	// form the validator expects.
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match %s schema: %w", dt, err)
	}
	return nil
}
