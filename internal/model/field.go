package model

import "strings"

// FieldStatus tags an extracted field value. Callers branch on status
// rather than comparing magic strings; Export renders the legacy
// spreadsheet sentinels for the tabular output.
type FieldStatus string

const (
	// FieldFound means extraction produced a usable value.
	FieldFound FieldStatus = "found"
	// FieldNotFound means the model reported no value for the field.
	FieldNotFound FieldStatus = "not_found"
	// FieldPendingReview means automated research failed and a human
	// must complete the field.
	FieldPendingReview FieldStatus = "pending_review"
	// FieldProviderError means research was cut short by a provider
	// billing/quota failure.
	FieldProviderError FieldStatus = "provider_error"
)

// Field is a single extracted value together with its status.
type Field struct {
	Status FieldStatus `json:"status"`
	Value  string      `json:"value,omitempty"`
}

// Found wraps a usable extracted value.
func Found(v string) Field {
	return Field{Status: FieldFound, Value: v}
}

// NotFound marks a field the model could not populate.
func NotFound() Field {
	return Field{Status: FieldNotFound}
}

// PendingReview marks a field awaiting manual research.
func PendingReview() Field {
	return Field{Status: FieldPendingReview}
}

// ProviderError marks a field lost to a billing/quota failure.
func ProviderError() Field {
	return Field{Status: FieldProviderError}
}

// IsFound reports whether the field holds a usable value.
func (f Field) IsFound() bool {
	return f.Status == FieldFound && f.Value != ""
}

// Export renders the field for tabular output, using the sentinel
// strings the downstream spreadsheets expect.
func (f Field) Export() string {
	switch f.Status {
	case FieldFound:
		return f.Value
	case FieldPendingReview:
		return "Research required"
	case FieldProviderError:
		return "API billing error"
	default:
		return "Not found"
	}
}

// Relevance is the model's three-valued industry/location judgment.
type Relevance string

const (
	RelevanceYes     Relevance = "YES"
	RelevanceNo      Relevance = "NO"
	RelevanceUnknown Relevance = "UNKNOWN"
)

// ParseRelevance maps free-form model output onto the Relevance enum.
// The model sometimes pads the value with brackets or explanation text,
// so matching is prefix-based and case-insensitive.
func ParseRelevance(s string) Relevance {
	v := strings.ToUpper(strings.Trim(strings.TrimSpace(s), "[] "))
	switch {
	case strings.HasPrefix(v, "YES"):
		return RelevanceYes
	case strings.HasPrefix(v, "NO"):
		return RelevanceNo
	default:
		return RelevanceUnknown
	}
}
