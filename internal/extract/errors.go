package extract

import "fmt"

// FailureKind classifies why extraction rejected a model response.
type FailureKind string

const (
	// KindMissingAmount means the response had no usable positive amount.
	KindMissingAmount FailureKind = "missing_amount"
	// KindAmbiguousDate means a date expression was present but unresolvable.
	KindAmbiguousDate FailureKind = "ambiguous_date"
	// KindMalformedResponse means the response was not the expected JSON object.
	KindMalformedResponse FailureKind = "malformed_response"
)

// ExtractionError is a terminal, per-message extraction failure.
type ExtractionError struct {
	Kind   FailureKind
	Detail string
}

func (e *ExtractionError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}
