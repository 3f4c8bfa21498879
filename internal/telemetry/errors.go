package telemetry

import "errors"

var (
	// ErrShardUnavailable covers transport failures and non-2xx responses.
	ErrShardUnavailable = errors.New("shard unavailable")

	// ErrDecode is returned when a body is not valid JSON.
	ErrDecode = errors.New("invalid json")

	// ErrShape is returned when a payload or record has an unexpected structure.
	ErrShape = errors.New("unexpected shape")

	// ErrNoData is returned when nothing survived normalization.
	ErrNoData = errors.New("no balloon data")

	// ErrSummaryService is returned by summarizers on auth, network or quota failures.
	ErrSummaryService = errors.New("summary service failed")

	// ErrPointNotFound is returned when a point index is outside the latest summary.
	ErrPointNotFound = errors.New("balloon point not found")
)

// kindOf maps an error onto the diagnostic taxonomy.
func kindOf(err error) DiagnosticKind {
	switch {
	case errors.Is(err, ErrDecode):
		return DiagnosticDecode
	case errors.Is(err, ErrShape):
		return DiagnosticShape
	case errors.Is(err, ErrSummaryService):
		return DiagnosticSummary
	default:
		return DiagnosticNetwork
	}
}
