package model

import "github.com/rotisserie/eris"

// Error taxonomy. Per-URL and per-product failures are recorded on status
// fields; only the discovery errors surface to API callers.
var (
	// ErrNoProductsFound means the query yielded zero product names.
	ErrNoProductsFound = eris.New("no products found")
	// ErrNotEnoughProducts means discovery found fewer than two products.
	ErrNotEnoughProducts = eris.New("not enough products")
	// ErrBackendUnavailable wraps a failed search backend call.
	ErrBackendUnavailable = eris.New("search backend unavailable")
	// ErrExtractionParse means oracle output had no usable JSON object.
	ErrExtractionParse = eris.New("extraction parse failure")
	// ErrComparisonParse means the recommendation step could not be parsed.
	ErrComparisonParse = eris.New("comparison parse failure")
	// ErrConfigurationMissing means a required credential or setting is absent.
	ErrConfigurationMissing = eris.New("configuration missing")
)

// IsUserError reports whether err should be reported to an API caller as a
// bad request rather than an internal failure.
func IsUserError(err error) bool {
	return eris.Is(err, ErrNoProductsFound) || eris.Is(err, ErrNotEnoughProducts)
}
