package cryptotax

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedJurisdiction is returned when no rule set is registered
	// for a country code.
	ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")

	// ErrPriceUnavailable is returned by price resolvers when no price could
	// be obtained for an asset at a time, after retries.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrPriceNotFound is returned by price providers that definitively have
	// no data for an asset at a time. It is never retried.
	ErrPriceNotFound = errors.New("price not found")
)

// AssetError reports a failure that is scoped to a single asset's lot queue.
type AssetError struct {
	Asset AssetKey
	Err   error
}

func (e *AssetError) Error() string { return fmt.Sprintf("asset %s: %v", e.Asset, e.Err) }
func (e *AssetError) Unwrap() error { return e.Err }
