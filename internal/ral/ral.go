// Package ral computes the Read-At-Level statistic returned to callers
// after a successful settlement (spec §4.4).
package ral

import (
	"context"
	"sort"

	"github.com/umpyre-code/beancounter/internal/store"
)

// Undefined is returned whenever RAL cannot be computed — too few samples,
// or any error from the underlying query. RAL never fails a settlement.
const Undefined = -1

// DefaultWindow and DefaultMinSamples are the spec §4.4 defaults,
// overridable via configuration (spec §6).
const (
	DefaultWindow     = 100
	DefaultMinSamples = 3
)

// Computer wraps the store query behind a configured window and minimum
// sample count.
type Computer struct {
	store      *store.Store
	window     int
	minSamples int
}

// New builds a Computer. Zero or negative window/minSamples fall back to
// the spec defaults.
func New(s *store.Store, window, minSamples int) *Computer {
	if window <= 0 {
		window = DefaultWindow
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Computer{store: s, window: window, minSamples: minSamples}
}

// Compute returns the median of the client's last `window` MESSAGE_READ
// credit amounts, rounded to the nearest integer cent. Returns Undefined if
// there are fewer than minSamples amounts, or if the query itself fails —
// RAL is informational and must never abort a settlement (spec §4.4).
func (c *Computer) Compute(ctx context.Context, clientID string) int64 {
	amounts, err := c.store.ListMessageReadAmounts(ctx, clientID, c.window)
	if err != nil {
		return Undefined
	}
	if len(amounts) < c.minSamples {
		return Undefined
	}
	return median(amounts)
}

// median returns the rounded-to-nearest-cent median of a slice of amounts,
// without mutating the caller's slice.
func median(amounts []int64) int64 {
	sorted := make([]int64, len(amounts))
	copy(sorted, amounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}

	sum := sorted[mid-1] + sorted[mid]
	// Round to nearest, half up, matching "rounded to the nearest integer
	// cent" for an even-count average that lands on a .5 boundary.
	if sum >= 0 {
		return (sum + 1) / 2
	}
	return -((-sum + 1) / 2)
}
