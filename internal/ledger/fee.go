// Package ledger implements the double-entry mutations of spec §4.2:
// add_credits, add_promo, hold_payment, release_payment, refund_payment, and
// payout. Every operation here is a thin translation from business intent
// to a store.ClientMutation; the store enforces the at-rest invariants.
package ledger

import "math"

// DefaultFeeRate is the platform fee fraction applied to real-money
// settlements, overridable via configuration (spec §6 Configuration).
const DefaultFeeRate = 0.03

// Fee computes the platform fee for a real-money payment of p cents at the
// given rate: max(1, floor(p * rate)), capped at p itself so the fee can
// never exceed the amount being settled (spec §4.2).
func Fee(p int64, rate float64) int64 {
	if p <= 0 {
		return 0
	}
	fee := int64(math.Floor(float64(p) * rate))
	if fee < 1 {
		fee = 1
	}
	if fee > p {
		fee = p
	}
	return fee
}
