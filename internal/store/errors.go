package store

import "errors"

// ErrNotFound is returned when a lookup by primary key or unique key finds
// no row.
var ErrNotFound = errors.New("store: not found")

// ErrWrongRecipient is returned by TakePayment when the payment's bound
// client_id_to does not match the recipient presented at settlement.
var ErrWrongRecipient = errors.New("store: payment bound to a different recipient")

// ErrInvariantViolation is returned when applying a set of ledger entries
// would leave a balance row outside the at-rest invariants of spec §3
// (negative rail, or withdrawable exceeding balance). The unit of work is
// rolled back; nothing is persisted.
var ErrInvariantViolation = errors.New("store: ledger posting would violate balance invariants")
