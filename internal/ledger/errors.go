package ledger

import "errors"

// ErrInvalidAmount and ErrInsufficientBalance are business pre-condition
// failures the RPC layer maps to ResultCode rather than a transport error
// (spec §7 kind 2). Any other error returned by this package is an
// infrastructure fault and must surface as an RPC-level error.
var (
	ErrInvalidAmount      = errors.New("ledger: invalid amount")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
)
