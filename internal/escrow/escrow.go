// Package escrow implements the per-message payment state machine: add
// (hold funds on the sender) and settle (release to the recipient, with
// fee and split, returning the recipient's Read-At-Level) — spec §4.3.
package escrow

import (
	"context"
	"errors"

	"github.com/umpyre-code/beancounter/internal/cache"
	"github.com/umpyre-code/beancounter/internal/enum"
	"github.com/umpyre-code/beancounter/internal/ledger"
	"github.com/umpyre-code/beancounter/internal/ral"
	"github.com/umpyre-code/beancounter/internal/store"
)

// Escrow composes the ledger, the RAL computer, and the payment store.
type Escrow struct {
	store  *store.Store
	ledger *ledger.Ledger
	ral    *ral.Computer
	cache  *cache.IdempotencyCache
}

// New builds an Escrow. idem may be nil, which disables the Redis
// fast-path cache without changing correctness (cache.IdempotencyCache
// handles a nil receiver as an always-miss).
func New(s *store.Store, l *ledger.Ledger, r *ral.Computer, idem *cache.IdempotencyCache) *Escrow {
	return &Escrow{store: s, ledger: l, ral: r, cache: idem}
}

// AddPaymentResult is the outcome of AddPayment, carrying the escrow row
// that now exists (whether just created or already present from a prior
// call with the same message hash).
type AddPaymentResult struct {
	Payment store.Payment
	Result  enum.ResultCode
}

// AddPayment holds funds on the sender and creates an escrow row keyed by
// message hash (spec §4.3). A second call with the same hash is a no-op
// that returns the original row — the UNIQUE constraint in the store is
// the authoritative idempotency gate, checked before any funds move.
func (e *Escrow) AddPayment(ctx context.Context, sender string, recipient *string, amountCents int64, hash []byte, isPromo bool) (AddPaymentResult, error) {
	if amountCents <= 0 {
		return AddPaymentResult{Result: enum.ResultInvalidAmount}, nil
	}

	if cached, ok := e.cache.Get(ctx, hash); ok {
		return AddPaymentResult{Payment: cached, Result: enum.ResultSuccess}, nil
	}

	placeholder := store.Payment{
		ClientIDFrom: sender,
		ClientIDTo:   recipient,
		PaymentCents: amountCents,
		MessageHash:  hash,
		IsPromo:      isPromo,
	}

	row, existing, err := e.store.CreatePayment(ctx, placeholder)
	if err != nil {
		return AddPaymentResult{}, err
	}
	if existing {
		e.cache.Set(ctx, row)
		return AddPaymentResult{Payment: row, Result: enum.ResultSuccess}, nil
	}

	if _, err := e.ledger.HoldPayment(ctx, sender, amountCents, isPromo); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			// The escrow row was already inserted optimistically; remove it
			// unconditionally by hash so a retried AddPayment with the same
			// hash isn't stuck pointing at funds that were never actually
			// held. TakePayment's recipient guard doesn't apply here — no
			// settlement has happened yet, so a non-nil client_id_to on the
			// row must not block this cleanup.
			if delErr := e.store.DeletePaymentByHash(ctx, hash); delErr != nil {
				return AddPaymentResult{}, delErr
			}
			return AddPaymentResult{Result: enum.ResultInsufficientBalance}, nil
		}
		return AddPaymentResult{}, err
	}

	e.cache.Set(ctx, row)
	return AddPaymentResult{Payment: row, Result: enum.ResultSuccess}, nil
}

// SettlePaymentResult is the outcome of a successful settlement, carrying
// everything spec §4.3 documents: the gross payment amount, the fee taken
// out of it (0 for a promo-rail settlement), the recipient's resulting
// Balance, and their updated Read-At-Level.
type SettlePaymentResult struct {
	Payment  store.Payment
	FeeCents int64
	Balance  store.Balance
	RAL      int64
}

// SettlePayment releases escrowed funds to the recipient net of fee and
// returns their updated Read-At-Level (spec §4.3, §4.4). The payment row
// is deleted first so a concurrent or retried settlement can never double
// release; store.ErrNotFound surfaces when the hash is unknown or was
// already settled, store.ErrWrongRecipient when the row is bound to a
// different recipient.
func (e *Escrow) SettlePayment(ctx context.Context, recipient string, hash []byte) (SettlePaymentResult, error) {
	p, err := e.store.TakePayment(ctx, recipient, hash)
	if err != nil {
		return SettlePaymentResult{}, err
	}

	bal, err := e.ledger.ReleasePayment(ctx, recipient, p.PaymentCents, p.IsPromo)
	if err != nil {
		return SettlePaymentResult{}, err
	}

	feeCents := int64(0)
	if !p.IsPromo {
		feeCents = e.ledger.Fee(p.PaymentCents)
	}

	return SettlePaymentResult{
		Payment:  p,
		FeeCents: feeCents,
		Balance:  bal,
		RAL:      e.ral.Compute(ctx, recipient),
	}, nil
}
