package ledger

import (
	"context"

	"github.com/umpyre-code/beancounter/internal/enum"
	"github.com/umpyre-code/beancounter/internal/store"
)

// Ledger exposes the six posting operations of spec §4.2 against a store.
type Ledger struct {
	store   *store.Store
	feeRate float64
}

// New builds a Ledger. feeRate is the configured override of DefaultFeeRate
// (spec §6 Configuration: "fee rate override").
func New(s *store.Store, feeRate float64) *Ledger {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	return &Ledger{store: s, feeRate: feeRate}
}

// Fee returns the platform fee for a real-money settlement of p cents under
// this ledger's configured rate.
func (l *Ledger) Fee(p int64) int64 {
	return Fee(p, l.feeRate)
}

// AddCredits posts CREDIT/CREDIT_ADDED and increases balance_cents. Top-ups
// are spendable but never withdrawable on their own (spec §4.2).
func (l *Ledger) AddCredits(ctx context.Context, clientID string, amountCents int64) (store.Balance, error) {
	if amountCents <= 0 {
		return store.Balance{}, ErrInvalidAmount
	}
	results, err := l.store.ApplyLedgerEntries(ctx, []store.ClientMutation{
		{
			ClientID: clientID,
			Entries: []store.LedgerEntry{
				{Type: enum.TxCredit, Reason: enum.ReasonCreditAdded, AmountCents: amountCents},
			},
			Delta: store.BalanceDelta{BalanceCents: amountCents},
		},
	})
	if err != nil {
		return store.Balance{}, err
	}
	return results[0], nil
}

// AddPromo posts PROMO_CREDIT/CREDIT_ADDED and increases promo_cents.
func (l *Ledger) AddPromo(ctx context.Context, clientID string, amountCents int64) (store.Balance, error) {
	if amountCents <= 0 {
		return store.Balance{}, ErrInvalidAmount
	}
	results, err := l.store.ApplyLedgerEntries(ctx, []store.ClientMutation{
		{
			ClientID: clientID,
			Entries: []store.LedgerEntry{
				{Type: enum.TxPromoCredit, Reason: enum.ReasonCreditAdded, AmountCents: amountCents},
			},
			Delta: store.BalanceDelta{PromoCents: amountCents},
		},
	})
	if err != nil {
		return store.Balance{}, err
	}
	return results[0], nil
}

// HoldPayment debits the sender to escrow a message payment (spec §4.2).
// A real-rail hold clamps withdrawable_cents down to the new balance_cents
// when the debit eats into what was previously withdrawable; a promo-rail
// hold only ever touches promo_cents.
func (l *Ledger) HoldPayment(ctx context.Context, sender string, amountCents int64, isPromo bool) (store.Balance, error) {
	if amountCents <= 0 {
		return store.Balance{}, ErrInvalidAmount
	}

	return l.store.ApplyWithBalance(ctx, sender, func(bal store.Balance) (store.ClientMutation, error) {
		if isPromo {
			if bal.PromoCents < amountCents {
				return store.ClientMutation{}, ErrInsufficientBalance
			}
			return store.ClientMutation{
				ClientID: sender,
				Entries: []store.LedgerEntry{
					{Type: enum.TxPromoDebit, Reason: enum.ReasonMessageSent, AmountCents: amountCents},
				},
				Delta: store.BalanceDelta{PromoCents: -amountCents},
			}, nil
		}

		if bal.BalanceCents < amountCents {
			return store.ClientMutation{}, ErrInsufficientBalance
		}

		newBalance := bal.BalanceCents - amountCents
		withdrawableDelta := int64(0)
		if newBalance < bal.WithdrawableCents {
			withdrawableDelta = newBalance - bal.WithdrawableCents
		}

		return store.ClientMutation{
			ClientID: sender,
			Entries: []store.LedgerEntry{
				{Type: enum.TxDebit, Reason: enum.ReasonMessageSent, AmountCents: amountCents},
			},
			Delta: store.BalanceDelta{BalanceCents: -amountCents, WithdrawableCents: withdrawableDelta},
		}, nil
	})
}

// ReleasePayment credits the recipient net of fee at settlement (spec
// §4.2). Real-rail releases land in both balance_cents and
// withdrawable_cents; promo-rail releases carry the full amount into
// promo_cents with no fee and never become withdrawable.
func (l *Ledger) ReleasePayment(ctx context.Context, recipient string, amountCents int64, isPromo bool) (store.Balance, error) {
	if isPromo {
		results, err := l.store.ApplyLedgerEntries(ctx, []store.ClientMutation{
			{
				ClientID: recipient,
				Entries: []store.LedgerEntry{
					{Type: enum.TxPromoCredit, Reason: enum.ReasonMessageRead, AmountCents: amountCents},
				},
				Delta: store.BalanceDelta{PromoCents: amountCents},
			},
		})
		if err != nil {
			return store.Balance{}, err
		}
		return results[0], nil
	}

	net := amountCents - l.Fee(amountCents)
	results, err := l.store.ApplyLedgerEntries(ctx, []store.ClientMutation{
		{
			ClientID: recipient,
			Entries: []store.LedgerEntry{
				{Type: enum.TxCredit, Reason: enum.ReasonMessageRead, AmountCents: net},
			},
			Delta: store.BalanceDelta{BalanceCents: net, WithdrawableCents: net},
		},
	})
	if err != nil {
		return store.Balance{}, err
	}
	return results[0], nil
}

// RefundPayment restores a held amount to the sender along the
// MESSAGE_UNREAD path — the exact mirror of HoldPayment (spec §4.2).
func (l *Ledger) RefundPayment(ctx context.Context, sender string, amountCents int64, isPromo bool) (store.Balance, error) {
	if isPromo {
		results, err := l.store.ApplyLedgerEntries(ctx, []store.ClientMutation{
			{
				ClientID: sender,
				Entries: []store.LedgerEntry{
					{Type: enum.TxPromoCredit, Reason: enum.ReasonMessageUnread, AmountCents: amountCents},
				},
				Delta: store.BalanceDelta{PromoCents: amountCents},
			},
		})
		if err != nil {
			return store.Balance{}, err
		}
		return results[0], nil
	}

	results, err := l.store.ApplyLedgerEntries(ctx, []store.ClientMutation{
		{
			ClientID: sender,
			Entries: []store.LedgerEntry{
				{Type: enum.TxCredit, Reason: enum.ReasonMessageUnread, AmountCents: amountCents},
			},
			Delta: store.BalanceDelta{BalanceCents: amountCents},
		},
	})
	if err != nil {
		return store.Balance{}, err
	}
	return results[0], nil
}

// Payout debits balance_cents and withdrawable_cents for an outbound
// transfer (spec §4.2). Requires amountCents <= withdrawable_cents,
// independent of balance_cents sufficiency (spec §4.7 boundary case).
func (l *Ledger) Payout(ctx context.Context, clientID string, amountCents int64) (store.Balance, error) {
	if amountCents <= 0 {
		return store.Balance{}, ErrInvalidAmount
	}

	return l.store.ApplyWithBalance(ctx, clientID, func(bal store.Balance) (store.ClientMutation, error) {
		if amountCents > bal.WithdrawableCents {
			return store.ClientMutation{}, ErrInsufficientBalance
		}
		return store.ClientMutation{
			ClientID: clientID,
			Entries: []store.LedgerEntry{
				{Type: enum.TxDebit, Reason: enum.ReasonPayout, AmountCents: amountCents},
			},
			Delta: store.BalanceDelta{BalanceCents: -amountCents, WithdrawableCents: -amountCents},
		}, nil
	})
}

// CompensatePayout reverses a Payout whose provider transfer failed,
// restoring balance_cents and withdrawable_cents (spec §4.5). It posts as a
// CREDIT_ADDED rather than a new PAYOUT entry since no money actually left
// the platform.
func (l *Ledger) CompensatePayout(ctx context.Context, clientID string, amountCents int64) (store.Balance, error) {
	results, err := l.store.ApplyLedgerEntries(ctx, []store.ClientMutation{
		{
			ClientID: clientID,
			Entries: []store.LedgerEntry{
				{Type: enum.TxCredit, Reason: enum.ReasonCreditAdded, AmountCents: amountCents},
			},
			Delta: store.BalanceDelta{BalanceCents: amountCents, WithdrawableCents: amountCents},
		},
	})
	if err != nil {
		return store.Balance{}, err
	}
	return results[0], nil
}
