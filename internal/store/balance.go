package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/umpyre-code/beancounter/internal/db"
)

// FetchOrInitBalance returns the client's current Balance, upserting a
// zero row first time the client is referenced (spec §4.1). GetBalance at
// the RPC layer must NOT call this for an unknown client — it returns a
// zeroed Balance without persisting (spec §3); FetchOrInitBalance is only
// used by the ledger-mutating operations, which do need the row to exist.
func (s *Store) FetchOrInitBalance(ctx context.Context, clientID string) (Balance, error) {
	var bal Balance
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		b, err := s.upsertBalance(ctx, tx, clientID)
		if err != nil {
			return err
		}
		bal = b
		return nil
	})
	return bal, err
}

// PeekBalance reads a client's balance without creating a row if absent,
// returning a zero-value Balance for an unknown client (spec §3 GetBalance
// semantics). This is a plain read; spec §5 says readers take no lock.
func (s *Store) PeekBalance(ctx context.Context, clientID string) (Balance, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT client_id, balance_cents, promo_cents, withdrawable_cents, created_at, updated_at
		FROM balances WHERE client_id = $1`), clientID)

	var b Balance
	err := row.Scan(&b.ClientID, &b.BalanceCents, &b.PromoCents, &b.WithdrawableCents, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return Balance{ClientID: clientID}, nil
	}
	if err != nil {
		return Balance{}, fmt.Errorf("store: peek balance: %w", err)
	}
	return b, nil
}

func (s *Store) upsertBalance(ctx context.Context, tx *sql.Tx, clientID string) (Balance, error) {
	locked, err := s.lockBalance(ctx, tx, clientID)
	if err == nil {
		return locked, nil
	}
	if err != ErrNotFound {
		return Balance{}, err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO balances (client_id, balance_cents, promo_cents, withdrawable_cents, created_at, updated_at)
		VALUES ($1, 0, 0, 0, $2, $2)`), clientID, now)
	if err != nil {
		return Balance{}, fmt.Errorf("store: init balance: %w", err)
	}

	return s.lockBalance(ctx, tx, clientID)
}

// lockBalance reads a balance row with a row-level write lock (spec §5:
// "All mutations of a given client's Balance row must be serialized...by
// taking a row-level write lock"). Returns ErrNotFound if no row exists yet.
func (s *Store) lockBalance(ctx context.Context, tx *sql.Tx, clientID string) (Balance, error) {
	q := fmt.Sprintf(`
		SELECT client_id, balance_cents, promo_cents, withdrawable_cents, created_at, updated_at
		FROM balances WHERE client_id = $1 %s`, s.forUpdate())

	row := tx.QueryRowContext(ctx, s.rebind(q), clientID)
	var b Balance
	err := row.Scan(&b.ClientID, &b.BalanceCents, &b.PromoCents, &b.WithdrawableCents, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return Balance{}, ErrNotFound
	}
	if err != nil {
		return Balance{}, fmt.Errorf("store: lock balance: %w", err)
	}
	return b, nil
}

// ApplyLedgerEntries atomically inserts one or more Transaction rows per
// client mutation and applies the matching balance delta, enforcing the
// at-rest invariants of spec §3 (I2, I3) before commit. The whole unit of
// work fails — no row is persisted — if any resulting balance would
// violate them (spec §4.1).
func (s *Store) ApplyLedgerEntries(ctx context.Context, muts []ClientMutation) ([]Balance, error) {
	if len(muts) == 0 {
		return nil, nil
	}

	// Lock balance rows in a fixed order (by client id) regardless of the
	// order the caller lists mutations in, so that two concurrent calls
	// mutating the same pair of clients can never deadlock against a row
	// lock held in the opposite order.
	order := make([]int, len(muts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return muts[order[a]].ClientID < muts[order[b]].ClientID })

	results := make([]Balance, len(muts))
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		for _, i := range order {
			m := muts[i]
			bal, err := s.upsertBalance(ctx, tx, m.ClientID)
			if err != nil {
				return err
			}
			next, err := s.postMutation(ctx, tx, bal, m)
			if err != nil {
				return err
			}
			results[i] = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ApplyWithBalance locks a single client's balance row, hands the current
// Balance to build, and applies whatever ClientMutation build returns
// against it. This is for operations whose delta depends on the balance
// being mutated — hold_payment's withdrawable clamp and payout's
// withdrawable-sufficiency check (spec §4.2) can't be expressed as a
// precomputed delta the way simple credits can.
func (s *Store) ApplyWithBalance(ctx context.Context, clientID string, build func(Balance) (ClientMutation, error)) (Balance, error) {
	var result Balance
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		bal, err := s.upsertBalance(ctx, tx, clientID)
		if err != nil {
			return err
		}
		m, err := build(bal)
		if err != nil {
			return err
		}
		next, err := s.postMutation(ctx, tx, bal, m)
		if err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// postMutation applies one ClientMutation's delta to bal and inserts its
// ledger entries, within an already-open transaction that holds bal's lock.
func (s *Store) postMutation(ctx context.Context, tx *sql.Tx, bal Balance, m ClientMutation) (Balance, error) {
	next := Balance{
		ClientID:          m.ClientID,
		BalanceCents:      bal.BalanceCents + m.Delta.BalanceCents,
		PromoCents:        bal.PromoCents + m.Delta.PromoCents,
		WithdrawableCents: bal.WithdrawableCents + m.Delta.WithdrawableCents,
	}

	if next.BalanceCents < 0 || next.PromoCents < 0 || next.WithdrawableCents < 0 {
		return Balance{}, ErrInvariantViolation
	}
	if next.WithdrawableCents > next.BalanceCents {
		return Balance{}, ErrInvariantViolation
	}

	now := time.Now().UTC()
	updateQuery := s.rebind(`
		UPDATE balances
		SET balance_cents = $1, promo_cents = $2, withdrawable_cents = $3, updated_at = $4
		WHERE client_id = $5`)
	s.queryLog(updateQuery, next.BalanceCents, next.PromoCents, next.WithdrawableCents, now, m.ClientID)
	if _, err := tx.ExecContext(ctx, updateQuery,
		next.BalanceCents, next.PromoCents, next.WithdrawableCents, now, m.ClientID); err != nil {
		return Balance{}, fmt.Errorf("store: update balance: %w", err)
	}

	insertQuery := s.rebind(`
		INSERT INTO transactions (created_at, client_id, tx_type, tx_reason, amount_cents)
		VALUES ($1, $2, $3, $4, $5)`)
	for _, e := range m.Entries {
		s.queryLog(insertQuery, now, m.ClientID, string(e.Type), string(e.Reason), e.AmountCents)
		if _, err := tx.ExecContext(ctx, insertQuery,
			now, m.ClientID, string(e.Type), string(e.Reason), e.AmountCents); err != nil {
			return Balance{}, fmt.Errorf("store: insert transaction: %w", err)
		}
	}

	next.CreatedAt = bal.CreatedAt
	next.UpdatedAt = now
	return next, nil
}
