package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/umpyre-code/beancounter/internal/db"
)

// CreatePayment inserts a Payment row. If a row already exists for the same
// message_hash, the insert is skipped and the existing row is returned with
// existing=true — this UNIQUE-constraint race is the idempotency contract
// for AddPayment (spec §3, §4.1, §4.3).
func (s *Store) CreatePayment(ctx context.Context, p Payment) (row Payment, existing bool, err error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	err = db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		_, insErr := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO payments (id, created_at, client_id_from, client_id_to, payment_cents, message_hash, is_promo)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`),
			p.ID, p.CreatedAt, p.ClientIDFrom, p.ClientIDTo, p.PaymentCents, p.MessageHash, p.IsPromo)
		if insErr == nil {
			row = p
			return nil
		}

		if !isUniqueViolation(insErr) {
			return fmt.Errorf("store: insert payment: %w", insErr)
		}

		existing = true
		return insErr // postgres aborts this tx on the failed insert; read the row in a fresh one
	})
	if existing {
		err = db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) (getErr error) {
			row, getErr = s.getPaymentByHashTx(ctx, tx, p.MessageHash)
			return getErr
		})
	}
	if err != nil {
		return Payment{}, false, err
	}
	return row, existing, nil
}

func (s *Store) getPaymentByHashTx(ctx context.Context, tx *sql.Tx, hash []byte) (Payment, error) {
	q := fmt.Sprintf(`
		SELECT id, created_at, client_id_from, client_id_to, payment_cents, message_hash, is_promo
		FROM payments WHERE message_hash = $1 %s`, s.forUpdate())
	row := tx.QueryRowContext(ctx, s.rebind(q), hash)
	return scanPayment(row)
}

func scanPayment(row *sql.Row) (Payment, error) {
	var p Payment
	var to sql.NullString
	err := row.Scan(&p.ID, &p.CreatedAt, &p.ClientIDFrom, &to, &p.PaymentCents, &p.MessageHash, &p.IsPromo)
	if err == sql.ErrNoRows {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, fmt.Errorf("store: scan payment: %w", err)
	}
	if to.Valid {
		p.ClientIDTo = &to.String
	}
	return p, nil
}

// TakePayment deletes and returns the Payment matching message_hash,
// atomically within a single transaction (spec §4.1 take_payment). If the
// row's client_id_to is already bound, it must equal recipient or
// ErrWrongRecipient is returned and nothing is deleted. Fails with
// ErrNotFound if no payment exists for hash.
func (s *Store) TakePayment(ctx context.Context, recipient string, hash []byte) (Payment, error) {
	var result Payment
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		p, err := s.getPaymentByHashTx(ctx, tx, hash)
		if err != nil {
			return err
		}
		if p.ClientIDTo != nil && *p.ClientIDTo != recipient {
			return ErrWrongRecipient
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM payments WHERE id = $1`), p.ID); err != nil {
			return fmt.Errorf("store: delete payment: %w", err)
		}

		if p.ClientIDTo == nil {
			p.ClientIDTo = &recipient
		}
		result = p
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return result, nil
}

// DeletePaymentByHash unconditionally deletes the payment row matching
// message_hash, with no recipient check. Used to compensate an optimistic
// CreatePayment insert when the following HoldPayment fails — at that point
// no recipient has settled anything yet, so TakePayment's recipient guard
// would wrongly reject the cleanup for a payment that already named a
// client_id_to. A no-op, not an error, if the row is already gone.
func (s *Store) DeletePaymentByHash(ctx context.Context, hash []byte) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM payments WHERE message_hash = $1`), hash); err != nil {
		return fmt.Errorf("store: delete payment by hash: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// sqlite3 driver reports unique violations via its error text; the
	// driver's typed error isn't imported here to keep the store's
	// dependency surface limited to the two drivers already required.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
