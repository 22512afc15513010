package store

import (
	"context"
	"fmt"

	"github.com/umpyre-code/beancounter/internal/enum"
)

// ListTransactions returns a client's ledger entries, most-recent-first
// (spec §4.1). beforeID, when non-zero, returns entries with id < beforeID
// so operational tooling can page through full history (SPEC_FULL.md
// supplemented feature 1) — limit alone only bounds the first page.
func (s *Store) ListTransactions(ctx context.Context, clientID string, limit int, beforeID int64) ([]Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT id, created_at, client_id, tx_type, tx_reason, amount_cents
		FROM transactions
		WHERE client_id = $1`
	args := []any{clientID}

	if beforeID > 0 {
		query += " AND id < $2 ORDER BY id DESC LIMIT $3"
		args = append(args, beforeID, limit)
	} else {
		query += " ORDER BY id DESC LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0, limit)
	for rows.Next() {
		var t Transaction
		var typ, reason string
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.ClientID, &typ, &reason, &t.AmountCents); err != nil {
			return nil, fmt.Errorf("store: scan transaction: %w", err)
		}

		// Accept both pre- and post-migration tx_type encodings on read
		// (spec §9); a row that fails to parse is skipped rather than
		// aborting the whole page.
		parsedType, err := enum.ParseTxType(typ)
		if err != nil {
			continue
		}
		parsedReason, err := enum.ParseTxReason(reason)
		if err != nil {
			continue
		}
		t.TxType = parsedType
		t.TxReason = parsedReason
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListMessageReadAmounts returns the amount_cents of a client's most recent
// credit postings under reason MESSAGE_READ, most-recent-first, bounded to
// limit rows. Used by internal/ral to compute the Read-At-Level statistic
// (spec §4.4).
func (s *Store) ListMessageReadAmounts(ctx context.Context, clientID string, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT amount_cents FROM transactions
		WHERE client_id = $1 AND tx_reason = $2 AND tx_type IN ($3, $4)
		ORDER BY id DESC LIMIT $5`),
		clientID, string(enum.ReasonMessageRead), string(enum.TxCredit), string(enum.TxPromoCredit), limit)
	if err != nil {
		return nil, fmt.Errorf("store: list message_read amounts: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0, limit)
	for rows.Next() {
		var amt int64
		if err := rows.Scan(&amt); err != nil {
			return nil, fmt.Errorf("store: scan message_read amount: %w", err)
		}
		out = append(out, amt)
	}
	return out, rows.Err()
}
