package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/umpyre-code/beancounter/internal/db"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so dailyReasonTotals
// and topReaders can run standalone or inside the serializable transaction
// FetchStats opens to give the two aggregations a consistent snapshot.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ReasonTotal is one row of the daily-sums aggregation.
type ReasonTotal struct {
	Day         string
	Reason      string
	AmountCents int64
}

// ClientTotal is one row of the top-clients aggregation.
type ClientTotal struct {
	ClientID    string
	AmountCents int64
}

// Stats bundles the two independent aggregation queries behind GetStats
// (SPEC_FULL.md supplemented feature 2). The queries don't share state, so
// they run back to back against the same pool and their errors accumulate
// instead of the first one aborting the other.
type Stats struct {
	DailyReasonTotals []ReasonTotal
	TopReaders        []ClientTotal
}

// FetchStats computes the daily per-reason totals for the last `days` days
// and the top `topN` clients by total MESSAGE_READ credits received. Both
// aggregations run inside one serializable transaction
// (db.SerializableTxOptions) so they observe the same snapshot of the
// transactions table, rather than each seeing whatever happens to be
// committed at the moment it runs. A failure in either query is folded
// into the returned error, and the other query's results (if it succeeded)
// are still populated. With the postgres driver a failed query aborts the
// shared transaction, so a failure of the daily query makes the top-readers
// query and the commit fail too, and no partial result is returned.
func (s *Store) FetchStats(ctx context.Context, days, topN int) (Stats, error) {
	if days <= 0 {
		days = 30
	}
	if topN <= 0 {
		topN = 10
	}

	var result Stats
	var merr *multierror.Error

	txErr := db.WithTx(ctx, s.db, db.SerializableTxOptions, func(tx *sql.Tx) error {
		daily, err := s.dailyReasonTotals(ctx, tx, days)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("daily reason totals: %w", err))
		} else {
			result.DailyReasonTotals = daily
		}

		top, err := s.topReaders(ctx, tx, topN)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("top readers: %w", err))
		} else {
			result.TopReaders = top
		}

		// Commit regardless of a query-level error above; partial results
		// are still returned to the caller through merr.
		return nil
	})
	if txErr != nil {
		merr = multierror.Append(merr, fmt.Errorf("stats transaction: %w", txErr))
	}

	return result, merr.ErrorOrNil()
}

func (s *Store) dailyReasonTotals(ctx context.Context, q querier, days int) ([]ReasonTotal, error) {
	query := `
		SELECT date(created_at) AS day, tx_reason, SUM(amount_cents)
		FROM transactions
		WHERE created_at >= date('now', printf('-%d days', $1))
		GROUP BY day, tx_reason
		ORDER BY day DESC`
	if s.driver == "postgres" {
		query = `
			SELECT date_trunc('day', created_at)::date::text AS day, tx_reason, SUM(amount_cents)
			FROM transactions
			WHERE created_at >= now() - ($1 || ' days')::interval
			GROUP BY day, tx_reason
			ORDER BY day DESC`
	}

	rows, err := q.QueryContext(ctx, s.rebind(query), days)
	if err != nil {
		return nil, fmt.Errorf("store: query daily reason totals: %w", err)
	}
	defer rows.Close()

	var out []ReasonTotal
	for rows.Next() {
		var rt ReasonTotal
		if err := rows.Scan(&rt.Day, &rt.Reason, &rt.AmountCents); err != nil {
			return nil, fmt.Errorf("store: scan daily reason total: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (s *Store) topReaders(ctx context.Context, q querier, topN int) ([]ClientTotal, error) {
	rows, err := q.QueryContext(ctx, s.rebind(`
		SELECT client_id, SUM(amount_cents) AS total
		FROM transactions
		WHERE tx_reason = 'message_read' AND tx_type IN ('credit', 'promo_credit')
		GROUP BY client_id
		ORDER BY total DESC
		LIMIT $1`), topN)
	if err != nil {
		return nil, fmt.Errorf("store: query top readers: %w", err)
	}
	defer rows.Close()

	var out []ClientTotal
	for rows.Next() {
		var ct ClientTotal
		if err := rows.Scan(&ct.ClientID, &ct.AmountCents); err != nil {
			return nil, fmt.Errorf("store: scan top reader: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}
