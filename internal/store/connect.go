package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InitConnectAccount creates the onboarding row for a client the first time
// they start the connect-account OAuth flow (spec §4.6), storing the CSRF
// state token. If a row already exists it is returned unchanged — starting
// the flow twice must not clobber an in-progress or completed onboarding.
func (s *Store) InitConnectAccount(ctx context.Context, clientID, oauthState string) (StripeConnectAccount, error) {
	existing, err := s.GetConnectAccount(ctx, clientID)
	if err == nil {
		return existing, nil
	}
	if err != ErrNotFound {
		return StripeConnectAccount{}, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO stripe_connect_accounts
			(client_id, oauth_state, enable_automatic_payouts, automatic_payout_threshold_cents, created_at, updated_at)
		VALUES ($1, $2, false, 0, $3, $3)`), clientID, oauthState, now)
	if err != nil {
		return StripeConnectAccount{}, fmt.Errorf("store: init connect account: %w", err)
	}
	return s.GetConnectAccount(ctx, clientID)
}

// GetConnectAccount reads a client's connect account row, returning
// ErrNotFound if the client has never started onboarding.
func (s *Store) GetConnectAccount(ctx context.Context, clientID string) (StripeConnectAccount, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT client_id, oauth_state, stripe_user_id, connect_account, connect_credentials,
		       enable_automatic_payouts, automatic_payout_threshold_cents, created_at, updated_at
		FROM stripe_connect_accounts WHERE client_id = $1`), clientID)
	return scanConnectAccount(row)
}

func scanConnectAccount(row *sql.Row) (StripeConnectAccount, error) {
	var a StripeConnectAccount
	var stripeUserID sql.NullString
	var enabled sql.NullBool
	var threshold sql.NullInt64
	err := row.Scan(&a.ClientID, &a.OAuthState, &stripeUserID, &a.ConnectAccount, &a.ConnectCredentials,
		&enabled, &threshold, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return StripeConnectAccount{}, ErrNotFound
	}
	if err != nil {
		return StripeConnectAccount{}, fmt.Errorf("store: scan connect account: %w", err)
	}
	if stripeUserID.Valid {
		a.StripeUserID = &stripeUserID.String
	}
	a.EnableAutomaticPayouts = enabled.Bool
	a.AutomaticPayoutThresholdCents = threshold.Int64
	return a, nil
}

// CompleteConnectAccount records the stripe_user_id and raw account/
// credentials payloads returned by the OAuth token exchange, transitioning
// the account to Active (spec §4.6). oauthState must match the row's stored
// state token; callers are expected to have already checked it, this is a
// second defense against a stale or replayed callback.
func (s *Store) CompleteConnectAccount(ctx context.Context, clientID, oauthState, stripeUserID string, account, credentials []byte) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE stripe_connect_accounts
		SET stripe_user_id = $1, connect_account = $2, connect_credentials = $3, updated_at = $4
		WHERE client_id = $5 AND oauth_state = $6`),
		stripeUserID, account, credentials, now, clientID, oauthState)
	if err != nil {
		return fmt.Errorf("store: complete connect account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: complete connect account rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateConnectAccountPrefs updates the automatic-payout preference fields
// (SPEC_FULL.md supplemented feature 5).
func (s *Store) UpdateConnectAccountPrefs(ctx context.Context, clientID string, enable bool, thresholdCents int64) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE stripe_connect_accounts
		SET enable_automatic_payouts = $1, automatic_payout_threshold_cents = $2, updated_at = $3
		WHERE client_id = $4`), enable, thresholdCents, now, clientID)
	if err != nil {
		return fmt.Errorf("store: update connect account prefs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update connect account prefs rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertConnectTransfer records a completed outbound payout transfer as an
// immutable audit row (spec §3, §4.5).
func (s *Store) InsertConnectTransfer(ctx context.Context, clientID string, amountCents int64, providerTransferID string, rawResponse []byte) (StripeConnectTransfer, error) {
	t := StripeConnectTransfer{
		ID:                 uuid.NewString(),
		CreatedAt:          time.Now().UTC(),
		ClientID:           clientID,
		AmountCents:        amountCents,
		ProviderTransferID: providerTransferID,
		RawResponse:        rawResponse,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO stripe_connect_transfers (id, created_at, client_id, amount_cents, provider_transfer_id, raw_response)
		VALUES ($1, $2, $3, $4, $5, $6)`),
		t.ID, t.CreatedAt, t.ClientID, t.AmountCents, t.ProviderTransferID, t.RawResponse)
	if err != nil {
		return StripeConnectTransfer{}, fmt.Errorf("store: insert connect transfer: %w", err)
	}
	return t, nil
}

// ListConnectTransfers returns a client's payout history, most-recent-first.
func (s *Store) ListConnectTransfers(ctx context.Context, clientID string, limit int) ([]StripeConnectTransfer, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, created_at, client_id, amount_cents, provider_transfer_id, raw_response
		FROM stripe_connect_transfers WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2`), clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list connect transfers: %w", err)
	}
	defer rows.Close()

	out := make([]StripeConnectTransfer, 0, limit)
	for rows.Next() {
		var t StripeConnectTransfer
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.ClientID, &t.AmountCents, &t.ProviderTransferID, &t.RawResponse); err != nil {
			return nil, fmt.Errorf("store: scan connect transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
