// Package connect implements the client-facing half of the connect-account
// OAuth lifecycle and the payout flow that spends withdrawable funds
// against it (spec §4.5, §4.6).
package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/umpyre-code/beancounter/internal/enum"
	"github.com/umpyre-code/beancounter/internal/ledger"
	"github.com/umpyre-code/beancounter/internal/provider"
	"github.com/umpyre-code/beancounter/internal/store"
)

// ErrCSRFMismatch is returned by CompleteOauth when the state token in the
// callback doesn't match the one the account was initialized with.
var ErrCSRFMismatch = errors.New("connect: oauth state mismatch")

// ErrTransferFailed is returned by Payout when the ledger debit succeeded
// but the provider declined the transfer. It is not one of the three
// ResultCode values (spec §7): a declined transfer is neither a balance
// precondition nor an invalid-amount rejection, so it surfaces as an
// RPC-level error after the compensating credit has already been posted.
var ErrTransferFailed = errors.New("connect: provider transfer failed")

// Connect composes the store, the ledger, an OAuth2 config for the
// provider's authorization-code flow, and the transfer capability used by
// Payout.
type Connect struct {
	store     *store.Store
	ledger    *ledger.Ledger
	transfers provider.ConnectTransfers
	oauth     *oauth2.Config
	oauthBase string
}

func New(s *store.Store, l *ledger.Ledger, transfers provider.ConnectTransfers, oauth *oauth2.Config) *Connect {
	return &Connect{store: s, ledger: l, transfers: transfers, oauth: oauth}
}

// AccountInfo is the ACTIVE/INACTIVE view returned by GetConnectAccount
// (spec §4.6). Exactly one of LoginLinkURL/OAuthURL is set, matching the
// wire schema's oneof.
type AccountInfo struct {
	State        enum.ConnectAccountState
	LoginLinkURL string
	OAuthURL     string
}

// GetAccount lazily creates the onboarding row on first reference, using a
// fresh CSRF state token, and reports the account's current OAuth state.
func (c *Connect) GetAccount(ctx context.Context, clientID string) (AccountInfo, error) {
	state := uuid.NewString()
	row, err := c.store.InitConnectAccount(ctx, clientID, state)
	if err != nil {
		return AccountInfo{}, err
	}

	if row.IsActive() {
		return AccountInfo{
			State:        enum.ConnectActive,
			LoginLinkURL: c.loginLinkURL(*row.StripeUserID),
		}, nil
	}

	return AccountInfo{
		State:    enum.ConnectInactive,
		OAuthURL: c.oauth.AuthCodeURL(row.OAuthState),
	}, nil
}

func (c *Connect) loginLinkURL(stripeUserID string) string {
	return fmt.Sprintf("https://connect.stripe.com/express/%s", stripeUserID)
}

// CompleteOauth exchanges an authorization code for a token, verifying the
// CSRF state first, and activates the account (spec §4.6).
func (c *Connect) CompleteOauth(ctx context.Context, clientID, code, state string) (AccountInfo, error) {
	existing, err := c.store.GetConnectAccount(ctx, clientID)
	if err != nil {
		return AccountInfo{}, err
	}
	if existing.OAuthState != state {
		return AccountInfo{}, ErrCSRFMismatch
	}

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("connect: exchanging oauth code: %w", err)
	}

	stripeUserID, _ := token.Extra("stripe_user_id").(string)
	credentials, err := json.Marshal(token)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("connect: marshaling oauth token: %w", err)
	}
	account, err := json.Marshal(token.Extra("stripe_publishable_key"))
	if err != nil {
		return AccountInfo{}, fmt.Errorf("connect: marshaling account payload: %w", err)
	}

	if err := c.store.CompleteConnectAccount(ctx, clientID, state, stripeUserID, account, credentials); err != nil {
		return AccountInfo{}, err
	}

	return AccountInfo{State: enum.ConnectActive, LoginLinkURL: c.loginLinkURL(stripeUserID)}, nil
}

// UpdatePrefs updates the automatic-payout preferences with no ledger
// side-effects (spec §4.6).
func (c *Connect) UpdatePrefs(ctx context.Context, clientID string, enable bool, thresholdCents int64) error {
	return c.store.UpdateConnectAccountPrefs(ctx, clientID, enable, thresholdCents)
}

// Payout debits withdrawable funds and transfers them out via the provider
// (spec §4.5). If the transfer fails after the ledger posting succeeded,
// the posting is reversed with a compensating credit so the withdrawable
// invariant is restored and no StripeConnectTransfer row is written.
func (c *Connect) Payout(ctx context.Context, clientID string, amountCents int64) (enum.ResultCode, *store.StripeConnectTransfer, error) {
	account, err := c.store.GetConnectAccount(ctx, clientID)
	if err != nil {
		return "", nil, err
	}
	if !account.IsActive() {
		return enum.ResultInvalidAmount, nil, nil
	}

	if _, err := c.ledger.Payout(ctx, clientID, amountCents); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return enum.ResultInsufficientBalance, nil, nil
		}
		if errors.Is(err, ledger.ErrInvalidAmount) {
			return enum.ResultInvalidAmount, nil, nil
		}
		return "", nil, err
	}

	result, err := c.transfers.Transfer(ctx, *account.StripeUserID, amountCents)
	if err != nil || !result.OK {
		if _, compErr := c.ledger.CompensatePayout(ctx, clientID, amountCents); compErr != nil {
			return "", nil, compErr
		}
		if err != nil {
			return "", nil, err
		}
		return "", nil, ErrTransferFailed
	}

	row, err := c.store.InsertConnectTransfer(ctx, clientID, amountCents, result.ProviderTransferID, result.RawResponse)
	if err != nil {
		return "", nil, err
	}
	return enum.ResultSuccess, &row, nil
}
