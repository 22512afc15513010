package store

import (
	"time"

	"github.com/umpyre-code/beancounter/internal/enum"
)

// Balance is the per-client triple of cent amounts (spec §3).
type Balance struct {
	ClientID          string
	BalanceCents      int64
	PromoCents        int64
	WithdrawableCents int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Transaction is a single append-only ledger entry (spec §3).
type Transaction struct {
	ID          int64
	CreatedAt   time.Time
	ClientID    string
	TxType      enum.TxType
	TxReason    enum.TxReason
	AmountCents int64
}

// Payment is an escrow row for an unsettled message payment (spec §3).
type Payment struct {
	ID            string
	CreatedAt     time.Time
	ClientIDFrom  string
	ClientIDTo    *string
	PaymentCents  int64
	MessageHash   []byte
	IsPromo       bool
}

// StripeConnectAccount is a client's onboarding record for the external
// connect-transfer flow (spec §3, §4.6).
type StripeConnectAccount struct {
	ClientID                      string
	OAuthState                    string
	StripeUserID                  *string
	ConnectAccount                []byte
	ConnectCredentials            []byte
	EnableAutomaticPayouts        bool
	AutomaticPayoutThresholdCents int64
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}

// IsActive reports whether the account has completed OAuth (spec §3).
func (a *StripeConnectAccount) IsActive() bool {
	return a != nil && a.StripeUserID != nil && *a.StripeUserID != ""
}

// StripeConnectTransfer is an immutable audit row for a completed outbound
// payout transfer (spec §3).
type StripeConnectTransfer struct {
	ID                 string
	CreatedAt          time.Time
	ClientID           string
	AmountCents        int64
	ProviderTransferID string
	RawResponse        []byte
}

// LedgerEntry is one Transaction row to insert as part of a ClientMutation.
// AmountCents is always the positive magnitude (spec §3); the rail and sign
// are derived from Type.
type LedgerEntry struct {
	Type        enum.TxType
	Reason      enum.TxReason
	AmountCents int64
}

// BalanceDelta is the change to apply to a single client's Balance row.
// Deltas are signed: a debit posting carries a negative BalanceDelta.
type BalanceDelta struct {
	BalanceCents      int64
	PromoCents        int64
	WithdrawableCents int64
}

// ClientMutation bundles the ledger entries and balance delta for one
// client within a single apply_ledger_entries unit of work (spec §4.1).
// Most operations mutate exactly one client; the slice form lets a future
// caller batch multiple clients atomically (e.g. a combined hold+release)
// while keeping today's single-client callers simple.
type ClientMutation struct {
	ClientID string
	Entries  []LedgerEntry
	Delta    BalanceDelta
}
