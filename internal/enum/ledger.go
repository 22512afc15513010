// Package enum holds the small string-backed enums shared by the store,
// ledger, escrow, and RPC layers. Values are persisted and carried on the
// wire in their lower-case snake form (see spec §6).
package enum

import "fmt"

// TxType is the ledger rail and direction of a Transaction entry.
type TxType string

const (
	TxDebit       TxType = "debit"
	TxCredit      TxType = "credit"
	TxPromoCredit TxType = "promo_credit"
	TxPromoDebit  TxType = "promo_debit"
)

// Rail reports which balance rail a TxType posts against.
func (t TxType) Rail() Rail {
	switch t {
	case TxDebit, TxCredit:
		return RailReal
	case TxPromoCredit, TxPromoDebit:
		return RailPromo
	default:
		return RailReal
	}
}

// Sign returns +1 for credits, -1 for debits, regardless of rail.
func (t TxType) Sign() int64 {
	switch t {
	case TxCredit, TxPromoCredit:
		return 1
	case TxDebit, TxPromoDebit:
		return -1
	default:
		return 0
	}
}

// Rail identifies which balance sub-pool a posting affects.
type Rail string

const (
	RailReal  Rail = "real"
	RailPromo Rail = "promo"
)

// TxReason is the business reason a Transaction was posted. The wire schema
// spells both type and reason with the same underlying enum type (an
// apparent accidental reuse, per spec §9); TxReason is emitted independently
// of TxType in the store.
type TxReason string

const (
	ReasonMessageRead   TxReason = "message_read"
	ReasonMessageUnread TxReason = "message_unread"
	ReasonMessageSent   TxReason = "message_sent"
	ReasonCreditAdded   TxReason = "credit_added"
	ReasonPayout        TxReason = "payout"
)

func (TxReason) Values() []string {
	return []string{
		string(ReasonMessageRead),
		string(ReasonMessageUnread),
		string(ReasonMessageSent),
		string(ReasonCreditAdded),
		string(ReasonPayout),
	}
}

// ResultCode is the in-band result of AddPayment / ConnectPayout (spec §6).
// Business pre-condition failures are reported this way, never as transport
// errors (spec §7 kind 2).
type ResultCode string

const (
	ResultSuccess            ResultCode = "success"
	ResultInsufficientBalance ResultCode = "insufficient_balance"
	ResultInvalidAmount      ResultCode = "invalid_amount"
)

// StripeChargeResult is the in-band result of the StripeCharge RPC.
type StripeChargeResult string

const (
	StripeChargeSuccess StripeChargeResult = "success"
	StripeChargeFailure StripeChargeResult = "failure"
)

// ConnectAccountState is the lifecycle state of a StripeConnectAccount.
type ConnectAccountState string

const (
	ConnectActive   ConnectAccountState = "active"
	ConnectInactive ConnectAccountState = "inactive"
)

// preMigrationTxTypes is the enum set that existed before the PROMO_DEBIT
// migration (spec §9). Historical rows written before the migration never
// carry PROMO_DEBIT; ParseTxType accepts both sets on read, but the store
// only ever writes the post-migration set.
var preMigrationTxTypes = map[string]TxType{
	string(TxDebit):       TxDebit,
	string(TxCredit):      TxCredit,
	string(TxPromoCredit): TxPromoCredit,
}

// ParseTxType decodes a stored tx_type value, tolerating both the pre- and
// post-migration enum sets.
func ParseTxType(s string) (TxType, error) {
	if t, ok := preMigrationTxTypes[s]; ok {
		return t, nil
	}
	if s == string(TxPromoDebit) {
		return TxPromoDebit, nil
	}
	return "", fmt.Errorf("unrecognized tx_type %q", s)
}

// ParseTxReason decodes a stored tx_reason value.
func ParseTxReason(s string) (TxReason, error) {
	for _, v := range TxReason("").Values() {
		if v == s {
			return TxReason(s), nil
		}
	}
	return "", fmt.Errorf("unrecognized tx_reason %q", s)
}
