// Package rpc is the thin facade translating the wire contract of spec §6
// into ledger, escrow, and connect operations. Amounts in requests are
// 32-bit cents; balances in responses are 64-bit cents (spec §6).
package rpc

import "github.com/umpyre-code/beancounter/internal/enum"

// Timestamp mirrors the wire schema's seconds-since-epoch-plus-nanos shape.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

type GetBalanceRequest struct {
	ClientID string `json:"client_id"`
}

type BalanceResponse struct {
	ClientID          string `json:"client_id"`
	BalanceCents      int64  `json:"balance_cents"`
	PromoCents        int64  `json:"promo_cents"`
	WithdrawableCents int64  `json:"withdrawable_cents"`
}

type GetTransactionsRequest struct {
	ClientID string `json:"client_id"`
	Limit    int32  `json:"limit"`
	BeforeID int64  `json:"before_id"`
}

type TransactionWire struct {
	ID                int64     `json:"id"`
	CreatedAt         Timestamp `json:"created_at"`
	ClientID          string    `json:"client_id"`
	TxType            string    `json:"tx_type"`
	TxReason          string    `json:"tx_reason"`
	Rail              string    `json:"rail"`
	AmountCents       int64     `json:"amount_cents"`
	SignedAmountCents int64     `json:"signed_amount_cents"`
}

type GetTransactionsResponse struct {
	Transactions []TransactionWire `json:"transactions"`
}

type AddPaymentRequest struct {
	ClientIDFrom string  `json:"client_id_from"`
	ClientIDTo   *string `json:"client_id_to,omitempty"`
	AmountCents  int32   `json:"amount_cents"`
	MessageHash  []byte  `json:"message_hash"`
	IsPromo      bool    `json:"is_promo"`
}

type AddPaymentResponse struct {
	Result enum.ResultCode `json:"result"`
}

type SettlePaymentRequest struct {
	ClientID    string `json:"client_id"`
	MessageHash []byte `json:"message_hash"`
}

type SettlePaymentResponse struct {
	PaymentCents int64           `json:"payment_cents"`
	FeeCents     int64           `json:"fee_cents"`
	Balance      BalanceResponse `json:"balance"`
	RAL          int64           `json:"ral"`
}

type AddCreditsRequest struct {
	ClientID    string `json:"client_id"`
	AmountCents int32  `json:"amount_cents"`
}

type AddPromoRequest struct {
	ClientID    string `json:"client_id"`
	AmountCents int32  `json:"amount_cents"`
}

type ConnectPayoutRequest struct {
	ClientID    string `json:"client_id"`
	AmountCents int32  `json:"amount_cents"`
}

type ConnectPayoutResponse struct {
	Result enum.ResultCode `json:"result"`
}

type StripeChargeRequest struct {
	ClientID    string `json:"client_id"`
	AmountCents int32  `json:"amount_cents"`
	OpaqueToken string `json:"opaque_token"`
}

type StripeChargeResponse struct {
	Result      enum.StripeChargeResult `json:"result"`
	APIResponse string                  `json:"api_response"`
	Message     string                  `json:"message"`
}

type CompleteConnectOauthRequest struct {
	ClientID string `json:"client_id"`
	Code     string `json:"code"`
	State    string `json:"state"`
}

type GetConnectAccountRequest struct {
	ClientID string `json:"client_id"`
}

type ConnectAccountInfoResponse struct {
	State        enum.ConnectAccountState `json:"state"`
	LoginLinkURL string                   `json:"login_link_url,omitempty"`
	OAuthURL     string                   `json:"oauth_url,omitempty"`
}

type UpdateConnectAccountPrefsRequest struct {
	ClientID                      string `json:"client_id"`
	EnableAutomaticPayouts        bool   `json:"enable_automatic_payouts"`
	AutomaticPayoutThresholdCents int64  `json:"automatic_payout_threshold_cents"`
}

type GetConnectPayoutHistoryRequest struct {
	ClientID string `json:"client_id"`
	Limit    int32  `json:"limit"`
}

type ConnectTransferWire struct {
	ID                 string    `json:"id"`
	CreatedAt          Timestamp `json:"created_at"`
	AmountCents        int64     `json:"amount_cents"`
	ProviderTransferID string    `json:"provider_transfer_id"`
}

type GetConnectPayoutHistoryResponse struct {
	Transfers []ConnectTransferWire `json:"transfers"`
}

type GetStatsRequest struct {
	Days int `json:"days"`
	TopN int `json:"top_n"`
}

type ReasonTotalWire struct {
	Day         string `json:"day"`
	Reason      string `json:"reason"`
	AmountCents int64  `json:"amount_cents"`
}

type ClientTotalWire struct {
	ClientID    string `json:"client_id"`
	AmountCents int64  `json:"amount_cents"`
}

type GetStatsResponse struct {
	DailyReasonTotals []ReasonTotalWire `json:"daily_reason_totals"`
	TopReaders        []ClientTotalWire `json:"top_readers"`
}

type CheckResponse struct {
	Serving bool `json:"serving"`
}
