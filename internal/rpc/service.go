package rpc

import (
	"context"

	"github.com/umpyre-code/beancounter/internal/connect"
	"github.com/umpyre-code/beancounter/internal/enum"
	"github.com/umpyre-code/beancounter/internal/escrow"
	"github.com/umpyre-code/beancounter/internal/ledger"
	"github.com/umpyre-code/beancounter/internal/provider"
	"github.com/umpyre-code/beancounter/internal/store"
)

// Service composes the core components behind the wire contract of spec
// §6. Handlers never touch the store directly except for the plain reader
// operations (GetBalance, GetTransactions, GetStats,
// GetConnectPayoutHistory) that take no lock (spec §5).
type Service struct {
	store   *store.Store
	ledger  *ledger.Ledger
	escrow  *escrow.Escrow
	connect *connect.Connect
	charger provider.CardCharger
}

func NewService(s *store.Store, l *ledger.Ledger, e *escrow.Escrow, c *connect.Connect, charger provider.CardCharger) *Service {
	return &Service{store: s, ledger: l, escrow: e, connect: c, charger: charger}
}

func toWireTimestamp(t interface{ Unix() int64 }) Timestamp {
	return Timestamp{Seconds: t.Unix()}
}

// GetBalance is a plain reader; an unknown client returns a zeroed balance
// without persisting a row (spec §3).
func (s *Service) GetBalance(ctx context.Context, req GetBalanceRequest) (BalanceResponse, error) {
	bal, err := s.store.PeekBalance(ctx, req.ClientID)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{
		ClientID:          bal.ClientID,
		BalanceCents:      bal.BalanceCents,
		PromoCents:        bal.PromoCents,
		WithdrawableCents: bal.WithdrawableCents,
	}, nil
}

func (s *Service) GetTransactions(ctx context.Context, req GetTransactionsRequest) (GetTransactionsResponse, error) {
	txs, err := s.store.ListTransactions(ctx, req.ClientID, int(req.Limit), req.BeforeID)
	if err != nil {
		return GetTransactionsResponse{}, err
	}

	out := make([]TransactionWire, len(txs))
	for i, t := range txs {
		out[i] = TransactionWire{
			ID:                t.ID,
			CreatedAt:         toWireTimestamp(t.CreatedAt),
			ClientID:          t.ClientID,
			TxType:            string(t.TxType),
			TxReason:          string(t.TxReason),
			Rail:              string(t.TxType.Rail()),
			AmountCents:       t.AmountCents,
			SignedAmountCents: t.AmountCents * t.TxType.Sign(),
		}
	}
	return GetTransactionsResponse{Transactions: out}, nil
}

func (s *Service) AddPayment(ctx context.Context, req AddPaymentRequest) (AddPaymentResponse, error) {
	result, err := s.escrow.AddPayment(ctx, req.ClientIDFrom, req.ClientIDTo, int64(req.AmountCents), req.MessageHash, req.IsPromo)
	if err != nil {
		return AddPaymentResponse{}, err
	}
	return AddPaymentResponse{Result: result.Result}, nil
}

func (s *Service) SettlePayment(ctx context.Context, req SettlePaymentRequest) (SettlePaymentResponse, error) {
	result, err := s.escrow.SettlePayment(ctx, req.ClientID, req.MessageHash)
	if err != nil {
		return SettlePaymentResponse{}, err
	}
	return SettlePaymentResponse{
		PaymentCents: result.Payment.PaymentCents,
		FeeCents:     result.FeeCents,
		Balance: BalanceResponse{
			ClientID:          result.Balance.ClientID,
			BalanceCents:      result.Balance.BalanceCents,
			PromoCents:        result.Balance.PromoCents,
			WithdrawableCents: result.Balance.WithdrawableCents,
		},
		RAL: result.RAL,
	}, nil
}

func (s *Service) AddCredits(ctx context.Context, req AddCreditsRequest) (BalanceResponse, error) {
	bal, err := s.ledger.AddCredits(ctx, req.ClientID, int64(req.AmountCents))
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{ClientID: bal.ClientID, BalanceCents: bal.BalanceCents, PromoCents: bal.PromoCents, WithdrawableCents: bal.WithdrawableCents}, nil
}

func (s *Service) AddPromo(ctx context.Context, req AddPromoRequest) (BalanceResponse, error) {
	bal, err := s.ledger.AddPromo(ctx, req.ClientID, int64(req.AmountCents))
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{ClientID: bal.ClientID, BalanceCents: bal.BalanceCents, PromoCents: bal.PromoCents, WithdrawableCents: bal.WithdrawableCents}, nil
}

func (s *Service) ConnectPayout(ctx context.Context, req ConnectPayoutRequest) (ConnectPayoutResponse, error) {
	result, _, err := s.connect.Payout(ctx, req.ClientID, int64(req.AmountCents))
	if err != nil {
		return ConnectPayoutResponse{}, err
	}
	return ConnectPayoutResponse{Result: result}, nil
}

// StripeCharge charges the opaque token and, only on success, posts an
// add_credits entry (spec §4.5).
func (s *Service) StripeCharge(ctx context.Context, req StripeChargeRequest) (StripeChargeResponse, error) {
	result, err := s.charger.Charge(ctx, req.ClientID, int64(req.AmountCents), req.OpaqueToken)
	if err != nil {
		return StripeChargeResponse{}, err
	}
	if !result.OK {
		return StripeChargeResponse{Result: enum.StripeChargeFailure, APIResponse: result.APIResponse, Message: result.Message}, nil
	}

	if _, err := s.ledger.AddCredits(ctx, req.ClientID, int64(req.AmountCents)); err != nil {
		return StripeChargeResponse{}, err
	}
	return StripeChargeResponse{Result: enum.StripeChargeSuccess, APIResponse: result.APIResponse}, nil
}

func (s *Service) CompleteConnectOauth(ctx context.Context, req CompleteConnectOauthRequest) (ConnectAccountInfoResponse, error) {
	info, err := s.connect.CompleteOauth(ctx, req.ClientID, req.Code, req.State)
	if err != nil {
		return ConnectAccountInfoResponse{}, err
	}
	return ConnectAccountInfoResponse{State: info.State, LoginLinkURL: info.LoginLinkURL, OAuthURL: info.OAuthURL}, nil
}

func (s *Service) GetConnectAccount(ctx context.Context, req GetConnectAccountRequest) (ConnectAccountInfoResponse, error) {
	info, err := s.connect.GetAccount(ctx, req.ClientID)
	if err != nil {
		return ConnectAccountInfoResponse{}, err
	}
	return ConnectAccountInfoResponse{State: info.State, LoginLinkURL: info.LoginLinkURL, OAuthURL: info.OAuthURL}, nil
}

func (s *Service) UpdateConnectAccountPrefs(ctx context.Context, req UpdateConnectAccountPrefsRequest) error {
	return s.connect.UpdatePrefs(ctx, req.ClientID, req.EnableAutomaticPayouts, req.AutomaticPayoutThresholdCents)
}

// GetConnectPayoutHistory lists a client's completed payout transfers,
// most-recent-first (spec §4.5).
func (s *Service) GetConnectPayoutHistory(ctx context.Context, req GetConnectPayoutHistoryRequest) (GetConnectPayoutHistoryResponse, error) {
	transfers, err := s.store.ListConnectTransfers(ctx, req.ClientID, int(req.Limit))
	if err != nil {
		return GetConnectPayoutHistoryResponse{}, err
	}

	out := make([]ConnectTransferWire, len(transfers))
	for i, t := range transfers {
		out[i] = ConnectTransferWire{
			ID:                 t.ID,
			CreatedAt:          toWireTimestamp(t.CreatedAt),
			AmountCents:        t.AmountCents,
			ProviderTransferID: t.ProviderTransferID,
		}
	}
	return GetConnectPayoutHistoryResponse{Transfers: out}, nil
}

func (s *Service) GetStats(ctx context.Context, req GetStatsRequest) (GetStatsResponse, error) {
	stats, err := s.store.FetchStats(ctx, req.Days, req.TopN)
	if err != nil {
		return GetStatsResponse{}, err
	}

	reasonTotals := make([]ReasonTotalWire, len(stats.DailyReasonTotals))
	for i, rt := range stats.DailyReasonTotals {
		reasonTotals[i] = ReasonTotalWire{Day: rt.Day, Reason: rt.Reason, AmountCents: rt.AmountCents}
	}
	topReaders := make([]ClientTotalWire, len(stats.TopReaders))
	for i, ct := range stats.TopReaders {
		topReaders[i] = ClientTotalWire{ClientID: ct.ClientID, AmountCents: ct.AmountCents}
	}
	return GetStatsResponse{DailyReasonTotals: reasonTotals, TopReaders: topReaders}, nil
}

// Check reports whether the store is reachable (spec §6 health probe).
func (s *Service) Check(ctx context.Context) CheckResponse {
	return CheckResponse{Serving: s.store.DB().PingContext(ctx) == nil}
}
