package escrow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umpyre-code/beancounter/internal/enum"
	"github.com/umpyre-code/beancounter/internal/ledger"
	"github.com/umpyre-code/beancounter/internal/ral"
	"github.com/umpyre-code/beancounter/internal/store"
)

var testDBCounter int

func newTestEscrow(t *testing.T) *Escrow {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:escrow_test_%d?mode=memory&cache=shared&_fk=1", testDBCounter)

	s, err := store.Open("sqlite3", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	l := ledger.New(s, ledger.DefaultFeeRate)
	r := ral.New(s, ral.DefaultWindow, ral.DefaultMinSamples)
	return New(s, l, r, nil)
}

func TestAddPaymentInvalidAmount(t *testing.T) {
	e := newTestEscrow(t)
	res, err := e.AddPayment(context.Background(), "alice", nil, 0, []byte("h"), false)
	require.NoError(t, err)
	assert.Equal(t, enum.ResultInvalidAmount, res.Result)
}

func TestAddPaymentInsufficientBalance(t *testing.T) {
	e := newTestEscrow(t)
	ctx := context.Background()

	res, err := e.AddPayment(ctx, "alice", nil, 500, []byte("h1"), false)
	require.NoError(t, err)
	assert.Equal(t, enum.ResultInsufficientBalance, res.Result)

	_, err = e.store.TakePayment(ctx, "bob", []byte("h1"))
	assert.ErrorIs(t, err, store.ErrNotFound, "a failed hold must not leave a dangling escrow row")
}

// TestAddPaymentInsufficientBalanceWithRecipient is the non-nil-recipient
// counterpart of TestAddPaymentInsufficientBalance: a payment naming a
// client_id_to up front, whose sender can't cover the amount, must still
// report ResultInsufficientBalance and leave no escrow row behind — not an
// ErrWrongRecipient from a recipient-guarded cleanup delete.
func TestAddPaymentInsufficientBalanceWithRecipient(t *testing.T) {
	e := newTestEscrow(t)
	ctx := context.Background()
	recipient := "bob"

	res, err := e.AddPayment(ctx, "alice", &recipient, 500, []byte("h1r"), false)
	require.NoError(t, err)
	assert.Equal(t, enum.ResultInsufficientBalance, res.Result)

	_, err = e.store.TakePayment(ctx, recipient, []byte("h1r"))
	assert.ErrorIs(t, err, store.ErrNotFound, "a failed hold must not leave a dangling escrow row")

	// A retry with the same hash must go through HoldPayment again, not
	// find a stale row and short-circuit to success without holding funds.
	retry, err := e.AddPayment(ctx, "alice", &recipient, 500, []byte("h1r"), false)
	require.NoError(t, err)
	assert.Equal(t, enum.ResultInsufficientBalance, retry.Result)
}

func TestAddPaymentIdempotent(t *testing.T) {
	e := newTestEscrow(t)
	ctx := context.Background()

	_, err := e.ledger.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)

	first, err := e.AddPayment(ctx, "alice", nil, 100, []byte("h2"), false)
	require.NoError(t, err)
	require.Equal(t, enum.ResultSuccess, first.Result)

	second, err := e.AddPayment(ctx, "alice", nil, 999, []byte("h2"), false)
	require.NoError(t, err)
	assert.Equal(t, enum.ResultSuccess, second.Result)
	assert.Equal(t, int64(100), second.Payment.PaymentCents, "retried call does not re-hold a different amount")

	bal, err := e.store.PeekBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(900), bal.BalanceCents, "funds are held exactly once across both calls")
}

func TestSettlePaymentRoundTrip(t *testing.T) {
	e := newTestEscrow(t)
	ctx := context.Background()

	_, err := e.ledger.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)

	_, err = e.AddPayment(ctx, "alice", nil, 100, []byte("h3"), false)
	require.NoError(t, err)

	res, err := e.SettlePayment(ctx, "bob", []byte("h3"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Payment.PaymentCents, "gross amount is surfaced alongside the fee")
	assert.Equal(t, int64(3), res.FeeCents)
	assert.Equal(t, int64(97), res.Balance.BalanceCents)
	assert.Equal(t, int64(97), res.Balance.WithdrawableCents)
	assert.Equal(t, int64(ral.Undefined), res.RAL, "fewer than min_samples reads so far")

	aliceBal, err := e.store.PeekBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(900), aliceBal.BalanceCents)

	bobBal, err := e.store.PeekBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(97), bobBal.BalanceCents)
	assert.Equal(t, int64(97), bobBal.WithdrawableCents)
}

func TestSettlePaymentUnknownHash(t *testing.T) {
	e := newTestEscrow(t)
	_, err := e.SettlePayment(context.Background(), "bob", []byte("no-such-hash"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSettlePaymentWrongRecipient(t *testing.T) {
	e := newTestEscrow(t)
	ctx := context.Background()

	_, err := e.ledger.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)
	recipient := "bob"
	_, err = e.store.CreatePayment(ctx, store.Payment{
		ClientIDFrom: "alice",
		ClientIDTo:   &recipient,
		PaymentCents: 100,
		MessageHash:  []byte("h4"),
	})
	require.NoError(t, err)

	_, err = e.SettlePayment(ctx, "eve", []byte("h4"))
	assert.ErrorIs(t, err, store.ErrWrongRecipient)
}
