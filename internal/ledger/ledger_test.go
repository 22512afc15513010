package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umpyre-code/beancounter/internal/store"
)

var testDBCounter int

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared&_fk=1", testDBCounter)

	s, err := store.Open("sqlite3", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	return New(s, DefaultFeeRate)
}

func TestAddCredits(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	t.Run("increases balance without touching withdrawable", func(t *testing.T) {
		bal, err := l.AddCredits(ctx, "alice", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), bal.BalanceCents)
		assert.Equal(t, int64(0), bal.WithdrawableCents)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := l.AddCredits(ctx, "alice", 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestAddPromo(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	bal, err := l.AddPromo(ctx, "alice", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal.PromoCents)
	assert.Equal(t, int64(0), bal.BalanceCents)
}

func TestMessageCycleReal(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)

	t.Run("hold debits the sender", func(t *testing.T) {
		bal, err := l.HoldPayment(ctx, "alice", 100, false)
		require.NoError(t, err)
		assert.Equal(t, int64(900), bal.BalanceCents)
	})

	t.Run("release credits the recipient net of fee", func(t *testing.T) {
		bal, err := l.ReleasePayment(ctx, "bob", 100, false)
		require.NoError(t, err)
		assert.Equal(t, int64(97), bal.BalanceCents)
		assert.Equal(t, int64(97), bal.WithdrawableCents)
	})

	t.Run("hold on insufficient balance", func(t *testing.T) {
		_, err := l.HoldPayment(ctx, "alice", 100000, false)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
}

func TestFeeFloor(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)
	_, err = l.HoldPayment(ctx, "alice", 10, false)
	require.NoError(t, err)

	bal, err := l.ReleasePayment(ctx, "bob", 10, false)
	require.NoError(t, err)
	assert.Equal(t, int64(9), bal.BalanceCents, "fee floors to 1, net is 9")
}

func TestMessageCyclePromo(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddPromo(ctx, "alice", 1000)
	require.NoError(t, err)

	bal, err := l.HoldPayment(ctx, "alice", 100, true)
	require.NoError(t, err)
	assert.Equal(t, int64(900), bal.PromoCents)

	bal, err = l.ReleasePayment(ctx, "bob", 100, true)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.PromoCents, "promo settlements have no fee")
	assert.Equal(t, int64(0), bal.WithdrawableCents, "promo credits never become withdrawable")
}

func TestHoldPaymentClampsWithdrawable(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)
	_, err = l.HoldPayment(ctx, "alice", 100, false)
	require.NoError(t, err)
	_, err = l.ReleasePayment(ctx, "alice", 100, false)
	require.NoError(t, err)

	bal, err := l.store.PeekBalance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(97), bal.WithdrawableCents)

	bal, err = l.HoldPayment(ctx, "alice", bal.BalanceCents, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.BalanceCents)
	assert.Equal(t, int64(0), bal.WithdrawableCents, "withdrawable is clamped down when the debit eats into it")
}

func TestRefundPaymentMirrorsHold(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)
	_, err = l.HoldPayment(ctx, "alice", 250, false)
	require.NoError(t, err)

	bal, err := l.RefundPayment(ctx, "alice", 250, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal.BalanceCents)
}

func TestPayout(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	t.Run("fails with insufficient balance when nothing is withdrawable", func(t *testing.T) {
		_, err := l.AddCredits(ctx, "alice", 5000)
		require.NoError(t, err)

		_, err = l.Payout(ctx, "alice", 1000)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("succeeds once funds are withdrawable", func(t *testing.T) {
		_, err := l.HoldPayment(ctx, "alice", 1000, false)
		require.NoError(t, err)
		_, err = l.ReleasePayment(ctx, "alice", 1000, false)
		require.NoError(t, err)

		bal, err := l.Payout(ctx, "alice", 500)
		require.NoError(t, err)
		assert.Equal(t, int64(470), bal.WithdrawableCents)
	})
}

func TestCompensatePayout(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddCredits(ctx, "alice", 1000)
	require.NoError(t, err)
	_, err = l.HoldPayment(ctx, "alice", 1000, false)
	require.NoError(t, err)
	_, err = l.ReleasePayment(ctx, "alice", 1000, false)
	require.NoError(t, err)

	before, err := l.store.PeekBalance(ctx, "alice")
	require.NoError(t, err)

	_, err = l.Payout(ctx, "alice", 500)
	require.NoError(t, err)

	after, err := l.CompensatePayout(ctx, "alice", 500)
	require.NoError(t, err)
	assert.Equal(t, before.BalanceCents, after.BalanceCents)
	assert.Equal(t, before.WithdrawableCents, after.WithdrawableCents)
}
