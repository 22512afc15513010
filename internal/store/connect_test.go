package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAccountLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("init is idempotent", func(t *testing.T) {
		a, err := s.InitConnectAccount(ctx, "alice", "state-1")
		require.NoError(t, err)
		assert.False(t, a.IsActive())

		a2, err := s.InitConnectAccount(ctx, "alice", "state-2")
		require.NoError(t, err)
		assert.Equal(t, "state-1", a2.OAuthState, "re-init must not overwrite an in-flight state token")
	})

	t.Run("unknown client is ErrNotFound", func(t *testing.T) {
		_, err := s.GetConnectAccount(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("complete activates the account", func(t *testing.T) {
		err := s.CompleteConnectAccount(ctx, "alice", "state-1", "acct_123", []byte(`{}`), []byte(`{}`))
		require.NoError(t, err)

		a, err := s.GetConnectAccount(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, a.IsActive())
		require.NotNil(t, a.StripeUserID)
		assert.Equal(t, "acct_123", *a.StripeUserID)
	})

	t.Run("complete with a stale state token is rejected", func(t *testing.T) {
		err := s.CompleteConnectAccount(ctx, "alice", "wrong-state", "acct_456", []byte(`{}`), []byte(`{}`))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update prefs", func(t *testing.T) {
		err := s.UpdateConnectAccountPrefs(ctx, "alice", true, 5000)
		require.NoError(t, err)

		a, err := s.GetConnectAccount(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, a.EnableAutomaticPayouts)
		assert.Equal(t, int64(5000), a.AutomaticPayoutThresholdCents)
	})
}

func TestConnectTransfers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertConnectTransfer(ctx, "alice", 1000, "tr_1", []byte(`{}`))
	require.NoError(t, err)
	_, err = s.InsertConnectTransfer(ctx, "alice", 2000, "tr_2", []byte(`{}`))
	require.NoError(t, err)

	transfers, err := s.ListConnectTransfers(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, "tr_2", transfers[0].ProviderTransferID, "most recent first")
}
