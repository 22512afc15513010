package ral

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umpyre-code/beancounter/internal/enum"
	"github.com/umpyre-code/beancounter/internal/store"
)

var testDBCounter int

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:ral_test_%d?mode=memory&cache=shared&_fk=1", testDBCounter)

	s, err := store.Open("sqlite3", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedReads(t *testing.T, s *store.Store, clientID string, amounts []int64) {
	t.Helper()
	for _, amt := range amounts {
		_, err := s.ApplyLedgerEntries(context.Background(), []store.ClientMutation{
			{
				ClientID: clientID,
				Entries: []store.LedgerEntry{
					{Type: enum.TxCredit, Reason: enum.ReasonMessageRead, AmountCents: amt},
				},
				Delta: store.BalanceDelta{BalanceCents: amt},
			},
		})
		require.NoError(t, err)
	}
}

func TestComputeUndefinedBelowMinSamples(t *testing.T) {
	s := newTestStore(t)
	c := New(s, DefaultWindow, DefaultMinSamples)

	seedReads(t, s, "alice", []int64{10, 20})
	assert.Equal(t, int64(Undefined), c.Compute(context.Background(), "alice"))
}

func TestComputeMedianOddCount(t *testing.T) {
	s := newTestStore(t)
	c := New(s, DefaultWindow, DefaultMinSamples)

	seedReads(t, s, "alice", []int64{10, 30, 20})
	assert.Equal(t, int64(20), c.Compute(context.Background(), "alice"))
}

func TestComputeMedianEvenCount(t *testing.T) {
	s := newTestStore(t)
	c := New(s, DefaultWindow, DefaultMinSamples)

	seedReads(t, s, "alice", []int64{10, 20, 31, 40})
	assert.Equal(t, int64(26), c.Compute(context.Background(), "alice"), "middle pair (20,31) averages to 25.5, rounded up to 26")
}

func TestComputeUnknownClientIsUndefined(t *testing.T) {
	s := newTestStore(t)
	c := New(s, DefaultWindow, DefaultMinSamples)

	assert.Equal(t, int64(Undefined), c.Compute(context.Background(), "ghost"))
}
