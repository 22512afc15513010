package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTransactions(t, s, "erin", 3)
	seedTransactions(t, s, "frank", 1)

	stats, err := s.FetchStats(ctx, 30, 10)
	require.NoError(t, err)

	require.NotEmpty(t, stats.DailyReasonTotals)
	assert.Equal(t, "message_read", stats.DailyReasonTotals[0].Reason)

	require.NotEmpty(t, stats.TopReaders)
	assert.Equal(t, "erin", stats.TopReaders[0].ClientID, "erin read more credits than frank")
}
