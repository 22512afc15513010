package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFee(t *testing.T) {
	t.Run("standard rate", func(t *testing.T) {
		assert.Equal(t, int64(3), Fee(100, DefaultFeeRate))
	})

	t.Run("floors to zero then clamps to the 1 cent minimum", func(t *testing.T) {
		assert.Equal(t, int64(1), Fee(10, DefaultFeeRate))
	})

	t.Run("never exceeds the payment amount", func(t *testing.T) {
		assert.Equal(t, int64(1), Fee(1, DefaultFeeRate))
	})

	t.Run("non-positive amount has no fee", func(t *testing.T) {
		assert.Equal(t, int64(0), Fee(0, DefaultFeeRate))
		assert.Equal(t, int64(0), Fee(-50, DefaultFeeRate))
	})
}
