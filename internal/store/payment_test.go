package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hash := []byte("message-hash-1")

	t.Run("creates a new payment row", func(t *testing.T) {
		p, existing, err := s.CreatePayment(ctx, Payment{
			ClientIDFrom: "alice",
			PaymentCents: 200,
			MessageHash:  hash,
		})
		require.NoError(t, err)
		assert.False(t, existing)
		assert.Equal(t, "alice", p.ClientIDFrom)
		assert.Nil(t, p.ClientIDTo)
	})

	t.Run("same message_hash is idempotent and returns the existing row", func(t *testing.T) {
		p, existing, err := s.CreatePayment(ctx, Payment{
			ClientIDFrom: "mallory",
			PaymentCents: 999,
			MessageHash:  hash,
		})
		require.NoError(t, err)
		assert.True(t, existing)
		assert.Equal(t, "alice", p.ClientIDFrom)
		assert.Equal(t, int64(200), p.PaymentCents)
	})
}

func TestTakePayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hash := []byte("message-hash-2")

	_, _, err := s.CreatePayment(ctx, Payment{
		ClientIDFrom: "alice",
		PaymentCents: 150,
		MessageHash:  hash,
	})
	require.NoError(t, err)

	t.Run("unknown hash returns ErrNotFound", func(t *testing.T) {
		_, err := s.TakePayment(ctx, "bob", []byte("no-such-hash"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("takes and deletes the payment", func(t *testing.T) {
		p, err := s.TakePayment(ctx, "bob", hash)
		require.NoError(t, err)
		assert.Equal(t, "alice", p.ClientIDFrom)
		require.NotNil(t, p.ClientIDTo)
		assert.Equal(t, "bob", *p.ClientIDTo)

		_, err = s.TakePayment(ctx, "bob", hash)
		assert.ErrorIs(t, err, ErrNotFound, "a taken payment cannot be taken twice")
	})
}

func TestTakePaymentWrongRecipient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hash := []byte("message-hash-3")

	recipient := "bob"
	_, _, err := s.CreatePayment(ctx, Payment{
		ClientIDFrom: "alice",
		ClientIDTo:   &recipient,
		PaymentCents: 75,
		MessageHash:  hash,
	})
	require.NoError(t, err)

	_, err = s.TakePayment(ctx, "eve", hash)
	assert.ErrorIs(t, err, ErrWrongRecipient)
}
