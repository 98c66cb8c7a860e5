package composables

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestUseTx_WithoutPoolOrTx(t *testing.T) {
	_, err := UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}

func TestInTx_WithoutPool(t *testing.T) {
	called := false
	err := InTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrNoPool)
	require.False(t, called)
}

func TestUseLogger(t *testing.T) {
	require.Nil(t, UseLogger(context.Background()))

	logger := logrus.New()
	ctx := WithLogger(context.Background(), logrus.NewEntry(logger).WithField("request-id", "r1"))
	entry := UseLogger(ctx)
	require.NotNil(t, entry)
	require.Equal(t, "r1", entry.Data["request-id"])
}

func TestRequestID(t *testing.T) {
	require.Empty(t, UseRequestID(context.Background()))
	require.Equal(t, "abc", UseRequestID(WithRequestID(context.Background(), "abc")))
}
