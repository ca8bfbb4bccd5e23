package natsutil

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	insitutest "github.com/arloliu/insitu/testing"
	"github.com/arloliu/insitu/types"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestIsConnectivityError(t *testing.T) {
	require.False(t, IsConnectivityError(nil))
	require.False(t, IsConnectivityError(errors.New("checksum mismatch")))
	require.True(t, IsConnectivityError(fmt.Errorf("fetch: %w", nats.ErrConnectionClosed)))
	require.True(t, IsConnectivityError(types.ErrConnection))
	require.True(t, IsConnectivityError(errors.New("dial tcp 127.0.0.1:1: connect: connection refused")))
}

func TestIsTimeout(t *testing.T) {
	require.True(t, IsTimeout(fmt.Errorf("next: %w", nats.ErrTimeout)))
	require.False(t, IsTimeout(nats.ErrNoServers))
}

func TestParseLocator(t *testing.T) {
	t.Run("splits server and name", func(t *testing.T) {
		loc, err := ParseLocator("nats://127.0.0.1:4222/heat")
		require.NoError(t, err)
		require.Equal(t, "nats://127.0.0.1:4222", loc.ServerURL)
		require.Equal(t, "heat", loc.Name)
	})

	t.Run("keeps credentials", func(t *testing.T) {
		loc, err := ParseLocator("nats://user:pw@host:4222/sim")
		require.NoError(t, err)
		require.Equal(t, "nats://user:pw@host:4222", loc.ServerURL)
	})

	t.Run("rejects bad locators", func(t *testing.T) {
		for _, bad := range []string{"nats://host:4222", "nats://host/a.b", "http://host/x", "::"} {
			_, err := ParseLocator(bad)
			require.Error(t, err, bad)
		}
	})
}

func TestFlush(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	t.Run("context without deadline", func(t *testing.T) {
		require.NoError(t, nc.Publish("flush.test", []byte("x")))
		require.NoError(t, Flush(context.Background(), nc))
	})

	t.Run("context with deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()
		require.NoError(t, Flush(ctx, nc))
	})

	t.Run("closed connection", func(t *testing.T) {
		_, other := insitutest.StartEmbeddedNATS(t)
		other.Close()
		require.Error(t, Flush(context.Background(), other))
	})
}
