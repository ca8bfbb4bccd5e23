package testing

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

func TestStartEmbeddedNATS(t *testing.T) {
	ns, nc := StartEmbeddedNATS(t)

	require.NotNil(t, ns)
	require.NotNil(t, nc)
	require.True(t, nc.IsConnected())
	require.True(t, ns.ReadyForConnections(1*time.Second))
}

func TestStartEmbeddedNATS_ParallelTests(t *testing.T) {
	t.Parallel()

	for range 5 {
		t.Run("parallel", func(t *testing.T) {
			t.Parallel()

			_, nc := StartEmbeddedNATS(t)
			require.True(t, nc.IsConnected())
		})
	}
}

func TestNewJetStream(t *testing.T) {
	ctx := t.Context()
	_, nc := StartEmbeddedNATS(t)
	js := NewJetStream(t, nc)

	store, err := js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{Bucket: "blocks"})
	require.NoError(t, err)

	_, err = store.PutBytes(ctx, "b0", []byte{1, 2, 3})
	require.NoError(t, err)

	data, err := store.GetBytes(ctx, "b0")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
}
