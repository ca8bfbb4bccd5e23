package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	insitutest "github.com/arloliu/insitu/testing"
)

// TestEnsureKVBucketWithRetry tests the KV retry utility.
func TestEnsureKVBucketWithRetry(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	ctx := t.Context()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	t.Run("successful creation on first try", func(t *testing.T) {
		kv, err := EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: "attrs-1"}, 3)
		require.NoError(t, err)
		require.NotNil(t, kv)
	})

	t.Run("bucket exists - should open it", func(t *testing.T) {
		cfg := jetstream.KeyValueConfig{Bucket: "attrs-2", History: 1}
		_, err := js.CreateKeyValue(ctx, cfg)
		require.NoError(t, err)

		// Different config forces the exists path
		cfg.History = 2
		kv, err := EnsureKVBucketWithRetry(ctx, js, cfg, 3)
		require.NoError(t, err)
		require.NotNil(t, kv)
	})

	t.Run("concurrent creates - 10 workers", func(t *testing.T) {
		const numWorkers = 10
		cfg := jetstream.KeyValueConfig{Bucket: "attrs-3", History: 1}

		var wg sync.WaitGroup
		errs := make(chan error, numWorkers)
		for range numWorkers {
			wg.Go(func() {
				if _, err := EnsureKVBucketWithRetry(ctx, js, cfg, 5); err != nil {
					errs <- err
				}
			})
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		_, err := EnsureKVBucketWithRetry(cctx, js, jetstream.KeyValueConfig{Bucket: "attrs-4"}, 3)
		require.Error(t, err)
	})
}

func TestEnsureObjectStoreWithRetry(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	ctx := t.Context()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	obs, err := EnsureObjectStoreWithRetry(ctx, js, jetstream.ObjectStoreConfig{Bucket: "blocks"}, 3)
	require.NoError(t, err)
	_, err = obs.PutBytes(ctx, "0/U/0", []byte{1, 2, 3})
	require.NoError(t, err)

	again, err := EnsureObjectStoreWithRetry(ctx, js, jetstream.ObjectStoreConfig{Bucket: "blocks"}, 3)
	require.NoError(t, err)
	data, err := again.GetBytes(ctx, "0/U/0")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
}

func TestEnsureStreamWithRetry(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	ctx := t.Context()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	cfg := jetstream.StreamConfig{Name: "heat", Subjects: []string{"heat.steps"}}
	_, err = EnsureStreamWithRetry(ctx, js, cfg, 3)
	require.NoError(t, err)

	stream, err := EnsureStreamWithRetry(ctx, js, cfg, 3)
	require.NoError(t, err)
	require.Equal(t, "heat", stream.CachedInfo().Config.Name)
}
