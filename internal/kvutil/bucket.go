// Package kvutil provides utilities for creating NATS JetStream resources
// (KV buckets, object stores and streams) shared by several processes.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// EnsureKVBucketWithRetry creates or opens a KV bucket with retry logic.
//
// This function handles race conditions when several writers or readers try to
// create the same bucket concurrently. It will retry with exponential backoff
// if the creation fails due to transient errors.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - maxRetries: Maximum number of retry attempts (default: 3)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket instance
//   - error: Any error that occurred after all retries
//
// Example:
//
//	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
//	    Bucket: "heat-attrs",
//	}, 3)
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxRetries int,
) (jetstream.KeyValue, error) {
	return withRetry(ctx, "KV bucket "+config.Bucket, maxRetries, func() (jetstream.KeyValue, error) {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, config.Bucket)
			if err != nil {
				return nil, fmt.Errorf("bucket exists but failed to open: %w", err)
			}

			return kv, nil
		}

		return nil, err
	})
}

// EnsureObjectStoreWithRetry creates or opens an object store with retry logic.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: Object store configuration
//   - maxRetries: Maximum number of retry attempts (default: 3)
//
// Returns:
//   - jetstream.ObjectStore: The object store instance
//   - error: Any error that occurred after all retries
func EnsureObjectStoreWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.ObjectStoreConfig,
	maxRetries int,
) (jetstream.ObjectStore, error) {
	return withRetry(ctx, "object store "+config.Bucket, maxRetries, func() (jetstream.ObjectStore, error) {
		obs, err := js.CreateObjectStore(ctx, config)
		if err == nil {
			return obs, nil
		}
		if errors.Is(err, jetstream.ErrBucketExists) || errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			obs, err = js.ObjectStore(ctx, config.Bucket)
			if err != nil {
				return nil, fmt.Errorf("object store exists but failed to open: %w", err)
			}

			return obs, nil
		}

		return nil, err
	})
}

// EnsureStreamWithRetry creates or updates a stream with retry logic.
func EnsureStreamWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.StreamConfig,
	maxRetries int,
) (jetstream.Stream, error) {
	return withRetry(ctx, "stream "+config.Name, maxRetries, func() (jetstream.Stream, error) {
		return js.CreateOrUpdateStream(ctx, config)
	})
}

// withRetry runs attempt up to maxRetries times with exponential backoff.
func withRetry[T any](ctx context.Context, what string, maxRetries int, attempt func() (T, error)) (T, error) {
	var zero T
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		v, err := attempt()
		if err == nil {
			return v, nil
		}
		lastErr = err

		// Check if context is done (don't retry if cancelled/timeout)
		if ctx.Err() != nil {
			return zero, fmt.Errorf("context cancelled during %s creation: %w", what, ctx.Err())
		}

		// Exponential backoff: 10ms, 20ms, 40ms...
		if i < maxRetries-1 {
			backoff := time.Duration(1<<uint(i)) * 10 * time.Millisecond //nolint:gosec // i is bounded by maxRetries
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return zero, fmt.Errorf("failed to create/open %s after %d attempts: %w", what, maxRetries, lastErr)
}
