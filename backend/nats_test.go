package backend

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/insitu/group"
	insitutest "github.com/arloliu/insitu/testing"
	"github.com/arloliu/insitu/types"
)

func TestNATSRelay_RelaysFrames(t *testing.T) {
	ctx := t.Context()
	srv, nc := insitutest.StartEmbeddedNATS(t)

	msgs := make(chan *nats.Msg, 8)
	sub, err := nc.ChanSubscribe("frames.test.>", msgs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	require.NoError(t, nc.Flush())

	r := NewNATSRelay(insitutest.NewTestLogger(t))
	cfg := types.BackendConfig{
		Name:    "nats",
		RunID:   "run-42",
		Options: map[string]string{"url": srv.ClientURL(), "subject": "frames.test"},
	}
	require.NoError(t, r.Initialize(ctx, group.NewStatic(0, 1), cfg))
	t.Cleanup(func() { _ = r.Finalize(ctx) })

	require.NoError(t, r.Publish(ctx, testPayload(5)))
	require.NoError(t, r.Execute(ctx, nil))

	var got []Decoded
	for range 2 {
		select {
		case msg := <-msgs:
			require.Equal(t, "frames.test.5", msg.Subject)
			d, err := FrameFromMsg(msg)
			require.NoError(t, err)
			got = append(got, d)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for relayed frame")
		}
	}

	require.Equal(t, "run-42", got[0].RunID)
	require.Equal(t, uint64(5), got[0].Step)
	require.ElementsMatch(t, []int{0, 2}, []int{got[0].Domain.ID, got[1].Domain.ID})
}

func TestNATSRelay_GeneratesRunID(t *testing.T) {
	ctx := t.Context()
	srv, _ := insitutest.StartEmbeddedNATS(t)

	r := NewNATSRelay(nil)
	require.NoError(t, r.Initialize(ctx, group.NewStatic(0, 1), types.BackendConfig{
		Options: map[string]string{"url": srv.ClientURL()},
	}))
	t.Cleanup(func() { _ = r.Finalize(ctx) })

	require.NotEmpty(t, r.runID)
	require.Equal(t, DefaultFrameSubject, r.subject)
}

func TestNATSRelay_DialFailure(t *testing.T) {
	r := NewNATSRelay(nil)
	err := r.Initialize(t.Context(), group.NewStatic(0, 1), types.BackendConfig{
		Options: map[string]string{"url": "nats://127.0.0.1:1"},
	})
	require.ErrorIs(t, err, types.ErrBackend)
}

func TestNATSRelay_PublishBeforeInitialize(t *testing.T) {
	err := NewNATSRelay(nil).Publish(t.Context(), testPayload(0))
	require.ErrorIs(t, err, types.ErrBackend)
}

func TestNATSRelay_ExecuteWithoutDeadline(t *testing.T) {
	ctx := context.Background()
	srv, nc := insitutest.StartEmbeddedNATS(t)

	msgs := make(chan *nats.Msg, 8)
	sub, err := nc.ChanSubscribe(DefaultFrameSubject+".>", msgs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	require.NoError(t, nc.Flush())

	r := NewNATSRelay(nil)
	require.NoError(t, r.Initialize(ctx, group.NewStatic(0, 1), types.BackendConfig{
		Options: map[string]string{"url": srv.ClientURL()},
	}))
	t.Cleanup(func() { _ = r.Finalize(ctx) })

	for step := uint64(1); step <= 3; step++ {
		require.NoError(t, r.Publish(ctx, testPayload(step)))
		require.NoError(t, r.Execute(ctx, nil), "step %d", step)
	}

	for range 6 {
		select {
		case <-msgs:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for relayed frame")
		}
	}
}
