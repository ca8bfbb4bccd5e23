package source

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	insitutest "github.com/arloliu/insitu/testing"
	"github.com/arloliu/insitu/types"
)

func TestJetStreamEngine(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	t.Run("broadcasts steps to every reader", func(t *testing.T) {
		ctx := t.Context()
		w, err := NewJetStreamWriter(ctx, js, "heat")
		require.NoError(t, err)
		require.NoError(t, w.SetAttributes(ctx, map[string][]float64{types.AttrSpacing: {0.25, 0.25, 0.25}}))
		writeRampSteps(t, w, 3, 4)
		require.NoError(t, w.Close(ctx))

		for range 2 {
			engine, err := OpenJetStream(ctx, js, "heat")
			require.NoError(t, err)
			require.Equal(t, []float64{0.25, 0.25, 0.25}, engine.Attributes()[types.AttrSpacing])

			for _, want := range []uint64{3, 4} {
				status, err := engine.BeginStep(ctx, 2*time.Second)
				require.NoError(t, err)
				require.Equal(t, types.StepReady, status)
				require.Equal(t, want, engine.CurrentStep())

				dst := make([]float64, 4)
				require.NoError(t, engine.ReadBlock(ctx, "U", 1, dst))
				require.Equal(t, []float64{2, 3, 6, 7}, dst)

				slab := make([]float64, 8)
				require.NoError(t, engine.ReadSelection(ctx, "U", []uint64{2, 0}, []uint64{2, 4}, slab))
				require.Equal(t, ramp(16)[8:], slab)

				require.NoError(t, engine.EndStep(ctx))
			}

			status, err := engine.BeginStep(ctx, 2*time.Second)
			require.NoError(t, err)
			require.Equal(t, types.StepEndOfStream, status)
			require.NoError(t, engine.Close())
		}
	})

	t.Run("times out on an idle stream", func(t *testing.T) {
		ctx := t.Context()
		_, err := NewJetStreamWriter(ctx, js, "idle")
		require.NoError(t, err)

		engine, err := OpenJetStream(ctx, js, "idle", WithFetchSlice(50*time.Millisecond))
		require.NoError(t, err)

		status, err := engine.BeginStep(ctx, 150*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, types.StepTimedOut, status)
	})

	t.Run("open waits for the stream", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		_, err := OpenJetStream(ctx, js, "never", WithPollInterval(10*time.Millisecond))
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("dial by locator", func(t *testing.T) {
		ctx := t.Context()
		w, err := NewJetStreamWriter(ctx, js, "dialed")
		require.NoError(t, err)
		writeRampSteps(t, w, 1)

		engine, err := DialJetStream(ctx, nc.ConnectedUrl()+"/dialed")
		require.NoError(t, err)
		defer engine.Close()

		status, err := engine.BeginStep(ctx, 2*time.Second)
		require.NoError(t, err)
		require.Equal(t, types.StepReady, status)
	})
}
