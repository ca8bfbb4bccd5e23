package source

import (
	"sync"
	"testing"
	"time"

	"github.com/arloliu/insitu/types"
	"github.com/stretchr/testify/require"
)

func writeRampSteps(t *testing.T, w StepWriter, steps ...uint64) {
	t.Helper()

	for _, s := range steps {
		u, err := NewVariable("U", []uint64{4, 4}, ramp(16), []uint64{2, 2})
		require.NoError(t, err)
		require.NoError(t, w.WriteStep(t.Context(), StepData{Step: s, Variables: []Variable{u}}))
	}
}

func TestMemoryStore(t *testing.T) {
	t.Run("every reader sees every step", func(t *testing.T) {
		store := NewMemoryStore()
		writeRampSteps(t, store, 1, 2)
		require.NoError(t, store.Close(t.Context()))

		for range 2 {
			engine := store.Reader()
			for _, want := range []uint64{1, 2} {
				status, err := engine.BeginStep(t.Context(), 0)
				require.NoError(t, err)
				require.Equal(t, types.StepReady, status)
				require.Equal(t, want, engine.CurrentStep())
				require.NoError(t, engine.EndStep(t.Context()))
			}

			status, err := engine.BeginStep(t.Context(), 0)
			require.NoError(t, err)
			require.Equal(t, types.StepEndOfStream, status)
		}
	})

	t.Run("times out without data", func(t *testing.T) {
		engine := NewMemoryStore().Reader()

		start := time.Now()
		status, err := engine.BeginStep(t.Context(), 30*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, types.StepTimedOut, status)
		require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("wakes a blocked reader", func(t *testing.T) {
		store := NewMemoryStore()
		engine := store.Reader()

		var wg sync.WaitGroup
		wg.Go(func() {
			time.Sleep(20 * time.Millisecond)
			writeRampSteps(t, store, 7)
		})

		status, err := engine.BeginStep(t.Context(), 0)
		require.NoError(t, err)
		require.Equal(t, types.StepReady, status)
		require.Equal(t, uint64(7), engine.CurrentStep())
		wg.Wait()
	})

	t.Run("reads blocks and selections", func(t *testing.T) {
		store := NewMemoryStore()
		writeRampSteps(t, store, 1)
		engine := store.Reader()
		_, err := engine.BeginStep(t.Context(), 0)
		require.NoError(t, err)

		info, ok := engine.InquireVariable("U")
		require.True(t, ok)
		require.Len(t, info.Blocks, 4)
		_, ok = engine.InquireVariable("V")
		require.False(t, ok)

		dst := make([]float64, 4)
		require.NoError(t, engine.ReadBlock(t.Context(), "U", 2, dst))
		require.Equal(t, []float64{8, 9, 12, 13}, dst)
		require.Error(t, engine.ReadBlock(t.Context(), "U", 4, dst))
		require.Error(t, engine.ReadBlock(t.Context(), "U", 0, make([]float64, 3)))

		row := make([]float64, 4)
		require.NoError(t, engine.ReadSelection(t.Context(), "U", []uint64{1, 0}, []uint64{1, 4}, row))
		require.Equal(t, []float64{4, 5, 6, 7}, row)

		require.NoError(t, engine.EndStep(t.Context()))
		require.Error(t, engine.ReadBlock(t.Context(), "U", 0, dst))
		require.Error(t, engine.EndStep(t.Context()))
	})

	t.Run("attributes", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.SetAttributes(t.Context(), map[string][]float64{types.AttrSpacing: {0.5, 0.5, 0.5}}))

		attrs := store.Reader().Attributes()
		require.Equal(t, []float64{0.5, 0.5, 0.5}, attrs[types.AttrSpacing])
	})

	t.Run("rejects writes after close", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Close(t.Context()))
		require.ErrorIs(t, store.WriteStep(t.Context(), StepData{Step: 1}), types.ErrClosed)
	})

	t.Run("rejects malformed blocks", func(t *testing.T) {
		store := NewMemoryStore()
		bad := Variable{Name: "U", Shape: []uint64{2}, Blocks: []BlockData{{Start: []uint64{1}, Count: []uint64{2}, Data: []float64{1, 2}}}}
		require.Error(t, store.WriteStep(t.Context(), StepData{Step: 1, Variables: []Variable{bad}}))
	})
}
