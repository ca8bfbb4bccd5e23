package source

import (
	"context"
	"errors"
	"testing"

	"github.com/arloliu/insitu/types"
	"github.com/stretchr/testify/require"
)

func TestReadSelection(t *testing.T) {
	shape := []uint64{6, 5}
	global := ramp(30)
	v, err := NewVariable("U", shape, global, []uint64{3, 2})
	require.NoError(t, err)

	fetches := 0
	fetch := func(_ context.Context, index int) ([]float64, error) {
		fetches++
		return v.Blocks[index].Data, nil
	}

	t.Run("box spanning several blocks", func(t *testing.T) {
		fetches = 0
		start := []uint64{1, 1}
		count := []uint64{3, 3}
		dst := make([]float64, 9)

		require.NoError(t, readSelection(t.Context(), v.Info(), start, count, dst, fetch))
		require.Equal(t, []float64{6, 7, 8, 11, 12, 13, 16, 17, 18}, dst)
		require.Equal(t, 4, fetches, "only intersecting blocks are fetched")
	})

	t.Run("full array reproduces the input", func(t *testing.T) {
		dst := make([]float64, 30)
		require.NoError(t, readSelection(t.Context(), v.Info(), []uint64{0, 0}, shape, dst, fetch))
		require.Equal(t, global, dst)
	})

	t.Run("slab of leading rows", func(t *testing.T) {
		dst := make([]float64, 10)
		require.NoError(t, readSelection(t.Context(), v.Info(), []uint64{4, 0}, []uint64{2, 5}, dst, fetch))
		require.Equal(t, global[20:], dst)
	})

	t.Run("empty box", func(t *testing.T) {
		fetches = 0
		require.NoError(t, readSelection(t.Context(), v.Info(), []uint64{0, 0}, []uint64{0, 5}, nil, fetch))
		require.Zero(t, fetches)
	})

	t.Run("errors", func(t *testing.T) {
		info := v.Info()
		require.Error(t, readSelection(t.Context(), info, []uint64{5, 0}, []uint64{2, 5}, make([]float64, 10), fetch))
		require.Error(t, readSelection(t.Context(), info, []uint64{0}, []uint64{2}, make([]float64, 2), fetch))
		require.Error(t, readSelection(t.Context(), info, []uint64{0, 0}, []uint64{1, 1}, make([]float64, 2), fetch))

		boom := errors.New("boom")
		err := readSelection(t.Context(), info, []uint64{0, 0}, []uint64{1, 1}, make([]float64, 1),
			func(context.Context, int) ([]float64, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	})

	t.Run("gap in block coverage", func(t *testing.T) {
		info := v.Info()
		info.Blocks = info.Blocks[1:]
		err := readSelection(t.Context(), info, []uint64{0, 0}, []uint64{1, 5}, make([]float64, 5), func(_ context.Context, i int) ([]float64, error) {
			return v.Blocks[i+1].Data, nil
		})
		require.ErrorContains(t, err, "covered")
	})
}

func TestCopyOverlap3D(t *testing.T) {
	shape := []uint64{3, 4, 5}
	global := ramp(types.ElementCount(shape))
	block := types.BlockInfo{Start: []uint64{1, 1, 2}, Count: []uint64{2, 2, 3}}

	out := Extract(global, shape, block)

	// Element (z, y, x) lives at z*20 + y*5 + x.
	want := []float64{}
	for z := uint64(1); z < 3; z++ {
		for y := uint64(1); y < 3; y++ {
			for x := uint64(2); x < 5; x++ {
				want = append(want, float64(z*20+y*5+x))
			}
		}
	}
	require.Equal(t, want, out)
}
