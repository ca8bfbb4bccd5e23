package source

import (
	"testing"

	"github.com/arloliu/insitu/types"
	"github.com/stretchr/testify/require"
)

// ramp returns 0, 1, 2, ... n-1.
func ramp(n uint64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}

	return out
}

func TestDecompose(t *testing.T) {
	t.Run("uniform 2x2 grid", func(t *testing.T) {
		blocks, err := Decompose([]uint64{4, 6}, []uint64{2, 2})
		require.NoError(t, err)
		require.Len(t, blocks, 4)
		require.Equal(t, types.BlockInfo{Start: []uint64{0, 0}, Count: []uint64{2, 3}}, blocks[0])
		require.Equal(t, types.BlockInfo{Start: []uint64{0, 3}, Count: []uint64{2, 3}}, blocks[1])
		require.Equal(t, types.BlockInfo{Start: []uint64{2, 0}, Count: []uint64{2, 3}}, blocks[2])
		require.Equal(t, types.BlockInfo{Start: []uint64{2, 3}, Count: []uint64{2, 3}}, blocks[3])
	})

	t.Run("last piece absorbs the remainder", func(t *testing.T) {
		blocks, err := Decompose([]uint64{10}, []uint64{4})
		require.NoError(t, err)

		counts := make([]uint64, 0, len(blocks))
		for _, b := range blocks {
			counts = append(counts, b.Count[0])
		}
		require.Equal(t, []uint64{2, 2, 2, 4}, counts)
	})

	t.Run("split larger than extent is clamped", func(t *testing.T) {
		blocks, err := Decompose([]uint64{2, 3}, []uint64{5, 1})
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		for _, b := range blocks {
			require.NotZero(t, b.Elements())
		}
	})

	t.Run("covers every element once", func(t *testing.T) {
		shape := []uint64{5, 7, 3}
		blocks, err := Decompose(shape, []uint64{2, 3, 2})
		require.NoError(t, err)

		var total uint64
		for _, b := range blocks {
			total += b.Elements()
		}
		require.Equal(t, types.ElementCount(shape), total)
	})

	t.Run("rank mismatch", func(t *testing.T) {
		_, err := Decompose([]uint64{4, 4}, []uint64{2})
		require.Error(t, err)
	})
}

func TestNewVariable(t *testing.T) {
	shape := []uint64{4, 4}
	v, err := NewVariable("U", shape, ramp(16), []uint64{2, 2})
	require.NoError(t, err)
	require.Len(t, v.Blocks, 4)

	// Block 1 covers rows 0-1, columns 2-3.
	require.Equal(t, []float64{2, 3, 6, 7}, v.Blocks[1].Data)
	require.Equal(t, []float64{10, 11, 14, 15}, v.Blocks[3].Data)

	info := v.Info()
	require.Equal(t, types.DTypeFloat64, info.DType)
	require.Len(t, info.Blocks, 4)

	_, err = NewVariable("U", shape, ramp(15), []uint64{2, 2})
	require.Error(t, err)
}
