package strategy

import (
	"testing"

	"github.com/arloliu/insitu/types"
	"github.com/stretchr/testify/require"
)

func TestSlab(t *testing.T) {
	t.Run("remainder goes to the leading ranks", func(t *testing.T) {
		starts := []uint64{0, 4, 7}
		sizes := []uint64{4, 3, 3}
		for rank := range 3 {
			desc, err := Slab([]uint64{10, 8}, rank, 3)
			require.NoError(t, err)
			require.Equal(t, []uint64{10, 8}, desc.GlobalDims)
			require.Equal(t, []uint64{starts[rank], 0}, desc.LocalStart)
			require.Equal(t, []uint64{sizes[rank], 8}, desc.LocalDims)
		}
	})

	t.Run("fewer rows than ranks", func(t *testing.T) {
		sizes := []uint64{1, 1, 0, 0}
		for rank := range 4 {
			desc, err := Slab([]uint64{2, 3, 3}, rank, 4)
			require.NoError(t, err)
			require.Equal(t, sizes[rank], desc.LocalDims[0])
			require.Equal(t, sizes[rank] == 0, desc.Empty())
		}
	})

	t.Run("tiles the leading dimension", func(t *testing.T) {
		for _, tc := range []struct {
			rows  uint64
			world int
		}{{1, 1}, {10, 3}, {64, 7}, {5, 8}, {0, 2}} {
			next := uint64(0)
			var minSize, maxSize uint64 = ^uint64(0), 0
			for rank := range tc.world {
				desc, err := Slab([]uint64{tc.rows, 2}, rank, tc.world)
				require.NoError(t, err)
				require.Equal(t, next, desc.LocalStart[0], "gap or overlap at rank %d", rank)
				next += desc.LocalDims[0]
				minSize = min(minSize, desc.LocalDims[0])
				maxSize = max(maxSize, desc.LocalDims[0])
			}
			require.Equal(t, tc.rows, next)
			require.LessOrEqual(t, maxSize-minSize, uint64(1))
		}
	})

	t.Run("does not alias the input shape", func(t *testing.T) {
		shape := []uint64{4, 4}
		desc, err := Slab(shape, 0, 2)
		require.NoError(t, err)

		desc.GlobalDims[0] = 99
		require.Equal(t, uint64(4), shape[0])
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := Slab([]uint64{4}, 2, 2)
		require.ErrorIs(t, err, types.ErrInvalidWorldSize)

		_, err = Slab(nil, 0, 1)
		require.ErrorIs(t, err, types.ErrInvalidMesh)
	})
}
