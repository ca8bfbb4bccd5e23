package group

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/insitu/types"
)

func TestStatic_Abort(t *testing.T) {
	g := NewStatic(1, 4)
	require.Equal(t, 1, g.Rank())
	require.Equal(t, 4, g.Size())
	require.NoError(t, g.Err())

	cause := errors.New("boom")
	require.NoError(t, g.Abort(t.Context(), cause))
	require.NoError(t, g.Abort(t.Context(), errors.New("second")))

	select {
	case <-g.Done():
	default:
		t.Fatal("Done not closed after Abort")
	}
	require.ErrorIs(t, g.Err(), types.ErrAborted)
	require.ErrorIs(t, g.Err(), cause)
}
