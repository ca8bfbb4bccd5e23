package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/insitu/types"
)

type fixedGroup struct{}

func (fixedGroup) Rank() int                              { return 2 }
func (fixedGroup) Size() int                              { return 4 }
func (fixedGroup) Abort(_ context.Context, _ error) error { return nil }
func (fixedGroup) Done() <-chan struct{}                  { return nil }
func (fixedGroup) Err() error                             { return nil }

func TestRecordingBackend(t *testing.T) {
	ctx := t.Context()
	b := NewRecordingBackend()

	require.NoError(t, b.Initialize(ctx, fixedGroup{}, types.BackendConfig{RunID: "r"}))

	values := []float64{1, 2}
	payload := &types.MeshPayload{Step: 3, Domains: []types.Domain{{
		Coords: types.UniformCoords{Dims: [3]uint64{2, 1, 1}},
		Fields: []types.Field{{Name: "T", Association: types.AssociationVertex, Values: values}},
	}}}
	require.NoError(t, b.Publish(ctx, payload))
	values[0] = 100
	require.NoError(t, b.Execute(ctx, nil))

	b.FinalizeErr = errors.New("close failed")
	require.Error(t, b.Finalize(ctx))

	require.Equal(t, []string{"initialize", "publish", "execute", "finalize"}, b.Calls())
	require.Equal(t, "r", b.Config().RunID)
	require.Equal(t, []float64{1, 2}, b.Payloads()[0].Domains[0].Fields[0].Values)
	require.Len(t, b.Actions(), 1)
}

func TestRecordingLogger(t *testing.T) {
	l := NewRecordingLogger()
	l.Info("processing step", "step", uint64(4))
	l.Warn("secondary variable missing", "variable", "P")
	l.Fatal("unreachable")

	require.Len(t, l.Entries(), 3)
	require.True(t, l.Contains("warn", "secondary"))
	require.False(t, l.Contains("error", "secondary"))
	require.Equal(t, uint64(4), l.Level("info")[0].Fields["step"])
}
