package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/insitu/types"
)

func TestNew_BuiltIns(t *testing.T) {
	names := Names()
	for _, want := range []string{"nop", "stats", "nats", "amqp"} {
		require.Contains(t, names, want)
	}

	b, err := New(" Stats ", Deps{})
	require.NoError(t, err)
	require.IsType(t, &Stats{}, b)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("paraview", Deps{})
	require.ErrorIs(t, err, types.ErrUnknownBackend)
	require.Contains(t, err.Error(), "paraview")
}

func TestRegister_Custom(t *testing.T) {
	Register("custom-test", func(Deps) types.Backend { return NewNop() })
	t.Cleanup(func() { factories.Delete("custom-test") })

	b, err := New("CUSTOM-TEST", Deps{})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), testPayload(1)))
}
