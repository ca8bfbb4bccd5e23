package group

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	insitutest "github.com/arloliu/insitu/testing"
	"github.com/arloliu/insitu/types"
)

func TestNATS_AbortPropagates(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	members := make([]*NATS, 3)
	for rank := range members {
		g, err := NewNATS(nc, "test.run", rank, len(members), insitutest.NewTestLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = g.Leave() })
		members[rank] = g
	}

	require.NoError(t, members[1].Abort(t.Context(), errors.New("variable missing")))

	for rank, g := range members {
		select {
		case <-g.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("rank %d did not observe abort", rank)
		}
		require.ErrorIs(t, g.Err(), types.ErrAborted)
		require.Contains(t, g.Err().Error(), "by rank 1")
		require.Contains(t, g.Err().Error(), "variable missing")
	}
}

func TestNATS_SeparatePrefixesIsolated(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	a, err := NewNATS(nc, "run.a", 0, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Leave() })
	b, err := NewNATS(nc, "run.b", 1, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Leave() })

	require.NoError(t, a.Abort(t.Context(), errors.New("boom")))

	select {
	case <-b.Done():
		t.Fatal("abort leaked across prefixes")
	case <-time.After(200 * time.Millisecond):
	}
	require.NoError(t, b.Err())
}

func TestNewNATS_InvalidRank(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	_, err := NewNATS(nc, "", 2, 2, nil)
	require.ErrorIs(t, err, types.ErrInvalidWorldSize)
}

func TestNATS_AbortWithoutDeadline(t *testing.T) {
	_, nc := insitutest.StartEmbeddedNATS(t)

	a, err := NewNATS(nc, "nodeadline", 0, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Leave() })
	b, err := NewNATS(nc, "nodeadline", 1, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Leave() })

	require.NoError(t, a.Abort(context.Background(), nil))

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("peer did not observe abort")
	}
	require.ErrorIs(t, b.Err(), types.ErrAborted)
}
