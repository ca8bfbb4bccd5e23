package types

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			ErrConnection,
			ErrTransportTimeout,
			ErrVariableMissing,
			ErrTransfer,
			ErrBackend,
			ErrNotInStep,
			ErrStepInProgress,
			ErrClosed,
			ErrUnknownEngine,
			ErrInvalidConfig,
			ErrUnknownBackend,
			ErrAborted,
			ErrInvalidMesh,
			ErrInvalidWorldSize,
		}

		for i, err1 := range allErrors {
			for j, err2 := range allErrors {
				if i == j {
					require.True(t, errors.Is(err1, err2), "error should equal itself: %v", err1)
				} else {
					require.False(t, errors.Is(err1, err2), "errors should be distinct: %v vs %v", err1, err2)
				}
			}
		}
	})
}

func TestOpError(t *testing.T) {
	t.Run("matches kind and cause", func(t *testing.T) {
		err := &OpError{Kind: ErrTransfer, Op: "read", Variable: "U", Step: 7, Err: io.ErrUnexpectedEOF}

		require.ErrorIs(t, err, ErrTransfer)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.NotErrorIs(t, err, ErrConnection)
		require.Equal(t, `data transfer failed: read "U" (step 7): unexpected EOF`, err.Error())
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("run failed: %w", NewOpError(ErrConnection, "open", errors.New("no such stream")))

		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		require.Equal(t, "open", opErr.Op)
		require.Equal(t, NoStep, opErr.Step)
		require.ErrorIs(t, err, ErrConnection)
		require.Equal(t, "run failed: source connection failed: open: no such stream", err.Error())
	})

	t.Run("nil cause", func(t *testing.T) {
		err := &OpError{Kind: ErrVariableMissing, Op: "read", Variable: "V", Step: 1}

		require.Len(t, err.Unwrap(), 1)
		require.Equal(t, `variable missing: read "V" (step 1)`, err.Error())
	})
}

func TestKindOf(t *testing.T) {
	require.Nil(t, KindOf(nil))
	require.Nil(t, KindOf(errors.New("plain")))
	require.Equal(t, ErrBackend, KindOf(NewOpError(ErrBackend, "publish", nil)))
	require.Equal(t, ErrTransportTimeout, KindOf(fmt.Errorf("wrapped: %w", ErrTransportTimeout)))
}

func TestIsFatal(t *testing.T) {
	require.False(t, IsFatal(nil))
	require.False(t, IsFatal(ErrTransportTimeout))
	require.True(t, IsFatal(NewOpError(ErrTransfer, "read", nil)))
	require.True(t, IsFatal(ErrAborted))
}
