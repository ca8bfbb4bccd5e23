package group

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/internal/natsutil"
	"github.com/arloliu/insitu/types"
)

// DefaultSubjectPrefix is the subject prefix of the abort broadcast.
const DefaultSubjectPrefix = "insitu.group"

// abortMessage is the wire form of an abort broadcast.
type abortMessage struct {
	Rank  int    `json:"rank"`
	Cause string `json:"cause"`
}

// NATS is a process group that broadcasts aborts on "<prefix>.abort".
//
// Every member subscribes to the abort subject. The first abort received,
// from a peer or from the caller itself, closes Done.
type NATS struct {
	*Static

	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
	logger  types.Logger
}

var _ types.ProcessGroup = (*NATS)(nil)

// NewNATS joins a NATS-backed process group.
//
// Parameters:
//   - nc: Connected NATS client; the group does not close it
//   - prefix: Subject prefix shared by all members (DefaultSubjectPrefix if empty)
//   - rank: Caller's rank in [0, size)
//   - size: Group size
//   - logger: Logger for abort notices (nil for none)
//
// Returns:
//   - *NATS: Joined group; call Leave when done
//   - error: Invalid rank/size or subscription failure
//
// Example:
//
//	g, err := group.NewNATS(nc, "heat.run1", rank, size, logger)
//	if err != nil {
//	    return err
//	}
//	defer g.Leave()
func NewNATS(nc *nats.Conn, prefix string, rank, size int, logger types.Logger) (*NATS, error) {
	if size <= 0 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("%w: rank %d of %d", types.ErrInvalidWorldSize, rank, size)
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	g := &NATS{
		Static:  NewStatic(rank, size),
		nc:      nc,
		subject: prefix + ".abort",
		logger:  logging.OrNop(logger),
	}

	sub, err := nc.Subscribe(g.subject, g.onAbort)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", g.subject, err)
	}
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("subscribe %s: %w", g.subject, err)
	}
	g.sub = sub

	return g, nil
}

// Abort broadcasts the abort to every member and terminates the caller.
func (g *NATS) Abort(ctx context.Context, cause error) error {
	msg := abortMessage{Rank: g.rank}
	if cause != nil {
		msg.Cause = cause.Error()
	}
	g.terminate(abortError(g.rank, cause))

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := g.nc.Publish(g.subject, data); err != nil {
		return fmt.Errorf("publish abort: %w", err)
	}

	return natsutil.Flush(ctx, g.nc)
}

// Leave unsubscribes from the abort subject.
func (g *NATS) Leave() error {
	if g.sub == nil {
		return nil
	}

	return g.sub.Unsubscribe()
}

func (g *NATS) onAbort(m *nats.Msg) {
	var msg abortMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		g.logger.Warn("ignoring malformed abort message", "subject", m.Subject, "error", err)
		return
	}
	if msg.Rank == g.rank {
		return
	}

	g.logger.Warn("process group aborted by peer", "peer", msg.Rank, "rank", g.rank, "cause", msg.Cause)
	var cause error
	if msg.Cause != "" {
		cause = errors.New(msg.Cause)
	}
	g.terminate(abortError(msg.Rank, cause))
}
