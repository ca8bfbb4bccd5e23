package backend

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/internal/natsutil"
	"github.com/arloliu/insitu/types"
)

// DefaultFrameSubject is the subject prefix and exchange name used by relay backends.
const DefaultFrameSubject = "insitu.frames"

// NATSRelay publishes each domain of a step as a NATS message.
//
// Frames are encoded on Publish and sent on Execute to "<subject>.<step>".
// Recognized options:
//   - url: NATS server URL (default nats.DefaultURL)
//   - subject: Subject prefix (default "insitu.frames")
type NATSRelay struct {
	mu      sync.Mutex
	logger  types.Logger
	nc      *nats.Conn
	runID   string
	subject string
	pending []Frame
	step    uint64
}

var _ types.Backend = (*NATSRelay)(nil)

// NewNATSRelay creates a NATS relay backend.
func NewNATSRelay(logger types.Logger) *NATSRelay {
	return &NATSRelay{logger: logging.OrNop(logger)}
}

// Initialize connects to the NATS server.
func (r *NATSRelay) Initialize(_ context.Context, group types.ProcessGroup, cfg types.BackendConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	url := cfg.Option("url", nats.DefaultURL)
	nc, err := natsutil.Connect(url, "insitu-relay-"+strconv.Itoa(group.Rank()), 0)
	if err != nil {
		return backendError("initialize", types.NoStep, err)
	}

	r.nc = nc
	r.runID = cfg.RunID
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.subject = cfg.Option("subject", DefaultFrameSubject)
	r.logger.Debug("nats relay connected", "url", url, "subject", r.subject, "run_id", r.runID)

	return nil
}

// Publish encodes the payload into frames.
func (r *NATSRelay) Publish(_ context.Context, payload *types.MeshPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nc == nil {
		return backendError("publish", payload.Step, errors.New("nats relay not initialized"))
	}
	r.pending = EncodeFrames(r.runID, payload)
	r.step = payload.Step

	return nil
}

// Execute sends the encoded frames and flushes the connection.
func (r *NATSRelay) Execute(ctx context.Context, _ *types.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nc == nil {
		return backendError("execute", r.step, errors.New("nats relay not initialized"))
	}

	subject := r.subject + "." + strconv.FormatUint(r.step, 10)
	for _, f := range r.pending {
		msg := &nats.Msg{Subject: subject, Header: nats.Header{}, Data: f.Body}
		for k, v := range f.Headers {
			msg.Header.Set(k, v)
		}
		if err := r.nc.PublishMsg(msg); err != nil {
			return backendError("execute", r.step, err)
		}
	}
	if err := natsutil.Flush(ctx, r.nc); err != nil {
		return backendError("execute", r.step, err)
	}

	r.logger.Debug("relayed frames", "subject", subject, "frames", len(r.pending))
	r.pending = nil

	return nil
}

// Finalize drains and closes the connection.
func (r *NATSRelay) Finalize(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = nil
	if r.nc == nil {
		return nil
	}
	err := r.nc.Drain()
	r.nc = nil
	if err != nil {
		return backendError("finalize", types.NoStep, err)
	}

	return nil
}

// FrameFromMsg decodes a relayed NATS message.
func FrameFromMsg(msg *nats.Msg) (Decoded, error) {
	headers := make(map[string]string, len(msg.Header))
	for k := range msg.Header {
		headers[k] = msg.Header.Get(k)
	}

	return DecodeFrame(headers, msg.Data)
}
