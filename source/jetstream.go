package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/insitu/internal/kvutil"
	"github.com/arloliu/insitu/internal/natsutil"
	"github.com/arloliu/insitu/types"
)

// JetStream resources of a stream named <name>:
//
//	stream  <name>        subject <name>.steps carries step manifests
//	objects <name>-blocks object <seq>/<var>/<block> holds a block payload
//	kv      <name>-attrs  key "attributes" holds the source attributes
const attributesKey = "attributes"

// StepSubject returns the manifest subject of a named stream.
func StepSubject(name string) string {
	return name + ".steps"
}

func blocksBucket(name string) string {
	return name + "-blocks"
}

func attrsBucket(name string) string {
	return name + "-attrs"
}

func objectName(seq uint64, varIndex, blockIndex int) string {
	return fmt.Sprintf("%d/%d/%d", seq, varIndex, blockIndex)
}

// JetStreamWriter publishes steps to a JetStream-backed stream.
type JetStreamWriter struct {
	js     jetstream.JetStream
	name   string
	obs    jetstream.ObjectStore
	kv     jetstream.KeyValue
	attrs  map[string][]float64
	seq    uint64
	closed bool
}

var _ StepWriter = (*JetStreamWriter)(nil)

// NewJetStreamWriter creates (or opens) the resources of a named stream.
//
// The object store and KV bucket are created before the stream, so a reader
// that observes the stream can rely on both.
//
// Parameters:
//   - ctx: Context for resource creation
//   - js: JetStream context
//   - name: Stream name (a valid JetStream stream name)
//   - opts: Options (WithMaxRetries)
//
// Returns:
//   - *JetStreamWriter: Writer positioned after the last step already in the stream
//   - error: Resource creation failure
//
// Example:
//
//	js, _ := jetstream.New(nc)
//	w, err := source.NewJetStreamWriter(ctx, js, "heat")
//	if err != nil { /* handle */ }
//	defer w.Close(ctx)
func NewJetStreamWriter(ctx context.Context, js jetstream.JetStream, name string, opts ...Option) (*JetStreamWriter, error) {
	o := applyOptions(opts)

	obs, err := kvutil.EnsureObjectStoreWithRetry(ctx, js, jetstream.ObjectStoreConfig{
		Bucket:      blocksBucket(name),
		Description: "step block payloads of " + name,
	}, o.maxRetries)
	if err != nil {
		return nil, err
	}

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      attrsBucket(name),
		Description: "source attributes of " + name,
		History:     1,
	}, o.maxRetries)
	if err != nil {
		return nil, err
	}

	stream, err := kvutil.EnsureStreamWithRetry(ctx, js, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{StepSubject(name)},
		Storage:  jetstream.FileStorage,
	}, o.maxRetries)
	if err != nil {
		return nil, err
	}

	w := &JetStreamWriter{js: js, name: name, obs: obs, kv: kv, attrs: make(map[string][]float64)}
	if info, err := stream.Info(ctx); err == nil {
		w.seq = info.State.Msgs
	}

	return w, nil
}

// SetAttributes merges attrs into the stream's attribute record.
func (w *JetStreamWriter) SetAttributes(ctx context.Context, attrs map[string][]float64) error {
	maps.Copy(w.attrs, attrs)
	data, err := json.Marshal(w.attrs)
	if err != nil {
		return err
	}
	if _, err := w.kv.Put(ctx, attributesKey, data); err != nil {
		return fmt.Errorf("store attributes: %w", err)
	}

	return nil
}

// WriteStep uploads the block payloads and then publishes the manifest.
func (w *JetStreamWriter) WriteStep(ctx context.Context, step StepData) error {
	if w.closed {
		return types.ErrClosed
	}
	if err := validateStep(step); err != nil {
		return err
	}

	seq := w.seq + 1
	m, payloads := newManifest(seq, step)
	for i := range payloads {
		for j, payload := range payloads[i] {
			if _, err := w.obs.PutBytes(ctx, objectName(seq, i, j), payload); err != nil {
				return fmt.Errorf("upload block %d of %q: %w", j, m.Variables[i].Name, err)
			}
		}
	}

	if err := w.publish(ctx, m); err != nil {
		return fmt.Errorf("publish step %d: %w", step.Step, err)
	}
	w.seq = seq

	return nil
}

// Close publishes the final manifest.
func (w *JetStreamWriter) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true

	return w.publish(ctx, &manifest{Seq: w.seq + 1, Final: true})
}

func (w *JetStreamWriter) publish(ctx context.Context, m *manifest) error {
	data, err := m.marshal()
	if err != nil {
		return err
	}
	_, err = w.js.Publish(ctx, StepSubject(w.name), data)

	return err
}

// jetStreamEngine reads a named stream through an ordered consumer.
type jetStreamEngine struct {
	name    string
	opts    engineOptions
	cons    jetstream.Consumer
	obs     jetstream.ObjectStore
	kv      jetstream.KeyValue
	current *manifest
	ended   bool
	closed  bool
	onClose func()
}

var _ types.StepEngine = (*jetStreamEngine)(nil)

// OpenJetStream attaches to a named stream.
//
// Each engine has its own ordered consumer, so every reader rank observes
// every step. OpenJetStream waits for the stream to exist until ctx is done.
//
// Parameters:
//   - ctx: Context bounding the open
//   - js: JetStream context
//   - name: Stream name
//   - opts: Options (WithLogger, WithPollInterval, WithFetchSlice)
//
// Returns:
//   - types.StepEngine: Engine positioned before the first step
//   - error: ctx error if the stream never appeared, or a JetStream failure
func OpenJetStream(ctx context.Context, js jetstream.JetStream, name string, opts ...Option) (types.StepEngine, error) {
	return openJetStream(ctx, js, name, nil, opts...)
}

func openJetStream(ctx context.Context, js jetstream.JetStream, name string, onClose func(), opts ...Option) (types.StepEngine, error) {
	o := applyOptions(opts)

	var stream jetstream.Stream
	for {
		s, err := js.Stream(ctx, name)
		if err == nil {
			stream = s
			break
		}
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			return nil, fmt.Errorf("look up stream %s: %w", name, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stream %s did not appear: %w", name, ctx.Err())
		case <-time.After(o.pollInterval):
		}
	}

	cons, err := stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{StepSubject(name)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer on %s: %w", name, err)
	}

	obs, err := js.ObjectStore(ctx, blocksBucket(name))
	if err != nil {
		return nil, fmt.Errorf("open block store of %s: %w", name, err)
	}

	kv, err := js.KeyValue(ctx, attrsBucket(name))
	if err != nil {
		return nil, fmt.Errorf("open attributes of %s: %w", name, err)
	}

	o.logger.Debug("attached to stream", "stream", name)

	return &jetStreamEngine{name: name, opts: o, cons: cons, obs: obs, kv: kv, onClose: onClose}, nil
}

func (e *jetStreamEngine) BeginStep(ctx context.Context, timeout time.Duration) (types.StepStatus, error) {
	if e.closed {
		return types.StepEndOfStream, types.ErrClosed
	}
	if e.current != nil {
		return types.StepReady, types.ErrStepInProgress
	}
	if e.ended {
		return types.StepEndOfStream, nil
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return types.StepTimedOut, err
		}

		wait := e.opts.fetchSlice
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return types.StepTimedOut, nil
			}
			wait = min(wait, remaining)
		}

		msg, err := e.cons.Next(jetstream.FetchMaxWait(wait))
		if err != nil {
			if natsutil.IsTimeout(err) {
				continue
			}

			return types.StepReady, fmt.Errorf("fetch next manifest: %w", err)
		}

		m, err := unmarshalManifest(msg.Data())
		if err != nil {
			return types.StepReady, err
		}
		if m.Final {
			e.ended = true
			e.opts.logger.Debug("end of stream", "stream", e.name)

			return types.StepEndOfStream, nil
		}

		e.current = m
		e.opts.logger.Debug("step ready", "stream", e.name, "seq", m.Seq, "step", m.Step)

		return types.StepReady, nil
	}
}

func (e *jetStreamEngine) CurrentStep() uint64 {
	if e.current == nil {
		return 0
	}

	return e.current.Step
}

func (e *jetStreamEngine) Attributes() map[string][]float64 {
	attrs := make(map[string][]float64)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	entry, err := e.kv.Get(ctx, attributesKey)
	if err != nil {
		if !errors.Is(err, jetstream.ErrKeyNotFound) {
			e.opts.logger.Debug("attributes unavailable", "stream", e.name, "error", err)
		}

		return attrs
	}
	if err := json.Unmarshal(entry.Value(), &attrs); err != nil {
		e.opts.logger.Debug("ignoring malformed attributes", "stream", e.name, "error", err)

		return map[string][]float64{}
	}

	return attrs
}

func (e *jetStreamEngine) InquireVariable(name string) (types.VariableInfo, bool) {
	if e.current == nil {
		return types.VariableInfo{}, false
	}
	v, ok := e.current.lookup(name)

	return v.VariableInfo, ok
}

func (e *jetStreamEngine) variable(name string) (manifestVariable, int, error) {
	if e.current == nil {
		return manifestVariable{}, 0, errNoStep
	}
	for i, v := range e.current.Variables {
		if v.Name == name {
			return v, i, nil
		}
	}

	return manifestVariable{}, 0, fmt.Errorf("variable %q not in step %d", name, e.current.Step)
}

func (e *jetStreamEngine) ReadBlock(ctx context.Context, name string, index int, dst []float64) error {
	v, vi, err := e.variable(name)
	if err != nil {
		return err
	}

	return e.readBlock(ctx, v, vi, index, dst)
}

func (e *jetStreamEngine) readBlock(ctx context.Context, v manifestVariable, vi, index int, dst []float64) error {
	b, err := blockBounds(v, index)
	if err != nil {
		return err
	}
	if uint64(len(dst)) != b.Elements() {
		return fmt.Errorf("block %d of %q has %d elements, buffer has %d", index, v.Name, b.Elements(), len(dst))
	}

	payload, err := e.obs.GetBytes(ctx, objectName(e.current.Seq, vi, index))
	if err != nil {
		return fmt.Errorf("download block %d of %q: %w", index, v.Name, err)
	}

	return decodeBlock(v, index, payload, dst)
}

func (e *jetStreamEngine) ReadSelection(ctx context.Context, name string, start, count []uint64, dst []float64) error {
	v, vi, err := e.variable(name)
	if err != nil {
		return err
	}

	return readSelection(ctx, v.VariableInfo, start, count, dst, func(ctx context.Context, index int) ([]float64, error) {
		buf := make([]float64, v.Blocks[index].Elements())
		if err := e.readBlock(ctx, v, vi, index, buf); err != nil {
			return nil, err
		}

		return buf, nil
	})
}

func (e *jetStreamEngine) EndStep(_ context.Context) error {
	if e.current == nil {
		return errNoStep
	}
	e.current = nil

	return nil
}

func (e *jetStreamEngine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.current = nil
	if e.onClose != nil {
		e.onClose()
	}

	return nil
}

// DialJetStream connects to the server named by a locator of the form
// nats://host:port/<name> and attaches to stream <name>.
//
// The engine owns the connection and closes it on Close.
func DialJetStream(ctx context.Context, locator string, opts ...Option) (types.StepEngine, error) {
	loc, err := natsutil.ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	timeout := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = max(time.Until(dl), 10*time.Millisecond)
	}
	nc, err := natsutil.Connect(loc.ServerURL, "insitu-reader", timeout)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	engine, err := openJetStream(ctx, js, loc.Name, nc.Close, opts...)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return engine, nil
}
