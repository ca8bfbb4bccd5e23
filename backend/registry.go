package backend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/types"
)

// Deps are the ambient dependencies handed to backend factories.
type Deps struct {
	Logger types.Logger
}

// Factory creates a backend instance.
type Factory func(deps Deps) types.Backend

var factories = xsync.NewMap[string, Factory]()

// Register adds a backend factory under name. Names are case-insensitive and
// registering an existing name replaces it.
//
// Example:
//
//	backend.Register("catalyst", func(d backend.Deps) types.Backend { return newCatalyst(d.Logger) })
func Register(name string, factory Factory) {
	factories.Store(strings.ToLower(name), factory)
}

// New creates the backend registered under name.
//
// Returns:
//   - types.Backend: New, uninitialized backend
//   - error: types.ErrUnknownBackend if no factory is registered
func New(name string, deps Deps) (types.Backend, error) {
	factory, ok := factories.Load(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", types.ErrUnknownBackend, name, strings.Join(Names(), ", "))
	}
	deps.Logger = logging.OrNop(deps.Logger)

	return factory(deps), nil
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	names := make([]string, 0, factories.Size())
	factories.Range(func(name string, _ Factory) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)

	return names
}

func init() {
	Register("nop", func(Deps) types.Backend { return NewNop() })
	Register("stats", func(d Deps) types.Backend { return NewStats(d.Logger) })
	Register("nats", func(d Deps) types.Backend { return NewNATSRelay(d.Logger) })
	Register("amqp", func(d Deps) types.Backend { return NewAMQPRelay(d.Logger) })
}

// backendError wraps err as a backend failure of op.
func backendError(op string, step uint64, err error) error {
	return &types.OpError{Kind: types.ErrBackend, Op: op, Step: step, Err: err}
}
