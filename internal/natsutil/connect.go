package natsutil

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultFlushTimeout bounds Flush when the caller's context has no deadline.
const DefaultFlushTimeout = 5 * time.Second

// Locator is a parsed NATS resource locator of the form
// nats://host:port/<name>.
type Locator struct {
	// ServerURL is the server address without the path.
	ServerURL string

	// Name is the resource name taken from the path.
	Name string
}

// ParseLocator splits a NATS locator into server URL and resource name.
//
// Parameters:
//   - locator: Locator such as "nats://127.0.0.1:4222/heat"
//
// Returns:
//   - Locator: Parsed locator
//   - error: Malformed URL, unsupported scheme or missing name
func ParseLocator(locator string) (Locator, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return Locator{}, fmt.Errorf("parse locator %q: %w", locator, err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return Locator{}, fmt.Errorf("locator %q: unsupported scheme %q", locator, u.Scheme)
	}

	name := strings.Trim(u.Path, "/")
	if name == "" || strings.ContainsAny(name, "/.*> ") {
		return Locator{}, fmt.Errorf("locator %q: invalid resource name %q", locator, name)
	}

	server := url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host}

	return Locator{ServerURL: server.String(), Name: name}, nil
}

// Connect dials a NATS server with the reconnect settings used by every
// component of this module.
func Connect(serverURL, clientName string, timeout time.Duration) (*nats.Conn, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	nc, err := nats.Connect(serverURL,
		nats.Name(clientName),
		nats.Timeout(timeout),
		nats.MaxReconnects(3),
		nats.ReconnectWait(250*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", serverURL, err)
	}

	return nc, nil
}

// Flush waits for the server to acknowledge everything published on nc.
//
// nats.Conn.FlushWithContext rejects contexts without a deadline, so a
// context lacking one is bounded by DefaultFlushTimeout.
func Flush(ctx context.Context, nc *nats.Conn) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFlushTimeout)
		defer cancel()
	}

	return nc.FlushWithContext(ctx)
}
