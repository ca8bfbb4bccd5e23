// Package transport provides the step transport client.
//
// A Client wraps a types.StepEngine and enforces the step lifecycle:
//
//	Open -> (BeginStep -> reads -> EndStep)* -> Close
//
// At most one step is in flight. Step-scoped calls outside a Ready step fail
// with types.ErrNotInStep, end of stream is sticky, and step numbers must
// strictly increase. Engine failures are returned as *types.OpError whose
// kind is types.ErrConnection (connectivity) or types.ErrTransfer; the client
// never retries.
//
// Engines are selected by name from a registry. Built-in engines:
//
//   - file (aliases bp, dir): persisted step directory, bounded open (5s default)
//   - jetstream (aliases stream, sst): live NATS JetStream stream, unbounded open
//
// Additional engines are added with RegisterEngine, or a ready engine is
// injected with WithEngine.
package transport
