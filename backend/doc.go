// Package backend provides the analysis backend registry and built-in backends.
//
// Backends are selected by name. The orchestration loop calls Initialize once,
// Publish and Execute once per step, and Finalize at shutdown. Built-ins:
//
//   - nop: discards payloads
//   - stats: per-step field statistics (count, min, max, mean), logged and queryable
//   - nats: relays each domain as a NATS message with descriptive headers
//   - amqp: relays the same frames to a RabbitMQ exchange
//
// Custom backends are added with Register.
package backend
