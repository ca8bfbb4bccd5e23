// Package types provides core type definitions and interfaces for the insitu library.
//
// This package contains shared types that are used across multiple packages in the
// library. By keeping these types in a separate package, we avoid import cycles
// between the root insitu package and its engine, partition, mesh and backend
// implementations.
//
// Key types:
//   - StepContext: Result of attaching to the next step of a source
//   - Block / SlabDescriptor: The two canonical data distributions
//   - MeshPayload: Backend-agnostic description of one step's domains and fields
//   - StepEngine: Step-oriented read engine contract
//   - Backend: Analysis backend contract
//   - ProcessGroup: Fixed-size reader group membership
//   - Logger / MetricsSink: Ambient observability contracts
package types
