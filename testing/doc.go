// Package testing provides test utilities for the insitu module.
//
// It follows Go's convention of providing testing utilities in a dedicated
// package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - NewJetStream: JetStream handle on an embedded server connection
//   - NewTestLogger: Logger writing to testing.T
//   - RecordingLogger: Logger that captures entries for assertions
//   - RecordingBackend: Backend that records every call and keeps payload copies
//
// Example usage:
//
//	import (
//	    "testing"
//	    insitutest "github.com/arloliu/insitu/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := insitutest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
