// Package insitu provides the ingestion half of an in-situ / in-transit
// visualization pipeline.
//
// Each rank of a fixed-size reader group attaches to a step-oriented data
// source (a live JetStream step stream or a persisted step directory), reads
// per-step distributed array variables, reshapes them into one of two
// canonical distributions and hands a backend-agnostic mesh payload to an
// analysis backend.
//
// # Quick Start
//
// Basic usage with default settings:
//
//	import "github.com/arloliu/insitu"
//
//	cfg := insitu.DefaultConfig()
//	cfg.Source.Locator = "/data/heat"
//	cfg.Variables.Primary = "T"
//
//	runner, err := insitu.NewRunner(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := runner.Run(ctx)
//
// # Partition Modes
//
//   - preserve: the source's write-time blocks are assigned round-robin,
//     block i to rank i mod P, and each block becomes one mesh domain
//   - repartition: each rank reads a balanced contiguous slab of the leading
//     dimension (sizes differ by at most one row) as a single domain
//
// # Architecture
//
// Every step runs through a fixed state progression:
//
//	Idle → StepReady → Publishing → Draining → Idle
//
// End of stream and wait timeouts are clean shutdowns. A missing primary
// variable, a failed transfer or a backend error is fatal: the rank logs it,
// aborts the process group so peers stop waiting, finalizes the backend and
// returns the error. A missing secondary variable only drops that field.
//
// # Advanced Usage
//
// Multi-rank runs with an abort broadcast and a relay backend:
//
//	cfg, _ := insitu.LoadConfig("reader.yaml")
//	cfg.Group = insitu.GroupConfig{Rank: rank, Size: size, URL: natsURL}
//	cfg.Backend = insitu.BackendSettings{Name: "nats", Options: map[string]string{"url": natsURL}}
//
//	runner, _ := insitu.NewRunner(cfg,
//	    insitu.WithHooks(hooks),
//	    insitu.WithLogger(logger),
//	)
//
// See the examples/ directory for complete working examples.
package insitu
