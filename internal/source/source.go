// Package source feeds the engine's ingestion queue from telemetry
// producers: a websocket attachment to the device-capability stream and a
// deterministic simulator for demos and tests.
package source

import (
	"context"

	"github.com/solacehub/solace-sense/internal/telemetry"
)

// Ingester accepts raw samples. *engine.Engine satisfies it; Ingest never
// blocks the caller.
type Ingester interface {
	Ingest(telemetry.RawSample) bool
}

// Source produces raw telemetry until its context ends.
type Source interface {
	// Run blocks, feeding the ingester until ctx is done. A nil return
	// means a clean shutdown.
	Run(ctx context.Context) error
	Name() string
}
