// Package nestor orchestrates nested coastal circulation simulations: a
// coarse fulldomain run drives a refined subdomain run through extracted
// boundary conditions, and the two solutions are compared node by node at
// the end.
//
// The workflow is a fixed sequence of phases, each gated by an idempotency
// check so that interrupted pipelines resume where they left off:
//
//	pipe := nestor.New("/data/full", "/data/sub",
//		nestor.WithEllipse(domain.Point{X: -72.5, Y: 40.85}, 0.12, 0.08, 0.01),
//		nestor.WithNumProcs(8),
//	)
//	result, err := pipe.Run(ctx)
//
// Case directories are the unit of state: every phase reads and writes
// conventional artifact names (fort.14, fort.015, fort.019, ...) inside
// them, so the pipeline composes with existing model tooling.
package nestor
