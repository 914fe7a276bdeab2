// Package scaffold defines the scaffold parameter model shared by the
// generators, the tiling engine and the pipeline boundary.
package scaffold

import "errors"

// Error taxonomy for the generation/tiling pipeline. Stages wrap these
// sentinels with fmt.Errorf("...: %w", ...) so callers can classify
// failures with errors.Is.
var (
	// ErrInvalidParameter marks out-of-range or missing input, rejected
	// before any computation starts.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDegenerateGeometry marks a non-manifold or zero-volume result.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrTimeout marks a pipeline invocation aborted by its deadline.
	ErrTimeout = errors.New("generation timed out")

	// ErrTilingSeam marks a violated seam-stitching invariant. This is
	// an internal consistency failure, never caller input.
	ErrTilingSeam = errors.New("tiling seam mismatch")
)
