// Package engine runs generation and tiling requests end to end:
// parameter validation, geometry construction, printability checks, and
// export encoding. Each request is a stateless pipeline invocation;
// concurrency across requests is bounded by a worker pool sized from
// the configuration.
package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/config"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/generator"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/tiling"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/validate"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/formats"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// Engine executes scaffold pipelines under a shared configuration.
type Engine struct {
	cfg   *config.Config
	log   *zap.Logger
	slots chan struct{}
}

// New builds an Engine from the configuration. A nil logger disables
// engine logging.
func New(cfg *config.Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	workers := cfg.Engine.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		cfg:   cfg,
		log:   log,
		slots: make(chan struct{}, workers),
	}
}

// Mesh is the flat-buffer transport form of a solid: vertex positions
// [3n], triangle indices [3m], and unit normals [3n].
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Indices  []uint32  `json:"indices"`
	Normals  []float32 `json:"normals"`
}

// GenerateRequest asks for a scaffold built from parameters.
type GenerateRequest struct {
	Params scaffold.Params `yaml:"params"`

	// Preview caps the expensive knobs before the pipeline runs.
	Preview bool `yaml:"preview,omitempty"`

	// TimeoutSec bounds the whole pipeline; zero uses the configured
	// default.
	TimeoutSec int `yaml:"timeout_sec,omitempty"`
}

// TileRequest asks for a base tile to be mapped onto a target surface.
type TileRequest struct {
	Base       *geom.Manifold
	Tiling     tiling.Request `yaml:"tiling"`
	TimeoutSec int            `yaml:"timeout_sec,omitempty"`
}

// Result is the outcome of a generation or tiling request. STLBase64 is
// the exported solid in the configured STL flavor.
type Result struct {
	RequestID   string           `json:"requestId"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Mesh        Mesh             `json:"mesh"`
	STLBase64   string           `json:"stlBase64"`
	Stats       generator.Stats  `json:"stats"`
	Report      *validate.Report `json:"report"`

	Manifold *geom.Manifold `json:"-"`
}

// deadline derives the per-request context from the requested timeout,
// the configured default, and the configured ceiling.
func (e *Engine) deadline(ctx context.Context, timeoutSec int) (context.Context, context.CancelFunc) {
	d := time.Duration(timeoutSec) * time.Second
	if d <= 0 {
		d = e.cfg.Engine.DefaultTimeout
	}
	if max := e.cfg.Engine.MaxTimeout; max > 0 && d > max {
		d = max
	}
	return context.WithTimeout(ctx, d)
}

// acquire blocks until a worker slot is free or the context is done.
func (e *Engine) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
	}
	select {
	case e.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", scaffold.ErrTimeout, ctx.Err())
	}
}

func (e *Engine) release() { <-e.slots }

// Generate runs the full generation pipeline: validate parameters,
// build the solid, check printability, and encode the export payload.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	ctx, cancel := e.deadline(ctx, req.TimeoutSec)
	defer cancel()

	id := uuid.NewString()
	params := req.Params
	if req.Preview {
		params = params.Preview(e.cfg.Preview)
	}
	log := e.log.With(zap.String("request_id", id), zap.String("kind", params.Kind.String()))
	log.Info("generation started", zap.Bool("preview", req.Preview))

	gen, err := generator.Generate(ctx, params)
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		return nil, err
	}

	res, err := e.finish(ctx, id, gen.Manifold, gen.Stats, log)
	if err != nil {
		return nil, err
	}
	if fp, fpErr := params.Fingerprint(); fpErr == nil {
		res.Fingerprint = fp
	}
	return res, nil
}

// Tile maps the base tile onto the requested surface and finishes the
// pipeline the same way Generate does.
func (e *Engine) Tile(ctx context.Context, req TileRequest) (*Result, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	ctx, cancel := e.deadline(ctx, req.TimeoutSec)
	defer cancel()

	id := uuid.NewString()
	log := e.log.With(
		zap.String("request_id", id),
		zap.String("shape", string(req.Tiling.Surface.Shape)),
		zap.String("mode", string(req.Tiling.Mode)),
	)
	log.Info("tiling started",
		zap.Int("tiles_u", req.Tiling.TilesU),
		zap.Int("tiles_v", req.Tiling.TilesV),
	)

	start := time.Now()
	man, err := tiling.Tile(ctx, req.Base, req.Tiling)
	if err != nil {
		log.Warn("tiling failed", zap.Error(err))
		return nil, err
	}
	stats := generator.Stats{
		TriangleCount:    man.TriangleCount(),
		VolumeMM3:        man.Volume(),
		SurfaceAreaMM2:   man.SurfaceArea(),
		GenerationTimeMS: time.Since(start).Milliseconds(),
	}
	return e.finish(ctx, id, man, stats, log)
}

// GenerateBatch runs several generation requests concurrently. The
// worker pool bounds parallelism; the first failure cancels the rest.
// Results are positionally aligned with the requests.
func (e *Engine) GenerateBatch(ctx context.Context, reqs []GenerateRequest) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := e.Generate(ctx, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// finish validates the solid and assembles the transport payload.
// Validation errors block export; printability warnings are carried in
// the report with the payload intact.
func (e *Engine) finish(ctx context.Context, id string, man *geom.Manifold, stats generator.Stats, log *zap.Logger) (*Result, error) {
	mesh := man.Mesh()
	report := validate.Check(ctx, mesh, validate.Options{
		MinWallMM:   e.cfg.Validate.MinWallMM,
		OverhangDeg: e.cfg.Validate.OverhangDeg,
		SampleLimit: e.cfg.Validate.SampleLimit,
	})
	if !report.IsValid {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: validation aborted: %v", scaffold.ErrTimeout, ctxErr)
		}
		err := report.Err()
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	stl, err := e.Export(man)
	if err != nil {
		return nil, err
	}

	vertices, indices, normals := mesh.Buffers()
	log.Info("pipeline finished",
		zap.Int("triangles", stats.TriangleCount),
		zap.Float64("volume_mm3", stats.VolumeMM3),
		zap.Int64("elapsed_ms", stats.GenerationTimeMS),
		zap.Bool("printable", report.IsPrintable),
	)
	return &Result{
		RequestID: id,
		Mesh:      Mesh{Vertices: vertices, Indices: indices, Normals: normals},
		STLBase64: stl,
		Stats:     stats,
		Report:    report,
		Manifold:  man,
	}, nil
}

// Export encodes the solid as base64 STL in the configured flavor.
func (e *Engine) Export(man *geom.Manifold) (string, error) {
	data, err := e.ExportBytes(man)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ExportBytes encodes the solid as raw STL in the configured flavor.
func (e *Engine) ExportBytes(man *geom.Manifold) ([]byte, error) {
	if man == nil || man.TriangleCount() == 0 {
		return nil, fmt.Errorf("%w: nothing to export", scaffold.ErrDegenerateGeometry)
	}
	if e.cfg.Export.ASCII {
		return formats.EncodeSTLASCII(man.Mesh(), e.cfg.Export.SolidName), nil
	}
	return formats.EncodeSTL(man.Mesh()), nil
}
