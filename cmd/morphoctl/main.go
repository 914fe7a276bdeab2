// morphoctl is a CLI utility for generating, tiling, validating, and
// exporting tissue-engineering scaffold meshes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/config"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/engine"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/logger"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/tiling"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/validate"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/formats"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "generate", "gen":
		cmdGenerate(args)
	case "tile":
		cmdTile(args)
	case "validate":
		cmdValidate(args)
	case "info":
		cmdInfo(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`morphoctl - scaffold geometry and surface tiling utility

Usage:
  morphoctl <command> [options]

Commands:
  generate <params.yaml>           Generate a scaffold and export STL
  tile <base.stl> <request.yaml>   Map a base tile onto a target surface
  validate <file.stl>              Check a mesh for printability
  info <file.stl>                  Show mesh statistics
  config init [path]               Write a default config file

Examples:
  morphoctl generate -o gyroid.stl gyroid.yaml
  morphoctl generate -preview vascular.yaml
  morphoctl tile -o wrapped.stl gyroid.stl sphere.yaml
  morphoctl validate wrapped.stl`)
}

// bootstrap loads the configuration and initializes logging. Console
// logging is kept quiet unless debug is enabled so command output stays
// parseable.
func bootstrap() (*config.Config, *engine.Engine) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	console := cfg.Logging.Level == "debug"
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, console); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	return cfg, engine.New(cfg, logger.Named("engine"))
}

func cmdGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("o", "scaffold.stl", "Output STL path")
	preview := fs.Bool("preview", false, "Cap expensive parameters for a fast preview")
	timeout := fs.Int("timeout", 0, "Pipeline timeout in seconds (0 = configured default)")
	ascii := fs.Bool("ascii", false, "Write ASCII STL instead of binary")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: morphoctl generate [-o out.stl] [-preview] <params.yaml>")
		os.Exit(1)
	}

	cfg, eng := bootstrap()
	defer logger.Sync()
	if *ascii {
		cfg.Export.ASCII = true
	}

	params, err := loadParams(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	res, err := eng.Generate(context.Background(), engine.GenerateRequest{
		Params:     params,
		Preview:    *preview,
		TimeoutSec: *timeout,
	})
	if err != nil {
		fatal(err)
	}

	if err := writeSolid(eng, res, *out); err != nil {
		fatal(err)
	}
	printResult(res, *out)
}

func cmdTile(args []string) {
	fs := flag.NewFlagSet("tile", flag.ExitOnError)
	out := fs.String("o", "tiled.stl", "Output STL path")
	timeout := fs.Int("timeout", 0, "Pipeline timeout in seconds (0 = configured default)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: morphoctl tile [-o out.stl] <base.stl> <request.yaml>")
		os.Exit(1)
	}

	_, eng := bootstrap()
	defer logger.Sync()

	base, err := loadSolid(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	var req tiling.Request
	if err := loadYAML(fs.Arg(1), &req); err != nil {
		fatal(err)
	}

	res, err := eng.Tile(context.Background(), engine.TileRequest{
		Base:       base,
		Tiling:     req,
		TimeoutSec: *timeout,
	})
	if err != nil {
		fatal(err)
	}

	if err := writeSolid(eng, res, *out); err != nil {
		fatal(err)
	}
	printResult(res, *out)
}

func cmdValidate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: morphoctl validate <file.stl>")
		os.Exit(1)
	}

	cfg, _ := bootstrap()
	defer logger.Sync()

	mesh, err := loadMesh(args[0])
	if err != nil {
		fatal(err)
	}

	report := validate.Check(context.Background(), mesh, validate.Options{
		MinWallMM:   cfg.Validate.MinWallMM,
		OverhangDeg: cfg.Validate.OverhangDeg,
		SampleLimit: cfg.Validate.SampleLimit,
	})

	fmt.Printf("Mesh:      %s\n", args[0])
	fmt.Printf("Valid:     %v\n", report.IsValid)
	fmt.Printf("Printable: %v\n", report.IsPrintable)
	for _, e := range report.Errors {
		fmt.Printf("  error:   %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	if !report.IsValid {
		os.Exit(1)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: morphoctl info <file.stl>")
		os.Exit(1)
	}

	mesh, err := loadMesh(args[0])
	if err != nil {
		fatal(err)
	}

	min, max := mesh.Bounds()
	fmt.Printf("Mesh:      %s\n", args[0])
	fmt.Printf("Vertices:  %d\n", mesh.VertexCount())
	fmt.Printf("Triangles: %d\n", mesh.TriangleCount())
	fmt.Printf("Bounds:    [%.3f %.3f %.3f] .. [%.3f %.3f %.3f] mm\n",
		min.X, min.Y, min.Z, max.X, max.Y, max.Z)
	fmt.Printf("Area:      %.3f mm2\n", mesh.SurfaceArea())
	if man, err := geom.Seal(mesh.Clone()); err == nil {
		fmt.Printf("Volume:    %.3f mm3 (watertight)\n", man.Volume())
	} else {
		fmt.Printf("Volume:    n/a (not watertight: %v)\n", err)
	}
}

func cmdConfig(args []string) {
	if len(args) < 1 || args[0] != "init" {
		fmt.Fprintln(os.Stderr, "Usage: morphoctl config init [path]")
		os.Exit(1)
	}

	cfg := config.Default()
	if len(args) > 1 {
		if err := cfg.SaveTo(args[1]); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote:     %s\n", args[1])
		return
	}
	if err := cfg.Save(); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote:     %s\n", config.ConfigDir())
}

// loadParams reads a scaffold parameter YAML file. The kind tag selects
// the parameter variant.
func loadParams(path string) (scaffold.Params, error) {
	var p scaffold.Params
	if err := loadYAML(path, &p); err != nil {
		return p, err
	}
	kind, err := scaffold.KindFromString(strings.TrimSpace(p.KindName))
	if err != nil {
		return p, err
	}
	p.Kind = kind
	return p, nil
}

func loadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func loadMesh(path string) (*geom.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return formats.ParseSTL(data)
}

func loadSolid(path string) (*geom.Manifold, error) {
	mesh, err := loadMesh(path)
	if err != nil {
		return nil, err
	}
	man, err := geom.Seal(mesh)
	if err != nil {
		return nil, fmt.Errorf("%s is not a closed solid: %w", path, err)
	}
	return man, nil
}

func writeSolid(eng *engine.Engine, res *engine.Result, path string) error {
	data, err := eng.ExportBytes(res.Manifold)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printResult(res *engine.Result, out string) {
	fmt.Printf("Request:   %s\n", res.RequestID)
	fmt.Printf("Triangles: %d\n", res.Stats.TriangleCount)
	fmt.Printf("Volume:    %.3f mm3\n", res.Stats.VolumeMM3)
	fmt.Printf("Area:      %.3f mm2\n", res.Stats.SurfaceAreaMM2)
	fmt.Printf("Elapsed:   %d ms\n", res.Stats.GenerationTimeMS)
	fmt.Printf("Printable: %v\n", res.Report.IsPrintable)
	for _, w := range res.Report.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	fmt.Printf("Wrote:     %s\n", out)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
