package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/mosaic.offsets/internal/config"
	"github.com/banshee-data/mosaic.offsets/internal/db"
	"github.com/banshee-data/mosaic.offsets/internal/fsutil"
	"github.com/banshee-data/mosaic.offsets/internal/header"
	"github.com/banshee-data/mosaic.offsets/internal/offsets"
	"github.com/banshee-data/mosaic.offsets/internal/report"
	"github.com/banshee-data/mosaic.offsets/internal/units"
)

// fsys is swapped for a MemoryFileSystem in tests.
var fsys fsutil.FileSystem = fsutil.OSFileSystem{}

// loadConfig reads path, or returns defaults when path is empty.
func loadConfig(path string) (*config.OffsetConfig, error) {
	if path == "" {
		return config.EmptyOffsetConfig(), nil
	}
	return config.LoadOffsetConfig(path)
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// expandInputs replaces glob patterns with the files they match, in sorted
// order. Plain paths pass through unchanged so a missing file still fails
// when it is opened.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			paths = append(paths, arg)
			continue
		}
		matches, err := fsys.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// loadBatch reads a single JSON header batch or one header per FITS file.
// Arguments may be glob patterns.
func loadBatch(args []string) (header.Batch, error) {
	paths, err := expandInputs(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 1 && strings.EqualFold(filepath.Ext(paths[0]), ".json") {
		return header.LoadJSON(fsys, paths[0])
	}
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".json") {
			return nil, fmt.Errorf("a JSON batch must be the only input, got %d inputs", len(paths))
		}
	}
	return header.LoadFITS(fsys, paths)
}

func runOffsets(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("offsets", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to JSON configuration file")
	format := fs.String("format", "", "Data format: image or cube (default from config, else cube)")
	mode := fs.String("mode", "", "Coordinate mode: telescope or ao (default from config, else telescope)")
	skipPA := fs.Bool("skip-pa", false, "Skip the position angle check and use PA=0")
	outPath := fs.String("out", "", "Write the headers with offsets as JSON to this path ('-' for stdout)")
	dbPath := fs.String("db", "", "Record the run in this sqlite database")
	pngPath := fs.String("png", "", "Save a layout plot PNG to this path")
	htmlPath := fs.String("html", "", "Save an interactive layout chart HTML to this path")
	title := fs.String("title", "Mosaic layout", "Title for plots")
	paUnits := fs.String("pa-units", units.Radians, "Units for the reported position angle: "+units.GetValidUnitsString())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no input files")
	}
	if !units.IsValid(*paUnits) {
		return fmt.Errorf("invalid -pa-units %q: must be one of %s", *paUnits, units.GetValidUnitsString())
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *format == "" {
		*format = cfg.GetFormat()
	}
	if *mode == "" {
		*mode = cfg.GetMode()
	}
	if !isFlagSet(fs, "skip-pa") {
		*skipPA = cfg.GetSkipPositionAngle()
	}

	f, err := offsets.ParseFormat(*format)
	if err != nil {
		return err
	}
	m, err := offsets.ParseMode(*mode)
	if err != nil {
		return err
	}

	batch, err := loadBatch(fs.Args())
	if err != nil {
		return err
	}
	log.Printf("loaded %d headers", len(batch))

	pipeline := offsets.NewPipeline(offsets.NewConfig(cfg))
	res, err := pipeline.DetermineOffsets(batch, f, m, *skipPA)
	if err != nil {
		return err
	}

	names := make([]string, len(batch))
	for i, rec := range batch {
		names[i] = header.Label(rec, cfg.GetNameKeyword(), i)
	}
	if err := printOffsets(stdout, res, names, *paUnits); err != nil {
		return err
	}

	if *outPath != "" {
		if err := writeHeaders(*outPath, stdout, cfg, batch, res); err != nil {
			return err
		}
	}
	if *dbPath != "" {
		store, err := db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		run := db.NewOffsetRun(res, names)
		if err := store.RecordRun(run); err != nil {
			return err
		}
		log.Printf("recorded run %s", run.RunID)
	}
	if *pngPath != "" {
		if err := report.SaveLayoutPNG(*pngPath, *title, res, names); err != nil {
			return err
		}
	}
	if *htmlPath != "" {
		if err := writeChart(*htmlPath, *title, res, names); err != nil {
			return err
		}
	}
	return nil
}

func printOffsets(w io.Writer, res *offsets.Result, names []string, paUnits string) error {
	pa := units.ConvertAngle(res.PositionAngle, units.Radians, paUnits)
	fmt.Fprintf(w, "# format=%s mode=%s scale=%.4f arcsec/px pa=%.5f %s\n", res.Format, res.Mode, res.Scale, pa, paUnits)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tX_OFF\tY_OFF")
	for i, o := range res.Offsets {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%.3f\n", i, names[i], o.X, o.Y)
	}
	return tw.Flush()
}

func writeHeaders(path string, stdout io.Writer, cfg *config.OffsetConfig, batch header.Batch, res *offsets.Result) error {
	xs, ys := res.Columns()
	out, err := header.SetOffsets(batch, cfg.GetXOffKeyword(), cfg.GetYOffKeyword(), xs, ys)
	if err != nil {
		return err
	}
	if path == "-" {
		return header.WriteJSON(stdout, out)
	}

	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := header.WriteJSON(w, out); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeChart(path, title string, res *offsets.Result, names []string) error {
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.RenderLayoutHTML(w, title, res, names); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
