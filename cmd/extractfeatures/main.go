// Command extractfeatures builds the per-slot feature dataset from labeled
// frames and writes it to a JSON file for inspection, without training.
//
// Usage: extractfeatures [-c config.json] [-d data] [-s plazas.json] [-l ground_truth.json] [-o features.json]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"parking-occupancy/internal/app"
	"parking-occupancy/internal/config"
	"parking-occupancy/internal/dataset"
	"parking-occupancy/internal/plot"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("extractfeatures", "Extract per-slot features from labeled frames")
	configFile := parser.String("c", "config", &argparse.Options{Help: "JSON configuration file", Default: ""})
	dataDir := parser.String("d", "data", &argparse.Options{Help: "Directory holding the labeled frames", Default: ""})
	slotsFile := parser.String("s", "slots", &argparse.Options{Help: "Slot layout JSON file", Default: ""})
	labelsFile := parser.String("l", "labels", &argparse.Options{Help: "Ground truth JSON file", Default: ""})
	layoutDB := parser.String("", "db", &argparse.Options{Help: "Read slots and labels from this layout database", Default: ""})
	layoutName := parser.String("", "layout", &argparse.Options{Help: "Camera layout name inside the layout database", Default: ""})
	output := parser.String("o", "output", &argparse.Options{Help: "Output JSON file", Default: "features.json"})
	plotDir := parser.String("p", "plots", &argparse.Options{Help: "Also write feature scatter plots to this directory", Default: ""})
	workers := parser.Int("w", "workers", &argparse.Options{Help: "Frames processed concurrently", Default: 0})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configFile != "" {
		if cfg, err = config.Load(*configFile); err != nil {
			fail(log, err)
		}
	}
	for dst, v := range map[*string]string{
		&cfg.Paths.DataDir:    *dataDir,
		&cfg.Paths.SlotsFile:  *slotsFile,
		&cfg.Paths.LabelsFile: *labelsFile,
		&cfg.Paths.LayoutDB:   *layoutDB,
		&cfg.Paths.Layout:     *layoutName,
	} {
		if v != "" {
			*dst = v
		}
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		fail(log, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := app.OpenSources(cfg.Paths)
	if err != nil {
		fail(log, err)
	}
	defer src.Close()

	layout, err := src.Slots.Layout(cfg.Paths.Layout)
	if err != nil {
		fail(log, err)
	}
	ls, err := src.Labels.LabelSet(layout.Name)
	if err != nil {
		fail(log, err)
	}

	d, stats, err := dataset.NewBuilder(log, cfg.Paths.DataDir, cfg.Preprocess, cfg.Workers).Build(ctx, layout.Slots, ls)
	if err != nil {
		fail(log, err)
	}

	for _, r := range d.Rows {
		fmt.Printf("  %s slot %d: label=%d %s\n", r.Frame, r.Slot+1, r.Label, r.Features)
	}
	free, occupied := d.ClassCounts()
	fmt.Printf("\n%d samples (%d free, %d occupied) from %d frames, %d frames without images\n",
		d.Len(), free, occupied, stats.LoadedFrames, len(stats.MissingFrames))

	if err := d.Save(*output); err != nil {
		fail(log, err)
	}
	fmt.Printf("Wrote %d samples to %s\n", d.Len(), *output)

	if *plotDir != "" && d.Len() > 0 {
		paths, err := plot.FeatureScatter(d, *plotDir)
		if err != nil {
			fail(log, err)
		}
		fmt.Printf("Wrote %d plots to %s\n", len(paths), *plotDir)
	}
}

func fail(log logs.Log, err error) {
	log.Criticalf("%v", err)
	log.Close()
	os.Exit(1)
}
