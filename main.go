// Command occupancy trains the parking slot occupancy classifier from a slot
// layout, labeled camera frames and ground truth, and writes the model artifact.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"parking-occupancy/internal/app"
	"parking-occupancy/internal/config"
	"parking-occupancy/internal/version"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("occupancy", "Train the parking slot occupancy classifier")
	configFile := parser.String("c", "config", &argparse.Options{Help: "JSON configuration file (omitted fields keep their defaults)", Default: ""})
	dataDir := parser.String("d", "data", &argparse.Options{Help: "Directory holding the labeled frames", Default: ""})
	slotsFile := parser.String("s", "slots", &argparse.Options{Help: "Slot layout JSON file", Default: ""})
	labelsFile := parser.String("l", "labels", &argparse.Options{Help: "Ground truth JSON file", Default: ""})
	modelFile := parser.String("o", "model", &argparse.Options{Help: "Output model artifact", Default: ""})
	layoutDB := parser.String("", "db", &argparse.Options{Help: "Read slots and labels from this layout database instead of JSON files", Default: ""})
	layoutName := parser.String("", "layout", &argparse.Options{Help: "Camera layout name inside the layout database", Default: ""})
	plotDir := parser.String("p", "plots", &argparse.Options{Help: "Write feature scatter plots to this directory", Default: ""})
	workers := parser.Int("w", "workers", &argparse.Options{Help: "Frames processed concurrently", Default: 0})
	trainFraction := parser.Float("", "train-fraction", &argparse.Options{Help: "Leading fraction of rows used for training", Default: 0.0})
	scaleFull := parser.Flag("", "scale-full", &argparse.Options{Help: "Fit the feature scaler on every row before the split", Default: false})
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
	defer log.Close()
	log.Infof("occupancy %s", version.String())

	cfg := config.Default()
	if *configFile != "" {
		if cfg, err = config.Load(*configFile); err != nil {
			log.Criticalf("%v", err)
			os.Exit(1)
		}
	}
	overrideString(&cfg.Paths.DataDir, *dataDir)
	overrideString(&cfg.Paths.SlotsFile, *slotsFile)
	overrideString(&cfg.Paths.LabelsFile, *labelsFile)
	overrideString(&cfg.Paths.ModelFile, *modelFile)
	overrideString(&cfg.Paths.LayoutDB, *layoutDB)
	overrideString(&cfg.Paths.Layout, *layoutName)
	overrideString(&cfg.Paths.PlotDir, *plotDir)
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *trainFraction > 0 {
		cfg.Train.TrainFraction = *trainFraction
	}
	if *scaleFull {
		cfg.Train.ScaleOnFullDataset = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.Criticalf("%v", err)
		log.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, log logs.Log, cfg config.Config) error {
	src, err := app.OpenSources(cfg.Paths)
	if err != nil {
		return err
	}
	defer src.Close()

	sum, err := app.Run(ctx, log, cfg, src)
	if err != nil {
		return err
	}

	res := sum.Result
	fmt.Printf("\nTrained on %d rows, evaluated on %d rows\n", res.TrainRows, res.EvalRows)
	if len(sum.Stats.MissingFrames) > 0 {
		fmt.Printf("Frames without images: %d\n", len(sum.Stats.MissingFrames))
	}
	if res.Report != nil {
		fmt.Printf("\nClassification report:\n%s", res.Report)
		fmt.Printf("\nConfusion matrix:\n%s", res.Report.Confusion)
	}
	fmt.Printf("\nModel saved to %s\n", sum.ModelPath)
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
