// Package app wires the occupancy pipeline stages together: slot layout and
// labels in, trained artifact out.
package app

import (
	"context"
	"fmt"

	"parking-occupancy/internal/artifact"
	"parking-occupancy/internal/config"
	"parking-occupancy/internal/dataset"
	"parking-occupancy/internal/labels"
	"parking-occupancy/internal/layoutdb"
	"parking-occupancy/internal/plot"
	"parking-occupancy/internal/roi"
	"parking-occupancy/internal/train"

	"github.com/cyclopcam/logs"
)

// Sources are where slots and labels are read from.
type Sources struct {
	Slots  roi.Store
	Labels labels.Store
	close  func() error
}

// Close releases the underlying database, if any.
func (s *Sources) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenSources uses the layout database when one is configured and the JSON
// files otherwise.
func OpenSources(p config.Paths) (*Sources, error) {
	if p.LayoutDB == "" {
		return &Sources{
			Slots:  roi.FileStore{Path: p.SlotsFile},
			Labels: labels.FileStore{Path: p.LabelsFile},
		}, nil
	}
	db, err := layoutdb.Open(p.LayoutDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout database: %w", err)
	}
	return &Sources{Slots: db, Labels: db, close: db.Close}, nil
}

// Summary describes a completed run.
type Summary struct {
	Layout    *roi.Layout
	Stats     *dataset.Stats
	Result    *train.Result
	Plots     []string
	ModelPath string
}

// Run builds the dataset, trains and evaluates, and saves the artifact.
// Nothing is written to the model path unless every stage succeeds.
func Run(ctx context.Context, log logs.Log, cfg config.Config, src *Sources) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	layout, err := src.Slots.Layout(cfg.Paths.Layout)
	if err != nil {
		return nil, err
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	log.Infof("Loaded layout %q with %d slots", layout.Name, layout.Len())
	for _, pair := range layout.Overlapping() {
		log.Warnf("Slots %d and %d overlap", pair[0]+1, pair[1]+1)
	}

	ls, err := src.Labels.LabelSet(layout.Name)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded labels for %d frames (%d slot labels)", len(ls), ls.Count())

	b := dataset.NewBuilder(log, cfg.Paths.DataDir, cfg.Preprocess, cfg.Workers)
	d, stats, err := b.Build(ctx, layout.Slots, ls)
	if err != nil {
		return nil, err
	}
	free, occupied := d.ClassCounts()
	log.Infof("Dataset: %d rows (%d free, %d occupied)", d.Len(), free, occupied)

	sum := &Summary{Layout: layout, Stats: stats, ModelPath: cfg.Paths.ModelFile}

	if cfg.Paths.PlotDir != "" && d.Len() > 0 {
		sum.Plots, err = plot.FeatureScatter(d, cfg.Paths.PlotDir)
		if err != nil {
			return nil, fmt.Errorf("failed to plot features: %w", err)
		}
		log.Infof("Wrote %d feature plots to %s", len(sum.Plots), cfg.Paths.PlotDir)
	}

	res, err := train.NewTrainer(log, cfg.Train).Run(d)
	if err != nil {
		return nil, err
	}
	sum.Result = res

	a := &artifact.Artifact{Model: res.Model, Scaler: res.Scaler}
	if err := artifact.Save(cfg.Paths.ModelFile, a); err != nil {
		return nil, err
	}
	log.Infof("Saved model to %s", cfg.Paths.ModelFile)
	return sum, nil
}
