package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"parking-occupancy/internal/config"
	"parking-occupancy/internal/features"
	lotimage "parking-occupancy/internal/image"
	"parking-occupancy/internal/labels"
	"parking-occupancy/internal/preprocess"
	"parking-occupancy/pkg/geometry"

	"github.com/cyclopcam/logs"
	"golang.org/x/sync/errgroup"
)

// Stats summarizes a build. MissingFrames degrade the training data silently,
// so callers should report them.
type Stats struct {
	LabeledFrames   int      // Frames in the label set
	LoadedFrames    int      // Frames whose image was found and processed
	MissingFrames   []string // Frames skipped because the image file is absent
	UnmatchedLabels int      // Labels beyond the last slot of the layout, ignored
	Rows            int
}

// Builder accumulates dataset rows from labeled frames.
type Builder struct {
	log      logs.Log
	imageDir string
	params   config.Preprocess
	workers  int

	rows []Row
}

// NewBuilder creates a Builder reading frames from imageDir.
// workers > 1 processes frames concurrently; the resulting row order is the same.
func NewBuilder(log logs.Log, imageDir string, params config.Preprocess, workers int) *Builder {
	if workers < 1 {
		workers = 1
	}
	return &Builder{
		log:      log,
		imageDir: imageDir,
		params:   params,
		workers:  workers,
	}
}

// frameResult is the outcome of processing one frame.
type frameResult struct {
	rows      []Row
	missing   bool
	unmatched int
}

// Build extracts one row per labeled slot of every frame that has an image.
//
// For each frame in chronological order, slot i contributes a row while
// i < len(labels[frame]); slots past the end of the label sequence are skipped.
// Frames without an image file are skipped and listed in Stats.MissingFrames.
// A corrupt image or a slot outside the frame aborts the build.
func (b *Builder) Build(ctx context.Context, slots []geometry.RectInt, ls labels.LabelSet) (*Dataset, *Stats, error) {
	frames := ls.Frames()
	stats := &Stats{LabeledFrames: len(frames)}
	b.rows = b.rows[:0]

	b.log.Infof("Extracting features from %d labeled frames (%d slots, %d workers)", len(frames), len(slots), b.workers)

	results, err := b.process(ctx, frames, slots, ls)
	if err != nil {
		return nil, nil, err
	}

	for i, res := range results {
		if res.missing {
			stats.MissingFrames = append(stats.MissingFrames, frames[i])
			b.log.Warnf("Frame %s has no image in %s, skipping", frames[i], b.imageDir)
			continue
		}
		stats.LoadedFrames++
		stats.UnmatchedLabels += res.unmatched
		b.rows = append(b.rows, res.rows...)
	}
	if b.workers > 1 {
		b.sortRows()
	}

	stats.Rows = len(b.rows)
	if stats.UnmatchedLabels > 0 {
		b.log.Warnf("%d labels refer to slots beyond the %d-slot layout and were ignored", stats.UnmatchedLabels, len(slots))
	}
	if len(stats.MissingFrames) > 0 {
		b.log.Warnf("%d of %d labeled frames had no image", len(stats.MissingFrames), stats.LabeledFrames)
	}
	b.log.Infof("Extracted %d samples from %d frames", stats.Rows, stats.LoadedFrames)

	rows := make([]Row, len(b.rows))
	copy(rows, b.rows)
	return &Dataset{Rows: rows}, stats, nil
}

func (b *Builder) process(ctx context.Context, frames []string, slots []geometry.RectInt, ls labels.LabelSet) ([]frameResult, error) {
	results := make([]frameResult, len(frames))

	if b.workers == 1 {
		p := preprocess.New(b.params)
		defer p.Close()
		for i, id := range frames {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := b.processFrame(p, id, slots, ls[id])
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	next := make(chan int)

	g.Go(func() error {
		defer close(next)
		for i := range frames {
			select {
			case next <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < b.workers; w++ {
		g.Go(func() error {
			p := preprocess.New(b.params)
			defer p.Close()
			for i := range next {
				res, err := b.processFrame(p, frames[i], slots, ls[frames[i]])
				if err != nil {
					return err
				}
				// Each index is written by exactly one worker.
				results[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processFrame loads one frame, preprocesses it once and extracts every labeled slot.
func (b *Builder) processFrame(p *preprocess.Preprocessor, id string, slots []geometry.RectInt, frameLabels []int) (frameResult, error) {
	frame, err := lotimage.LoadFrame(b.imageDir, id)
	if err != nil {
		if errors.Is(err, lotimage.ErrFrameMissing) {
			return frameResult{missing: true}, nil
		}
		return frameResult{}, fmt.Errorf("frame %s: %w", id, err)
	}
	defer frame.Close()

	pf, err := p.Process(frame.Mat)
	if err != nil {
		return frameResult{}, fmt.Errorf("frame %s: %w", id, err)
	}
	defer pf.Close()

	n := min(len(frameLabels), len(slots))
	res := frameResult{
		rows:      make([]Row, 0, n),
		unmatched: len(frameLabels) - n,
	}
	for i := 0; i < n; i++ {
		v, err := features.ExtractSlot(pf.Gray, pf.Binary, frame.Mat, slots[i])
		if err != nil {
			return frameResult{}, fmt.Errorf("frame %s slot %d: %w", id, i, err)
		}
		res.rows = append(res.rows, Row{
			Frame:    id,
			Slot:     i,
			Features: v,
			Label:    frameLabels[i],
		})
	}
	return res, nil
}

// sortRows restores frame-major, slot-minor order. Frame identifiers sort
// chronologically, so ordering by identifier is ordering by time.
func (b *Builder) sortRows() {
	sort.SliceStable(b.rows, func(i, j int) bool {
		if b.rows[i].Frame != b.rows[j].Frame {
			return b.rows[i].Frame < b.rows[j].Frame
		}
		return b.rows[i].Slot < b.rows[j].Slot
	})
}
