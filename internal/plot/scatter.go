// Package plot renders dataset diagnostics as PNG charts.
package plot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"parking-occupancy/internal/dataset"
	"parking-occupancy/internal/features"
	"parking-occupancy/internal/labels"
	"parking-occupancy/pkg/colorutil"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var ErrNoRows = errors.New("no rows to plot")

// Pairs are the feature column pairs plotted by FeatureScatter.
var Pairs = [][2]int{
	{features.OccupiedPixels, features.TextureStd},
	{features.OccupiedPixels, features.SaturationMean},
	{features.TextureStd, features.SaturationMean},
}

// FeatureScatter writes one scatter plot per feature pair into dir, with
// free and occupied rows in separate colors. It returns the written paths.
func FeatureScatter(d *dataset.Dataset, dir string) ([]string, error) {
	if d.Len() == 0 {
		return nil, ErrNoRows
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}

	var paths []string
	for _, pair := range Pairs {
		p, err := scatter(d, pair[0], pair[1])
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_vs_%s.png", features.Names[pair[0]], features.Names[pair[1]]))
		if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("failed to save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func scatter(d *dataset.Dataset, xi, yi int) (*gplot.Plot, error) {
	p := gplot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", features.Names[xi], features.Names[yi])
	p.X.Label.Text = features.Names[xi]
	p.Y.Label.Text = features.Names[yi]

	var byClass [2]plotter.XYs
	for _, r := range d.Rows {
		c := labels.Free
		if r.Label == labels.Occupied {
			c = labels.Occupied
		}
		byClass[c] = append(byClass[c], plotter.XY{X: r.Features[xi], Y: r.Features[yi]})
	}

	names := [2]string{"free", "occupied"}
	for c, pts := range byClass {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s scatter: %w", names[c], err)
		}
		s.GlyphStyle.Color = colorutil.ForLabel(c)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s (%d)", names[c], len(pts)), s)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Add(plotter.NewGrid())
	return p, nil
}
