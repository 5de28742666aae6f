// Package dataset turns labeled frames into the ordered feature matrix and
// label vector the classifier is trained on.
//
// Row order is frame-major in ascending frame identifier order, then slot
// index. The train/evaluation split downstream is positional, so this order
// must never change between runs.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"parking-occupancy/internal/features"

	"gonum.org/v1/gonum/mat"
)

// Row is one (frame, slot) sample.
type Row struct {
	Frame    string          `json:"frame"`
	Slot     int             `json:"slot"`
	Features features.Vector `json:"features"`
	Label    int             `json:"label"`
}

// Dataset is an ordered sequence of rows.
type Dataset struct {
	Rows []Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// X returns the feature matrix, one row per sample. It returns nil for an
// empty dataset since gonum matrices cannot have zero rows.
func (d *Dataset) X() *mat.Dense {
	n := d.Len()
	if n == 0 {
		return nil
	}
	data := make([]float64, 0, n*features.NumFeatures)
	for _, r := range d.Rows {
		data = append(data, r.Features[:]...)
	}
	return mat.NewDense(n, features.NumFeatures, data)
}

// Y returns the label vector.
func (d *Dataset) Y() []int {
	y := make([]int, d.Len())
	for i, r := range d.Rows {
		y[i] = r.Label
	}
	return y
}

// Slice returns rows [i, j) as a new Dataset sharing the row storage.
func (d *Dataset) Slice(i, j int) *Dataset {
	if i < 0 || j > d.Len() || i > j {
		panic(fmt.Sprintf("dataset: slice [%d:%d] out of range for %d rows", i, j, d.Len()))
	}
	return &Dataset{Rows: d.Rows[i:j:j]}
}

// ClassCounts returns the number of free and occupied rows.
func (d *Dataset) ClassCounts() (free, occupied int) {
	for _, r := range d.Rows {
		if r.Label == 1 {
			occupied++
		} else {
			free++
		}
	}
	return free, occupied
}

// Frames returns the distinct frame identifiers in row order.
func (d *Dataset) Frames() []string {
	var frames []string
	for i, r := range d.Rows {
		if i == 0 || d.Rows[i-1].Frame != r.Frame {
			frames = append(frames, r.Frame)
		}
	}
	return frames
}

// Save writes the rows as indented JSON.
func (d *Dataset) Save(path string) error {
	data, err := json.MarshalIndent(d.Rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize dataset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
