// Package labels loads ground-truth slot labels: for every frame, one value
// per slot index, 0 for free and 1 for occupied.
package labels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Label values.
const (
	Free     = 0
	Occupied = 1
)

var (
	// ErrMissing is returned when the label source does not exist.
	ErrMissing = errors.New("label set not found")
	// ErrInvalidLabel is returned for a label outside {0, 1}.
	ErrInvalidLabel = errors.New("label must be 0 or 1")
)

// LabelSet maps a frame identifier to the labels of its slots, in slot order.
// Sorting frame identifiers must give chronological order.
type LabelSet map[string][]int

// Store loads the label set of a camera layout.
type Store interface {
	LabelSet(layout string) (LabelSet, error)
}

// Frames returns the frame identifiers in ascending (chronological) order.
func (ls LabelSet) Frames() []string {
	frames := make([]string, 0, len(ls))
	for f := range ls {
		frames = append(frames, f)
	}
	sort.Strings(frames)
	return frames
}

// Count returns the total number of labels across frames.
func (ls LabelSet) Count() int {
	n := 0
	for _, l := range ls {
		n += len(l)
	}
	return n
}

// Validate checks every label value.
func (ls LabelSet) Validate() error {
	for _, frame := range ls.Frames() {
		for i, v := range ls[frame] {
			if v != Free && v != Occupied {
				return fmt.Errorf("frame %s slot %d: %w (got %d)", frame, i, ErrInvalidLabel, v)
			}
		}
	}
	return nil
}

// Load reads a JSON object mapping frame identifiers to label arrays.
func Load(path string) (LabelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("failed to read label set: %w", err)
	}

	var ls LabelSet
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("failed to parse label set %s: %w", path, err)
	}
	if ls == nil {
		ls = LabelSet{}
	}
	if err := ls.Validate(); err != nil {
		return nil, err
	}
	return ls, nil
}

// Save writes the label set as JSON.
func (ls LabelSet) Save(path string) error {
	data, err := json.MarshalIndent(ls, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize label set: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write label set: %w", err)
	}
	return nil
}

// FileStore serves a single label file regardless of the requested layout.
type FileStore struct {
	Path string
}

// LabelSet loads the file.
func (s FileStore) LabelSet(string) (LabelSet, error) {
	return Load(s.Path)
}
