// Package roi holds the parking slot layout of a camera: an ordered list of
// rectangles whose index is the slot ID.
package roi

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"parking-occupancy/pkg/geometry"
)

var (
	// ErrMissing is returned when the layout source does not exist.
	ErrMissing = errors.New("slot layout not found")
	// ErrEmpty is returned for a layout without slots.
	ErrEmpty = errors.New("slot layout has no slots")
)

// Layout is the fixed set of slot rectangles for one camera layout.
type Layout struct {
	Name  string             `json:"name,omitempty"`
	Slots []geometry.RectInt `json:"slots"`
}

// Store loads slot layouts by camera layout name.
type Store interface {
	Layout(name string) (*Layout, error)
}

// Len returns the number of slots.
func (l *Layout) Len() int {
	return len(l.Slots)
}

// Validate checks that the layout has slots and every slot has a positive size.
func (l *Layout) Validate() error {
	if len(l.Slots) == 0 {
		return ErrEmpty
	}
	for i, s := range l.Slots {
		if !s.Valid() {
			return fmt.Errorf("slot %d %v: width and height must be positive", i, s)
		}
	}
	return nil
}

// OutOfBounds returns the indices of slots that do not fit in a width x height frame.
func (l *Layout) OutOfBounds(width, height int) []int {
	var out []int
	for i, s := range l.Slots {
		if !s.Within(width, height) {
			out = append(out, i)
		}
	}
	return out
}

// Overlapping returns index pairs of slots whose rectangles intersect.
// Overlaps usually mean a rectangle was drawn twice.
func (l *Layout) Overlapping() [][2]int {
	var pairs [][2]int
	for i := 0; i < len(l.Slots); i++ {
		for j := i + 1; j < len(l.Slots); j++ {
			if l.Slots[i].Intersects(l.Slots[j]) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// Load reads a layout file. The file holds either a bare JSON array of slots
// or an object with "name" and "slots". Slots may be objects or [x, y, w, h] arrays.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("failed to read slot layout: %w", err)
	}

	layout := &Layout{}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &layout.Slots)
	} else {
		err = json.Unmarshal(data, layout)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse slot layout %s: %w", path, err)
	}

	if layout.Name == "" {
		layout.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("slot layout %s: %w", path, err)
	}
	return layout, nil
}

// Save writes the layout as JSON.
func (l *Layout) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize slot layout: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write slot layout: %w", err)
	}
	return nil
}

// FileStore serves a single layout file regardless of the requested name.
type FileStore struct {
	Path string
}

// Layout loads the file. A non-empty name overrides the name stored in the file.
func (s FileStore) Layout(name string) (*Layout, error) {
	l, err := Load(s.Path)
	if err != nil {
		return nil, err
	}
	if name != "" {
		l.Name = name
	}
	return l, nil
}
