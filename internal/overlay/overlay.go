// Package overlay draws slot layouts onto camera frames so a layout can be
// checked against the image it was drawn on.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"parking-occupancy/pkg/colorutil"
	"parking-occupancy/pkg/geometry"

	"gocv.io/x/gocv"
)

var ErrEmptyFrame = errors.New("empty frame")

const (
	lineThickness = 2
	fontScale     = 0.6
)

// Draw returns a copy of frame with every slot outlined and numbered from 1.
// When slot i has a label in lbls it is colored by occupancy. Slots that do
// not fit inside the frame are drawn in the warning color and their indices
// returned. The caller owns the returned Mat.
func Draw(frame gocv.Mat, slots []geometry.RectInt, lbls []int) (gocv.Mat, []int, error) {
	if frame.Empty() {
		return gocv.NewMat(), nil, ErrEmptyFrame
	}
	out := frame.Clone()
	w, h := out.Cols(), out.Rows()

	var outside []int
	for i, s := range slots {
		c := colorutil.Free
		if i < len(lbls) {
			c = colorutil.ForLabel(lbls[i])
		}
		if !s.Within(w, h) {
			c = colorutil.Warning
			outside = append(outside, i)
		}
		gocv.Rectangle(&out, s.ToImageRect(), c, lineThickness)
		gocv.PutText(&out, strconv.Itoa(i+1), image.Pt(s.X+4, s.Y+18),
			gocv.FontHersheySimplex, fontScale, c, lineThickness)
	}

	gocv.PutText(&out, fmt.Sprintf("slots: %d", len(slots)), image.Pt(10, h-10),
		gocv.FontHersheySimplex, fontScale, colorutil.Counter, lineThickness)
	return out, outside, nil
}

// Save writes m to path; the format follows the file extension.
func Save(path string, m gocv.Mat) error {
	if m.Empty() {
		return ErrEmptyFrame
	}
	if !gocv.IMWrite(path, m) {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}
