// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"encoding/json"
	"fmt"
	"image"
)

// PointInt represents a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RectInt represents a rectangle with integer pixel coordinates.
// X and Y are the top-left corner.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// Valid reports whether the rectangle has a positive area.
func (r RectInt) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Area returns the rectangle area in pixels.
func (r RectInt) Area() int {
	return r.Width * r.Height
}

// TopLeft returns the top-left corner.
func (r RectInt) TopLeft() PointInt {
	return PointInt{X: r.X, Y: r.Y}
}

// BottomRight returns the exclusive bottom-right corner.
func (r RectInt) BottomRight() PointInt {
	return PointInt{X: r.X + r.Width, Y: r.Y + r.Height}
}

// ToImageRect converts to an image.Rectangle (Max is exclusive).
func (r RectInt) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Within returns true if the rectangle lies entirely inside a width x height frame.
func (r RectInt) Within(width, height int) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= width && r.Y+r.Height <= height
}

// Intersects returns true if this rectangle overlaps another.
func (r RectInt) Intersects(other RectInt) bool {
	return r.X < other.X+other.Width && r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height && r.Y+r.Height > other.Y
}

func (r RectInt) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", r.X, r.Y, r.Width, r.Height)
}

// UnmarshalJSON accepts either the object form {"x":..,"y":..,"width":..,"height":..}
// or the 4-element array form [x, y, w, h] written by annotation tools.
func (r *RectInt) UnmarshalJSON(data []byte) error {
	var arr []int
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 4 {
			return fmt.Errorf("rectangle array must have 4 elements, got %d", len(arr))
		}
		*r = RectInt{X: arr[0], Y: arr[1], Width: arr[2], Height: arr[3]}
		return nil
	}

	type plain RectInt
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid rectangle: %w", err)
	}
	*r = RectInt(p)
	return nil
}
