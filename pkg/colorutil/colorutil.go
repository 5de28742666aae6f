// Package colorutil provides shared color utilities for the occupancy tools.
package colorutil

import (
	"image/color"
	"math"
)

// Overlay and plot colors.
var (
	Black    = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green    = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red      = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Yellow   = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Magenta  = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Free     = Green
	Occupied = Red
	Warning  = Magenta
	Counter  = Yellow
)

// ForLabel returns the plot color for a slot label (0 free, 1 occupied).
func ForLabel(label int) color.RGBA {
	if label == 1 {
		return Occupied
	}
	return Free
}

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	return h / 2, s, v
}
