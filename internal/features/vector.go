// Package features computes the per-slot feature vector the occupancy
// classifier is trained on.
package features

import "fmt"

// NumFeatures is the length of a feature vector.
const NumFeatures = 3

// Column indices. The order is part of the trained model's contract.
const (
	OccupiedPixels = iota // Foreground pixel count in the binary mask
	TextureStd            // Standard deviation of normalized gray intensity
	SaturationMean        // Mean HSV saturation of the color crop
)

// Names lists the feature names in column order.
var Names = [NumFeatures]string{"occupied_pixel_count", "texture_std", "saturation_mean"}

// Vector is the feature vector of one slot in one frame.
type Vector [NumFeatures]float64

// Slice returns the features as a new slice, in column order.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// FromSlice builds a Vector from a slice of exactly NumFeatures values.
func FromSlice(s []float64) (Vector, error) {
	var v Vector
	if len(s) != NumFeatures {
		return v, fmt.Errorf("expected %d features, got %d", NumFeatures, len(s))
	}
	copy(v[:], s)
	return v, nil
}

func (v Vector) String() string {
	return fmt.Sprintf("pixels=%.0f texture=%.2f saturation=%.2f",
		v[OccupiedPixels], v[TextureStd], v[SaturationMean])
}
