package features

import (
	"errors"
	"fmt"

	"parking-occupancy/pkg/geometry"

	"gocv.io/x/gocv"
)

var (
	// ErrInvalidSlot is returned for a slot without a positive width and height.
	ErrInvalidSlot = errors.New("invalid slot rectangle")
	// ErrSlotOutOfBounds is returned when a slot does not fit in the frame.
	// This means the layout was drawn for a different camera resolution.
	ErrSlotOutOfBounds = errors.New("slot outside frame bounds")
	// ErrEmptyROI is returned when a crop has no pixels.
	ErrEmptyROI = errors.New("empty slot crop")
)

// ROI holds the three crops of one slot. The Mats are views into the frame
// representations and must be closed before the frame is.
type ROI struct {
	Gray   gocv.Mat
	Binary gocv.Mat
	Color  gocv.Mat
}

// Close releases the crop headers.
func (r *ROI) Close() {
	r.Gray.Close()
	r.Binary.Close()
	r.Color.Close()
}

// Crop cuts slot out of the gray, binary and color representations of one frame.
// The three Mats must have the same size.
func Crop(gray, binary, color gocv.Mat, slot geometry.RectInt) (*ROI, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSlot, slot)
	}
	w, h := color.Cols(), color.Rows()
	if gray.Cols() != w || gray.Rows() != h || binary.Cols() != w || binary.Rows() != h {
		return nil, fmt.Errorf("representation sizes differ: color %dx%d, gray %dx%d, binary %dx%d",
			w, h, gray.Cols(), gray.Rows(), binary.Cols(), binary.Rows())
	}
	if !slot.Within(w, h) {
		return nil, fmt.Errorf("%w: slot %v does not fit in %dx%d frame", ErrSlotOutOfBounds, slot, w, h)
	}

	r := slot.ToImageRect()
	return &ROI{
		Gray:   gray.Region(r),
		Binary: binary.Region(r),
		Color:  color.Region(r),
	}, nil
}

// Extract computes the feature vector of one slot crop.
//
//   - occupied_pixel_count: non-zero pixels of the binary crop. Vehicles add
//     edges and texture that survive binarization; bare pavement mostly does not.
//   - texture_std: population standard deviation of the gray crop.
//   - saturation_mean: mean S channel (0-255) after BGR to HSV conversion.
//     Paint is more saturated than asphalt.
func Extract(roi *ROI) (Vector, error) {
	var v Vector
	if roi.Gray.Empty() || roi.Binary.Empty() || roi.Color.Empty() {
		return v, ErrEmptyROI
	}

	v[OccupiedPixels] = float64(gocv.CountNonZero(roi.Binary))

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(roi.Gray, &mean, &stddev)
	v[TextureStd] = stddev.GetDoubleAt(0, 0)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(roi.Color, &hsv, gocv.ColorBGRToHSV)

	hsvMean := gocv.NewMat()
	defer hsvMean.Close()
	hsvStd := gocv.NewMat()
	defer hsvStd.Close()
	gocv.MeanStdDev(hsv, &hsvMean, &hsvStd)
	// Mean is 3x1, one row per channel.
	v[SaturationMean] = hsvMean.GetDoubleAt(1, 0)

	return v, nil
}

// ExtractSlot crops slot from the frame representations and extracts its features.
func ExtractSlot(gray, binary, color gocv.Mat, slot geometry.RectInt) (Vector, error) {
	roi, err := Crop(gray, binary, color, slot)
	if err != nil {
		return Vector{}, err
	}
	defer roi.Close()
	return Extract(roi)
}
