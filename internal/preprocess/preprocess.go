// Package preprocess derives the per-frame representations slot features are
// computed from: a contrast-normalized grayscale image and a binary clutter mask.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"parking-occupancy/internal/config"

	"gocv.io/x/gocv"
)

var (
	// ErrEmptyFrame is returned for a frame without pixels.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrNotColor is returned for a frame that is not 8-bit 3-channel BGR.
	ErrNotColor = errors.New("frame is not an 8-bit BGR image")
)

// Frame holds the derived representations of one camera frame.
// Both Mats have the size of the source frame and a single 8-bit channel.
type Frame struct {
	Gray   gocv.Mat // CLAHE-normalized, Gaussian-smoothed grayscale
	Binary gocv.Mat // Inverse adaptive threshold after median filtering (0 or 255)
}

// Close releases both Mats.
func (f *Frame) Close() {
	f.Gray.Close()
	f.Binary.Close()
}

// Preprocessor applies the same normalization to every frame.
// It keeps a CLAHE instance between frames and is not safe for concurrent use;
// give each worker its own Preprocessor.
type Preprocessor struct {
	params config.Preprocess
	clahe  gocv.CLAHE
}

// New creates a Preprocessor. Call Close when done.
func New(params config.Preprocess) *Preprocessor {
	return &Preprocessor{
		params: params,
		clahe:  gocv.NewCLAHEWithParams(params.CLAHEClipLimit, image.Point{params.CLAHETileSize, params.CLAHETileSize}),
	}
}

// Params returns the parameters the Preprocessor was created with.
func (p *Preprocessor) Params() config.Preprocess {
	return p.params
}

// Close releases the CLAHE instance.
func (p *Preprocessor) Close() error {
	return p.clahe.Close()
}

// Process converts a BGR frame into its normalized grayscale and binary mask.
//
// Steps:
//   - BGR to gray, then CLAHE to even out lighting across the lot
//   - Gaussian blur to suppress sensor noise before thresholding
//   - Inverse Gaussian adaptive threshold on the blurred image: pixels darker
//     than their neighborhood become foreground
//   - Median filter to remove salt-and-pepper speckle from the mask
func (p *Preprocessor) Process(src gocv.Mat) (*Frame, error) {
	if src.Empty() || src.Rows() == 0 || src.Cols() == 0 {
		return nil, ErrEmptyFrame
	}
	if src.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w (type %v, %d channels)", ErrNotColor, src.Type(), src.Channels())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	p.clahe.Apply(gray, &enhanced)

	k := p.params.BlurKernel
	blurred := gocv.NewMat()
	gocv.GaussianBlur(enhanced, &blurred, image.Point{k, k}, 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(blurred, &thresh, 255,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv,
		p.params.AdaptiveBlock, float32(p.params.AdaptiveC))

	binary := gocv.NewMat()
	gocv.MedianBlur(thresh, &binary, p.params.MedianKernel)

	return &Frame{Gray: blurred, Binary: binary}, nil
}
