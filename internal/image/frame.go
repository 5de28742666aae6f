// Package image provides frame loading and conversion to OpenCV matrices.
package image

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrFrameMissing is returned when a frame has no image file on disk.
	ErrFrameMissing = errors.New("frame image not found")
	// ErrFrameCorrupt is returned when an image file exists but cannot be decoded.
	ErrFrameCorrupt = errors.New("frame image cannot be decoded")
)

// Frame is one decoded camera image.
type Frame struct {
	ID   string   // Frame identifier (file name relative to the image directory)
	Path string   // Resolved file path
	Mat  gocv.Mat // 8-bit BGR pixels
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Mat.Cols()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Mat.Rows()
}

// Close releases the native pixel buffer.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Resolve returns the path of frame id inside dir, or ErrFrameMissing.
func Resolve(dir, id string) (string, error) {
	path := filepath.Join(dir, id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrFrameMissing, path)
		}
		return "", fmt.Errorf("failed to stat frame: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrFrameMissing, path)
	}
	return path, nil
}

// LoadFrame resolves and decodes frame id from dir.
func LoadFrame(dir, id string) (*Frame, error) {
	path, err := Resolve(dir, id)
	if err != nil {
		return nil, err
	}
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	f.ID = id
	return f, nil
}

// Load decodes an image file into a BGR frame.
func Load(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFrameMissing, path)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFrameCorrupt, path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrFrameCorrupt, path)
	}

	mat, err := ToMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", path, err)
	}
	return &Frame{ID: filepath.Base(path), Path: path, Mat: mat}, nil
}

// ToMat converts a Go image to an 8-bit 3-channel BGR OpenCV Mat.
// Alpha is discarded.
func ToMat(src image.Image) (gocv.Mat, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	}

	bgr := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		out := bgr[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			out[x*3+0] = row[x*4+2]
			out[x*3+1] = row[x*4+1]
			out[x*3+2] = row[x*4+0]
		}
	}

	view, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer view.Close()

	// Clone so the Mat owns its pixels rather than aliasing the Go slice.
	return view.Clone(), nil
}
