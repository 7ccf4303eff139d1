package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// ImageService prepares album gallery images for use as cover art.
//
// Gallery scans on the archive are often several thousand pixels wide; the
// service shrinks them to a sensible size and re-encodes them as JPEG so they
// can be saved next to the tracks or embedded in tags.
type ImageService struct {
	// Quality is the JPEG quality used when encoding (1-100).
	Quality int
}

// NewImageService creates a new ImageService with 90% JPEG quality.
func NewImageService() *ImageService {
	return &ImageService{Quality: 90}
}

// FitJPEG decodes data, scales it down to fit within maxSize x maxSize while
// preserving the aspect ratio, and returns it JPEG-encoded.
//
// Images that already fit are only re-encoded. A maxSize <= 0 disables scaling.
// The Catmull-Rom kernel is used for resampling.
func (s *ImageService) FitJPEG(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxSize)

	var out image.Image = img
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: s.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitWithin returns the largest dimensions with the same aspect ratio as
// width x height that fit in a maxSize square.
func fitWithin(width, height, maxSize int) (int, int) {
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return width, height
	}
	if width >= height {
		h := max(1, height*maxSize/width)
		return maxSize, h
	}
	w := max(1, width*maxSize/height)
	return w, maxSize
}
