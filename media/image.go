package media

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Image sizes, in pixels of width.
const (
	MaxWidth       = 1200
	ThumbnailWidth = 300
)

// Processed holds the encoded JPEGs of one upload.
type Processed struct {
	Full      []byte
	Thumbnail []byte
}

// ProcessImage decodes an upload, applies EXIF orientation, limits its
// width to MaxWidth and renders a ThumbnailWidth thumbnail.
func ProcessImage(r io.Reader) (*Processed, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() > MaxWidth {
		img = imaging.Resize(img, MaxWidth, 0, imaging.Lanczos)
	}
	thumb := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)

	var full, small bytes.Buffer
	if err := imaging.Encode(&full, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := imaging.Encode(&small, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return &Processed{Full: full.Bytes(), Thumbnail: small.Bytes()}, nil
}
