// Package imaging normalizes uploaded clothing photos.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// Size limits for stored photos.
const (
	MaxDimension   = 1280
	ThumbDimension = 320
	JPEGQuality    = 82
	MaxUploadBytes = 8 << 20
)

// ErrUnsupported is returned for anything that does not sniff as JPEG or PNG.
var ErrUnsupported = errors.New("unsupported image format")

// Photo is a re-encoded upload: the full-size listing photo and a square
// thumbnail for the browse grid. Both are JPEG.
type Photo struct {
	Data  []byte
	Thumb []byte
	MIME  string
}

// Process sniffs the upload, rejecting anything but JPEG and PNG, then
// re-encodes it at most MaxDimension on its longer side and cuts a
// ThumbDimension square thumbnail from its center.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("image larger than %d bytes", MaxUploadBytes)
	}

	switch detected := http.DetectContentType(data); detected {
	case "image/jpeg", "image/png":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	full, err := encode(fit(img, MaxDimension))
	if err != nil {
		return nil, err
	}
	thumb, err := encode(square(img, ThumbDimension))
	if err != nil {
		return nil, err
	}
	return &Photo{Data: full, Thumb: thumb, MIME: "image/jpeg"}, nil
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales img down so neither side exceeds maxDim, keeping the aspect
// ratio. Smaller images are returned as is.
func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	if w > h {
		w, h = maxDim, max(1, h*maxDim/w)
	} else {
		w, h = max(1, w*maxDim/h), maxDim
	}
	return scale(img, b, w, h)
}

// square crops the largest centered square from img and scales it to side.
func square(img image.Image, side int) image.Image {
	b := img.Bounds()
	edge := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-edge)/2
	y0 := b.Min.Y + (b.Dy()-edge)/2
	crop := image.Rect(x0, y0, x0+edge, y0+edge)

	if edge < side {
		side = edge
	}
	return scale(img, crop, side, side)
}

func scale(img image.Image, src image.Rectangle, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}
