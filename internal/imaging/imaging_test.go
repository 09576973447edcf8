package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{200, 40, 40, 255})
		}
	}
	return img
}

func createTestJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, testImage(w, h))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestProcessJPEG(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(100, 100)))
	if err != nil {
		t.Fatalf("Process JPEG: %v", err)
	}
	if photo.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", photo.MIME)
	}
	if len(photo.Data) == 0 || len(photo.Thumb) == 0 {
		t.Error("expected photo and thumbnail data")
	}
}

func TestProcessPNGReencodedAsJPEG(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestPNG(100, 100)))
	if err != nil {
		t.Fatalf("Process PNG: %v", err)
	}
	if _, format, _ := image.Decode(bytes.NewReader(photo.Data)); format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
}

func TestProcessDownscaleKeepsAspect(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(2560, 1280)))
	if err != nil {
		t.Fatalf("Process large image: %v", err)
	}

	w, h := decodeSize(t, photo.Data)
	if w != MaxDimension || h != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, w, h)
	}
}

func TestThumbnailIsSquare(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(900, 600)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	w, h := decodeSize(t, photo.Thumb)
	if w != ThumbDimension || h != ThumbDimension {
		t.Errorf("expected %dx%d thumbnail, got %dx%d", ThumbDimension, ThumbDimension, w, h)
	}
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	photo, err := Process(bytes.NewReader(createTestJPEG(50, 40)))
	if err != nil {
		t.Fatalf("Process small image: %v", err)
	}

	if w, h := decodeSize(t, photo.Data); w != 50 || h != 40 {
		t.Errorf("small image should not be resized: got %dx%d", w, h)
	}
	if w, h := decodeSize(t, photo.Thumb); w != 40 || h != 40 {
		t.Errorf("small thumbnail should be cropped only: got %dx%d", w, h)
	}
}

func TestProcessRejectsOtherFormats(t *testing.T) {
	for name, data := range map[string][]byte{
		"text": []byte("not an image"),
		"gif":  []byte("GIF89a..."),
	} {
		if _, err := Process(bytes.NewReader(data)); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: got %v, want ErrUnsupported", name, err)
		}
	}
}
