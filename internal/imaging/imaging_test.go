package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestShouldRecompress(t *testing.T) {
	tests := []struct {
		mime string
		size int
		want bool
	}{
		{"image/png", Threshold + 1, true},
		{"image/jpeg", Threshold + 1, true},
		{"image/png", Threshold, false},
		{"application/pdf", 10 << 20, false},
		{"text/plain", 10 << 20, false},
	}
	for _, tt := range tests {
		if got := ShouldRecompress(tt.mime, tt.size); got != tt.want {
			t.Errorf("ShouldRecompress(%q, %d) = %v, want %v", tt.mime, tt.size, got, tt.want)
		}
	}
}

func TestRecompressScalesDown(t *testing.T) {
	data := encodePNG(t, 2400, 1200)

	out, mime, err := Recompress(data)
	if err != nil {
		t.Fatalf("recompress: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %s", mime)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != MaxLongerEdge || b.Dy() != MaxLongerEdge/2 {
		t.Errorf("scaled to %dx%d, want %dx%d", b.Dx(), b.Dy(), MaxLongerEdge, MaxLongerEdge/2)
	}
}

func TestRecompressKeepsSmallDimensions(t *testing.T) {
	data := encodePNG(t, 640, 480)

	out, _, err := Recompress(data)
	if err != nil {
		t.Fatalf("recompress: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("dimensions changed to %dx%d", b.Dx(), b.Dy())
	}
}

func TestRecompressPortrait(t *testing.T) {
	data := encodePNG(t, 600, 2400)

	out, _, err := Recompress(data)
	if err != nil {
		t.Fatalf("recompress: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := img.Bounds()
	if b.Dy() != MaxLongerEdge || b.Dx() != MaxLongerEdge/4 {
		t.Errorf("scaled to %dx%d", b.Dx(), b.Dy())
	}
}

func TestRecompressGarbage(t *testing.T) {
	if _, _, err := Recompress([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}
