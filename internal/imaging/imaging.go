// Package imaging recompresses oversized image uploads before storage.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	// MaxLongerEdge is the pixel bound applied to the longer image edge.
	MaxLongerEdge = 1200

	// Quality is the JPEG quality used when re-encoding.
	Quality = 80

	// Threshold is the byte size above which images are recompressed.
	Threshold = 1 << 20
)

// ShouldRecompress reports whether an upload should be recompressed:
// images over the threshold. PDFs and small images pass through untouched.
func ShouldRecompress(mime string, size int) bool {
	return strings.HasPrefix(mime, "image/") && size > Threshold
}

// Recompress decodes data, scales it down so the longer edge is at most
// MaxLongerEdge, and re-encodes as JPEG. Returns the new bytes and MIME
// type.
func Recompress(data []byte) ([]byte, string, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if longer := max(w, h); longer > MaxLongerEdge {
		scale := float64(MaxLongerEdge) / float64(longer)
		nw := int(float64(w) * scale)
		nh := int(float64(h) * scale)
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg (from %s): %w", format, err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
