package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/blumotif/folio/internal/blobstore"
	"github.com/blumotif/folio/internal/site"
)

func pdfFile(n int) blobstore.File {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return blobstore.File{Name: "doc.pdf", MIME: "application/pdf", Data: data}
}

func TestUploadBindsTopLevelField(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	ref := FieldRef{Section: "hero", LeafField: "profileImage"}
	key, err := fx.editor.Upload(ctx, fx.token, ref, pdfFile(1024), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if key == "" {
		t.Fatal("no key returned")
	}

	// Remote document carries the key immediately, without Save.
	raw, _ := fx.kv.Get(ctx, site.SectionPath("hero"))
	var doc map[string]string
	_ = json.Unmarshal(raw, &doc)
	if doc["profileImage"] != key {
		t.Errorf("remote field = %q, want %q", doc["profileImage"], key)
	}

	// Buffer matches without becoming dirty.
	buf := fx.editor.Buffer("hero")
	if string(buf["profileImage"]) != `"`+key+`"` {
		t.Errorf("buffer field = %s", buf["profileImage"])
	}
	if fx.editor.Dirty() {
		t.Error("upload marked the editor dirty")
	}

	// The key resolves back to content.
	url, err := fx.blobs.Resolve(ctx, key)
	if err != nil || url == "" {
		t.Fatalf("resolve = %q, %v", url, err)
	}
}

func TestUploadBindsArrayElement(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_ = fx.kv.Set(ctx, site.SectionPath("testimonials"), json.RawMessage(
		`{"title":"T","testimonials":[{"name":"A","avatar":""},{"name":"B","avatar":""}]}`))

	ref := FieldRef{Section: "testimonials", ArrayField: "testimonials", Index: 1, LeafField: "avatar"}
	key, err := fx.editor.Upload(ctx, fx.token, ref, pdfFile(512), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	raw, _ := fx.kv.Get(ctx, site.SectionPath("testimonials"))
	var doc struct {
		Title        string             `json:"title"`
		Testimonials []site.Testimonial `json:"testimonials"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Title != "T" {
		t.Error("sibling field lost")
	}
	if doc.Testimonials[1].Avatar != key {
		t.Errorf("element avatar = %q, want %q", doc.Testimonials[1].Avatar, key)
	}
	if doc.Testimonials[0].Name != "A" || doc.Testimonials[0].Avatar != "" {
		t.Error("other array element disturbed")
	}
}

func TestUploadLargeFileChunks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	ref := FieldRef{Section: "resume", LeafField: "cvUrl"}
	key, err := fx.editor.Upload(ctx, fx.token, ref, pdfFile(6<<20), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasSuffix(key, blobstore.ChunkedSuffix) {
		t.Fatalf("6 MiB upload not chunked: %s", key)
	}

	url, err := fx.blobs.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, data, err := blobstore.DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data) != 6<<20 {
		t.Errorf("round trip len = %d", len(data))
	}
}

func TestUploadValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	ref := FieldRef{Section: "hero", LeafField: "profileImage"}

	cases := []struct {
		name string
		file blobstore.File
	}{
		{"too large", pdfFileSized(MaxUploadSize + 1)},
		{"bad type", blobstore.File{MIME: "text/plain", Data: []byte("x")}},
	}
	for _, tc := range cases {
		_, err := fx.editor.Upload(ctx, fx.token, ref, tc.file, nil)
		if _, ok := err.(*ValidationError); !ok {
			t.Errorf("%s: err = %v, want ValidationError", tc.name, err)
		}
	}
}

func pdfFileSized(n int) blobstore.File {
	return blobstore.File{Name: "big.pdf", MIME: "application/pdf", Data: make([]byte, n)}
}

func TestUploadRecompressesLargeImage(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// A large, poorly-compressible PNG over the 1 MiB recompression bound.
	img := image.NewRGBA(image.Rect(0, 0, 2000, 1500))
	for y := 0; y < 1500; y++ {
		for x := 0; x < 2000; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * y), G: uint8(x ^ y), B: uint8(x + y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.Len() <= 1<<20 {
		t.Skipf("fixture png too small to trigger recompression: %d", buf.Len())
	}

	ref := FieldRef{Section: "about", LeafField: "image"}
	key, err := fx.editor.Upload(ctx, fx.token, ref,
		blobstore.File{Name: "photo.png", MIME: "image/png", Data: buf.Bytes()}, nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	url, err := fx.blobs.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mime, data, err := blobstore.DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("stored mime = %s, want image/jpeg", mime)
	}

	stored, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode stored image: %v", err)
	}
	if stored.Bounds().Dx() > 1200 || stored.Bounds().Dy() > 1200 {
		t.Errorf("stored dimensions %v exceed the bound", stored.Bounds())
	}
}

func TestFieldRefValidate(t *testing.T) {
	tests := []struct {
		ref     FieldRef
		wantErr bool
	}{
		{FieldRef{Section: "hero", LeafField: "profileImage"}, false},
		{FieldRef{Section: "testimonials", ArrayField: "testimonials", Index: 2, LeafField: "avatar"}, false},
		{FieldRef{Section: "bogus", LeafField: "x"}, true},
		{FieldRef{Section: "hero"}, true},
		{FieldRef{Section: "hero", LeafField: "x", Index: 3}, true},
		{FieldRef{Section: "hero", ArrayField: "a", Index: -1, LeafField: "x"}, true},
	}
	for _, tt := range tests {
		err := tt.ref.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v, wantErr %v", tt.ref, err, tt.wantErr)
		}
	}
}

func TestFieldRefStoragePath(t *testing.T) {
	r := FieldRef{Section: "hero", LeafField: "profileImage"}
	if got := r.StoragePath(); got != "hero/profileImage" {
		t.Errorf("path = %s", got)
	}

	r = FieldRef{Section: "testimonials", ArrayField: "testimonials", Index: 3, LeafField: "avatar"}
	if got := r.StoragePath(); got != "testimonials/testimonials/3/avatar" {
		t.Errorf("path = %s", got)
	}
}
