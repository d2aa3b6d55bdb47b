package gallery

import (
	"testing"
)

func TestImageDimensions(t *testing.T) {
	data := pngBytes(t, 12, 7)

	w, h, err := ImageDimensions(data)
	if err != nil {
		t.Fatalf("ImageDimensions returned error: %v", err)
	}
	if w != 12 || h != 7 {
		t.Errorf("expected 12x7, got %dx%d", w, h)
	}

	if _, _, err := ImageDimensions([]byte("junk")); err == nil {
		t.Error("expected error for undecodable data")
	}
}

func TestResizeImage(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		maxSize        int
		wantW, wantH   int
	}{
		{"landscape shrinks", 100, 50, 20, 20, 10},
		{"portrait shrinks", 30, 60, 20, 10, 20},
		{"small image untouched", 10, 10, 20, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ResizeImage(pngBytes(t, tt.width, tt.height), tt.maxSize)
			if err != nil {
				t.Fatalf("ResizeImage returned error: %v", err)
			}
			w, h, err := ImageDimensions(out)
			if err != nil {
				t.Fatalf("decoding resized image: %v", err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestMakeThumbnailSize(t *testing.T) {
	src := pngBytes(t, 1000, 500)

	out, err := MakeThumbnail(src, 100)
	if err != nil {
		t.Fatalf("MakeThumbnail returned error: %v", err)
	}
	if w, _, _ := ImageDimensions(out); w != 100 {
		t.Errorf("expected thumbnail width 100, got %d", w)
	}

	out, err = MakeThumbnail(src, 0)
	if err != nil {
		t.Fatalf("MakeThumbnail returned error: %v", err)
	}
	if w, _, _ := ImageDimensions(out); w != DefaultThumbnailSize {
		t.Errorf("expected default thumbnail width %d, got %d", DefaultThumbnailSize, w)
	}
}
