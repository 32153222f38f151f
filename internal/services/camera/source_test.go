package camera

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "meal.jpg")
	if err := os.WriteFile(photo, []byte("jpeg-bytes"), 0644); err != nil {
		t.Fatalf("Failed to write photo: %v", err)
	}
	empty := filepath.Join(dir, "empty.jpg")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("Failed to write empty photo: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		wantOK bool
	}{
		{"existing file", photo, true},
		{"missing file", filepath.Join(dir, "nope.jpg"), false},
		{"empty file", empty, false},
		{"no path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok, err := FileSource{Path: tt.path}.Capture()
			if err != nil {
				t.Fatalf("Capture() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Capture() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && string(data) != "jpeg-bytes" {
				t.Errorf("Capture() data = %q", data)
			}
		})
	}
}

func TestFileSource_Directory(t *testing.T) {
	if _, _, err := (FileSource{Path: t.TempDir()}).Capture(); err == nil {
		t.Error("Expected an error when the path is a directory")
	}
}

func TestBytesSource(t *testing.T) {
	if _, ok, _ := BytesSource(nil).Capture(); ok {
		t.Error("Empty upload should count as a cancelled capture")
	}

	data, ok, err := BytesSource("img").Capture()
	if err != nil || !ok || string(data) != "img" {
		t.Errorf("Capture() = %q, %v, %v", data, ok, err)
	}
}
