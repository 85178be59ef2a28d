package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docvoice/docvoice/internal/config"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := newLocalStore(dir, nil)
	if err != nil {
		t.Fatalf("newLocalStore() error = %v", err)
	}

	ctx := context.Background()
	body := "chapter one"
	location, err := store.Save(ctx, "manual.txt", strings.NewReader(body), int64(len(body)), "text/plain")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if want := filepath.Join(dir, "manual.txt"); location != want {
		t.Errorf("Save() location = %q, want %q", location, want)
	}

	rc, err := store.Open(ctx, "manual.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != body {
		t.Errorf("stored content = %q, want %q", data, body)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"manual.txt", "manual.txt"},
		{"../../etc/passwd", "passwd"},
		{"dir/sub/file.pdf", "file.pdf"},
		{".", "unnamed"},
		{"..", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSelectsLocalWhenS3Disabled(t *testing.T) {
	store, err := New(config.S3Config{LocalDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if store.Kind() != "local" {
		t.Errorf("Kind() = %q, want %q", store.Kind(), "local")
	}
}

func TestNewSelectsS3WhenConfigured(t *testing.T) {
	store, err := New(config.S3Config{
		Endpoint:  "minio.internal:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "docvoice",
		Region:    "us-east-1",
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if store.Kind() != "s3" {
		t.Errorf("Kind() = %q, want %q", store.Kind(), "s3")
	}
}
