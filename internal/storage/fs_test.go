package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	if err := s.Put(ctx, "img_1_a.png", strings.NewReader("png-bytes"), "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, err := s.Get(ctx, "img_1_a.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "png-bytes" {
		t.Errorf("expected stored bytes, got %q", data)
	}

	if err := s.Delete(ctx, "img_1_a.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "img_1_a.png"); !errors.Is(err, ErrNotExist) {
		t.Errorf("expected ErrNotExist after delete, got %v", err)
	}
	if err := s.Delete(ctx, "img_1_a.png"); !errors.Is(err, ErrNotExist) {
		t.Errorf("expected ErrNotExist on second delete, got %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"img_1_abc.png", false},
		{"", true},
		{".", true},
		{"..", true},
		{"../etc/passwd", true},
		{"a/b.png", true},
		{`a\b.png`, true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	if err := s.Put(context.Background(), "../escape.png", strings.NewReader("x"), ""); err == nil {
		t.Error("expected traversal key to be rejected")
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("img_1_a.PNG"); got != "image/png" {
		t.Errorf("expected image/png, got %q", got)
	}
	if got := ContentType("blob"); got != "application/octet-stream" {
		t.Errorf("expected octet-stream fallback, got %q", got)
	}
}
