package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/retrosnap/internal/caption"
	"github.com/fpang/retrosnap/internal/session"
	"github.com/fpang/retrosnap/internal/source"
)

func TestPrintFilters(t *testing.T) {
	var buf bytes.Buffer
	if err := printFilters(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Fuji (default)", "B&W", "grayscale(1) contrast(1.2)", "Normal"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSnapOnce(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})

	enricher := caption.Func(func(context.Context, []byte) (string, error) {
		return "Weekend mood", nil
	})
	sess, err := session.New(source.NewStatic(img), enricher, session.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	st, err := snapOnce(context.Background(), sess)
	if err != nil {
		t.Fatalf("snapOnce() error = %v", err)
	}
	if st.Status != session.StatusCaptioned || st.Result.Caption != "Weekend mood" {
		t.Errorf("state = %v %q", st.Status, st.Result.Caption)
	}
}

func TestSnapOnceCancelled(t *testing.T) {
	enricher := caption.Func(func(ctx context.Context, _ []byte) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	sess, err := session.New(source.NewStatic(image.NewRGBA(image.Rect(0, 0, 50, 50))), enricher, session.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := snapOnce(ctx, sess); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestWriteArtifact(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	art := session.Artifact{Filename: "retro-snap-1700000000000.jpg", ContentType: "image/jpeg", Data: buf.Bytes()}

	dir := t.TempDir()
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"directory", dir, filepath.Join(dir, art.Filename)},
		{"explicit file", filepath.Join(dir, "mine.jpg"), filepath.Join(dir, "mine.jpg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := writeArtifact(tt.out, art)
			if err != nil {
				t.Fatalf("writeArtifact() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("path = %q, want %q", got, tt.want)
			}
			data, err := os.ReadFile(got)
			if err != nil || !bytes.Equal(data, art.Data) {
				t.Errorf("written data mismatch: %v", err)
			}
		})
	}

	if _, err := writeArtifact(filepath.Join(dir, "missing", "x.jpg"), art); err == nil {
		t.Error("expected error for missing parent directory")
	}
}
