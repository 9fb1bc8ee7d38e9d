package filter

import (
	"image"
	"image/color"
	"testing"
)

func solid(c color.RGBA, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 0xff})
		}
	}
	return img
}

func TestCSS(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{Normal, "none"},
		{Fuji, "contrast(1.1) saturate(1.3) brightness(1.05) sepia(0.1) hue-rotate(-5deg)"},
		{BlackWhite, "grayscale(1) contrast(1.2)"},
		{Cool, "hue-rotate(15deg) contrast(1.1) saturate(0.8)"},
	}
	for _, tt := range tests {
		d, _ := Lookup(tt.id)
		if got := d.CSS(); got != tt.want {
			t.Errorf("%s CSS() = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestParseChainRoundTrip(t *testing.T) {
	for _, d := range All() {
		ops, err := ParseChain(d.CSS())
		if err != nil {
			t.Fatalf("%s: ParseChain error: %v", d.ID, err)
		}
		if len(ops) != len(d.Ops) {
			t.Fatalf("%s: got %d ops, want %d", d.ID, len(ops), len(d.Ops))
		}
		for i := range ops {
			if ops[i] != d.Ops[i] {
				t.Errorf("%s op %d = %+v, want %+v", d.ID, i, ops[i], d.Ops[i])
			}
		}
	}
}

func TestParseChainRejectsMalformed(t *testing.T) {
	for _, in := range []string{"blur(2px)", "contrast", "contrast(abc)", "(1)"} {
		if _, err := ParseChain(in); err == nil {
			t.Errorf("ParseChain(%q) expected error", in)
		}
	}
}

func TestApplyNormalIsIdentity(t *testing.T) {
	img := gradient(16, 16)
	want := append([]uint8(nil), img.Pix...)

	d, _ := Lookup(Normal)
	d.Apply(img)

	for i := range want {
		if img.Pix[i] != want[i] {
			t.Fatalf("pixel byte %d changed: %d -> %d", i, want[i], img.Pix[i])
		}
	}
}

func TestApplyGrayscaleDesaturates(t *testing.T) {
	img := gradient(32, 32)
	d, _ := Lookup(BlackWhite)
	d.Apply(img)

	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b := img.Pix[i], img.Pix[i+1], img.Pix[i+2]
		if r != g || g != b {
			t.Fatalf("pixel %d not gray: (%d,%d,%d)", i/4, r, g, b)
		}
	}
}

func TestApplySingleOps(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		in   color.RGBA
		want color.RGBA
	}{
		{"brightness halves", Op{KindBrightness, 0.5}, color.RGBA{200, 100, 50, 255}, color.RGBA{100, 50, 25, 255}},
		{"brightness clamps", Op{KindBrightness, 2}, color.RGBA{200, 100, 0, 255}, color.RGBA{255, 200, 0, 255}},
		{"contrast keeps mid gray", Op{KindContrast, 1.6}, color.RGBA{128, 128, 128, 255}, color.RGBA{128, 128, 128, 255}},
		{"contrast zero flattens", Op{KindContrast, 0}, color.RGBA{0, 255, 30, 255}, color.RGBA{128, 128, 128, 255}},
		{"saturate zero on gray", Op{KindSaturate, 0}, color.RGBA{90, 90, 90, 255}, color.RGBA{90, 90, 90, 255}},
		{"hue rotate zero", Op{KindHueRotate, 0}, color.RGBA{10, 120, 240, 255}, color.RGBA{10, 120, 240, 255}},
		{"sepia zero", Op{KindSepia, 0}, color.RGBA{10, 120, 240, 255}, color.RGBA{10, 120, 240, 255}},
		{"grayscale white", Op{KindGrayscale, 1}, color.RGBA{255, 255, 255, 255}, color.RGBA{255, 255, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solid(tt.in, 2, 2)
			Descriptor{Ops: []Op{tt.op}}.Apply(img)
			if got := img.RGBAAt(1, 1); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplySkipsTransparentPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	d, _ := Lookup(Dramatic)
	d.Apply(img)
	if got := img.RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Errorf("transparent pixel changed to %v", got)
	}
}
