package filter

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// Kind is a single pixel transform in an export chain.
type Kind int

const (
	KindContrast Kind = iota
	KindSaturate
	KindBrightness
	KindGrayscale
	KindSepia
	KindHueRotate
)

var kindNames = map[Kind]string{
	KindContrast:   "contrast",
	KindSaturate:   "saturate",
	KindBrightness: "brightness",
	KindGrayscale:  "grayscale",
	KindSepia:      "sepia",
	KindHueRotate:  "hue-rotate",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Op is one step of an export chain. Amount is a multiplier for every kind
// except KindHueRotate, where it is an angle in degrees.
type Op struct {
	Kind   Kind
	Amount float64
}

// String renders the op in CSS filter-function syntax.
func (o Op) String() string {
	v := strconv.FormatFloat(o.Amount, 'f', -1, 64)
	if o.Kind == KindHueRotate {
		return fmt.Sprintf("%s(%sdeg)", o.Kind, v)
	}
	return fmt.Sprintf("%s(%s)", o.Kind, v)
}

// CSS renders the export chain as a CSS filter value ("none" when empty).
func (d Descriptor) CSS() string {
	if len(d.Ops) == 0 {
		return "none"
	}
	parts := make([]string, len(d.Ops))
	for i, op := range d.Ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, " ")
}

// ParseChain parses a CSS filter value produced by Descriptor.CSS.
func ParseChain(s string) ([]Op, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return nil, nil
	}

	var ops []Op
	for _, tok := range strings.Fields(s) {
		open := strings.IndexByte(tok, '(')
		if open <= 0 || !strings.HasSuffix(tok, ")") {
			return nil, fmt.Errorf("malformed filter function %q", tok)
		}
		name, arg := tok[:open], tok[open+1:len(tok)-1]

		kind, ok := kindByName(name)
		if !ok {
			return nil, fmt.Errorf("unsupported filter function %q", name)
		}
		if kind == KindHueRotate {
			arg = strings.TrimSuffix(arg, "deg")
		}
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in %q: %w", tok, err)
		}
		ops = append(ops, Op{Kind: kind, Amount: v})
	}
	return ops, nil
}

func kindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Apply runs the export chain over img in place. Every op works on sRGB
// channels normalised to [0,1] and clamps its output before the next op runs,
// matching how a 2D canvas evaluates a filter list.
func (d Descriptor) Apply(img *image.RGBA) {
	if len(d.Ops) == 0 {
		return
	}

	mats := make([]matrix, len(d.Ops))
	for i, op := range d.Ops {
		mats[i] = op.matrix()
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			a := row[i+3]
			if a == 0 {
				continue
			}
			r, g, bl := unpremultiply(row[i], a), unpremultiply(row[i+1], a), unpremultiply(row[i+2], a)
			for _, m := range mats {
				r, g, bl = m.apply(r, g, bl)
			}
			row[i] = premultiply(r, a)
			row[i+1] = premultiply(g, a)
			row[i+2] = premultiply(bl, a)
		}
	}
}

// matrix is a 3x3 colour matrix plus a constant offset per channel.
type matrix struct {
	m   [3][3]float64
	off float64
}

func (m matrix) apply(r, g, b float64) (float64, float64, float64) {
	nr := m.m[0][0]*r + m.m[0][1]*g + m.m[0][2]*b + m.off
	ng := m.m[1][0]*r + m.m[1][1]*g + m.m[1][2]*b + m.off
	nb := m.m[2][0]*r + m.m[2][1]*g + m.m[2][2]*b + m.off
	return clamp01(nr), clamp01(ng), clamp01(nb)
}

func (o Op) matrix() matrix {
	a := o.Amount
	switch o.Kind {
	case KindContrast:
		return matrix{m: diag(a), off: 0.5 - 0.5*a}
	case KindBrightness:
		return matrix{m: diag(a)}
	case KindSaturate:
		return matrix{m: [3][3]float64{
			{0.213 + 0.787*a, 0.715 - 0.715*a, 0.072 - 0.072*a},
			{0.213 - 0.213*a, 0.715 + 0.285*a, 0.072 - 0.072*a},
			{0.213 - 0.213*a, 0.715 - 0.715*a, 0.072 + 0.928*a},
		}}
	case KindGrayscale:
		inv := 1 - math.Min(a, 1)
		return matrix{m: [3][3]float64{
			{0.2126 + 0.7874*inv, 0.7152 - 0.7152*inv, 0.0722 - 0.0722*inv},
			{0.2126 - 0.2126*inv, 0.7152 + 0.2848*inv, 0.0722 - 0.0722*inv},
			{0.2126 - 0.2126*inv, 0.7152 - 0.7152*inv, 0.0722 + 0.9278*inv},
		}}
	case KindSepia:
		inv := 1 - math.Min(a, 1)
		return matrix{m: [3][3]float64{
			{0.393 + 0.607*inv, 0.769 - 0.769*inv, 0.189 - 0.189*inv},
			{0.349 - 0.349*inv, 0.686 + 0.314*inv, 0.168 - 0.168*inv},
			{0.272 - 0.272*inv, 0.534 - 0.534*inv, 0.131 + 0.869*inv},
		}}
	case KindHueRotate:
		rad := a * math.Pi / 180
		c, s := math.Cos(rad), math.Sin(rad)
		return matrix{m: [3][3]float64{
			{0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928},
			{0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283},
			{0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072},
		}}
	}
	return matrix{m: diag(1)}
}

func diag(v float64) [3][3]float64 {
	return [3][3]float64{{v, 0, 0}, {0, v, 0}, {0, 0, v}}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func unpremultiply(c, a uint8) float64 {
	if a == 0xff {
		return float64(c) / 255
	}
	return clamp01(float64(c) / float64(a))
}

func premultiply(v float64, a uint8) uint8 {
	return uint8(math.Round(v * float64(a)))
}
