// Package filter holds the fixed catalog of film-stock filters and the pixel
// transforms they apply to exported captures.
//
// Each filter carries two renditions of the same look: a display class used by
// preview surfaces, and an ordered chain of export ops applied to the captured
// square before compositing.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies a filter in the catalog.
type ID string

// Filter identifiers, in catalog order.
const (
	Normal     ID = "Normal"
	Fuji       ID = "Fuji"
	Ricoh      ID = "Ricoh"
	Vintage    ID = "Vintage"
	BlackWhite ID = "B&W"
	Sepia      ID = "Sepia"
	Cool       ID = "Cool"
	Warm       ID = "Warm"
	Dramatic   ID = "Dramatic"
)

// Default is the filter a new session starts with.
const Default = Fuji

// ErrUnknownFilter is returned when an identifier is not registered in the catalog.
var ErrUnknownFilter = errors.New("unknown filter")

// Descriptor describes a single filter.
type Descriptor struct {
	ID ID

	// DisplayClass is the preview rendition (utility-class syntax) used by
	// surfaces that style a live preview rather than transform pixels.
	DisplayClass string

	// Ops is the export chain, applied in order.
	Ops []Op
}

var order = []ID{Normal, Fuji, Ricoh, Vintage, BlackWhite, Sepia, Cool, Warm, Dramatic}

var catalog = map[ID]Descriptor{
	Normal: {
		ID: Normal,
	},
	Fuji: {
		ID:           Fuji,
		DisplayClass: "contrast-[1.1] saturate-[1.3] brightness-[1.05] sepia-[0.1] hue-rotate-[-5deg]",
		Ops: []Op{
			{Kind: KindContrast, Amount: 1.1},
			{Kind: KindSaturate, Amount: 1.3},
			{Kind: KindBrightness, Amount: 1.05},
			{Kind: KindSepia, Amount: 0.1},
			{Kind: KindHueRotate, Amount: -5},
		},
	},
	Ricoh: {
		ID:           Ricoh,
		DisplayClass: "grayscale contrast-[1.6] brightness-[0.9] sepia-[0.1]",
		Ops: []Op{
			{Kind: KindGrayscale, Amount: 1},
			{Kind: KindContrast, Amount: 1.6},
			{Kind: KindBrightness, Amount: 0.9},
			{Kind: KindSepia, Amount: 0.1},
		},
	},
	Vintage: {
		ID:           Vintage,
		DisplayClass: "sepia-[.3] contrast-[1.1] brightness-[1.1] saturate-[0.8]",
		Ops: []Op{
			{Kind: KindSepia, Amount: 0.3},
			{Kind: KindContrast, Amount: 1.1},
			{Kind: KindBrightness, Amount: 1.1},
			{Kind: KindSaturate, Amount: 0.8},
		},
	},
	BlackWhite: {
		ID:           BlackWhite,
		DisplayClass: "grayscale contrast-[1.2]",
		Ops: []Op{
			{Kind: KindGrayscale, Amount: 1},
			{Kind: KindContrast, Amount: 1.2},
		},
	},
	Sepia: {
		ID:           Sepia,
		DisplayClass: "sepia contrast-[0.9] brightness-[0.9]",
		Ops: []Op{
			{Kind: KindSepia, Amount: 1},
			{Kind: KindContrast, Amount: 0.9},
			{Kind: KindBrightness, Amount: 0.9},
		},
	},
	Cool: {
		ID:           Cool,
		DisplayClass: "hue-rotate-15 contrast-[1.1] saturate-[0.8]",
		Ops: []Op{
			{Kind: KindHueRotate, Amount: 15},
			{Kind: KindContrast, Amount: 1.1},
			{Kind: KindSaturate, Amount: 0.8},
		},
	},
	Warm: {
		ID:           Warm,
		DisplayClass: "sepia-[.2] hue-rotate-[-10deg] saturate-[1.2]",
		Ops: []Op{
			{Kind: KindSepia, Amount: 0.2},
			{Kind: KindHueRotate, Amount: -10},
			{Kind: KindSaturate, Amount: 1.2},
		},
	},
	Dramatic: {
		ID:           Dramatic,
		DisplayClass: "contrast-[1.5] saturate-[1.1] brightness-[0.9]",
		Ops: []Op{
			{Kind: KindContrast, Amount: 1.5},
			{Kind: KindSaturate, Amount: 1.1},
			{Kind: KindBrightness, Amount: 0.9},
		},
	},
}

// Lookup returns the descriptor registered for id.
func Lookup(id ID) (Descriptor, error) {
	d, ok := catalog[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownFilter, string(id))
	}
	return d, nil
}

// All returns every descriptor in catalog order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(order))
	for _, id := range order {
		out = append(out, catalog[id])
	}
	return out
}

// Parse resolves a user-supplied filter name. Matching is case-insensitive and
// accepts "bw" as an alias for B&W so the name survives shells and query strings.
func Parse(name string) (ID, error) {
	n := strings.TrimSpace(name)
	if strings.EqualFold(n, "bw") {
		return BlackWhite, nil
	}
	for _, id := range order {
		if strings.EqualFold(n, string(id)) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}
