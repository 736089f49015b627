package component

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/l1jgo/inkgraph/internal/core/arena"
)

// PaletteExt is the file extension of palette assets.
const PaletteExt = ".palette"

// RGBA is a non-premultiplied 8-bit color.
type RGBA struct {
	R, G, B, A uint8
}

func (c RGBA) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Palette is an asset holding named swatches that strokes in any graphic may
// reference.
type Palette struct {
	Name   string
	Folder arena.Handle[Folder]

	Swatches []*arena.Owned[Swatch]
}

func (p *Palette) AssetName() string                  { return p.Name }
func (p *Palette) SetAssetName(name string)           { p.Name = name }
func (p *Palette) Extension() string                  { return PaletteExt }
func (p *Palette) AssetFolder() *arena.Handle[Folder] { return &p.Folder }
func (p *Palette) EachOwned(fn func(arena.Ref))       { arena.Visit(p.Swatches, fn) }

// Swatch is one palette entry.
type Swatch struct {
	Name    string
	Palette arena.Handle[Palette]
	Color   RGBA
}

// SwatchRef points at a swatch that may live in another asset file.
type SwatchRef struct {
	Swatch   arena.Handle[Swatch]
	Palette  arena.Handle[Palette]
	Fallback RGBA
}

// Color is either a literal or a swatch reference with a fallback used when
// the swatch no longer resolves.
type Color struct {
	Literal RGBA
	Ref     *SwatchRef
}

// Solid returns a literal color.
func Solid(c RGBA) Color { return Color{Literal: c} }

// FromSwatch returns a color bound to a swatch.
func FromSwatch(s arena.Handle[Swatch], p arena.Handle[Palette], fallback RGBA) Color {
	return Color{Ref: &SwatchRef{Swatch: s, Palette: p, Fallback: fallback}}
}

// Resolve returns the effective color using lookup for swatch references.
func (c Color) Resolve(lookup func(arena.Handle[Swatch]) (*Swatch, bool)) RGBA {
	if c.Ref == nil {
		return c.Literal
	}
	if s, ok := lookup(c.Ref.Swatch); ok {
		return s.Color
	}
	return c.Ref.Fallback
}

// ParseRGBA parses "#rrggbb" or "#rrggbbaa". A missing alpha is opaque.
func ParseRGBA(s string) (RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return RGBA{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
