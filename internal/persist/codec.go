package persist

import (
	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/record"
)

// Color variants.
const (
	colorLiteral = "literal"
	colorSwatch  = "swatch"
)

func packRGBA(c component.RGBA) uint64 {
	return uint64(c.R)<<24 | uint64(c.G)<<16 | uint64(c.B)<<8 | uint64(c.A)
}

func unpackRGBA(v uint64) component.RGBA {
	return component.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// ownedList encodes children as {key, page} pairs. Children without a page
// (they failed to write) are left out so the file never points at garbage.
func ownedList[T any](s *Store, kind arena.Kind, list []*arena.Owned[T]) record.Value {
	pages := s.bindings[kind].pages()
	vs := make([]record.Value, 0, len(list))
	for _, o := range list {
		loc, ok := pages.Get(o.Key)
		if !ok {
			continue
		}
		vs = append(vs, record.Owned(uint64(o.Key), loc.Page))
	}
	return record.List(vs...)
}

func encodeGraphic(s *Store, g *component.Graphic) *record.Document {
	return record.NewDocument().
		Set("name", record.String(g.Name)).
		Set("length", record.Int(int64(g.Length))).
		Set("fps", record.Float(float64(g.FPS))).
		Set("layers", ownedList(s, component.KindLayer, g.Layers))
}

func encodeLayer(s *Store, l *component.Layer) *record.Document {
	return record.NewDocument().
		Set("name", record.String(l.Name)).
		Set("hidden", record.Bool(l.Hidden)).
		Set("locked", record.Bool(l.Locked)).
		Set("opacity", record.Float(float64(l.Opacity))).
		Set("frames", ownedList(s, component.KindFrame, l.Frames))
}

func encodeFrame(s *Store, f *component.Frame) *record.Document {
	return record.NewDocument().
		Set("time", record.Int(int64(f.Time))).
		Set("strokes", ownedList(s, component.KindStroke, f.Strokes))
}

func encodeStroke(s *Store, st *component.Stroke) *record.Document {
	flat := make([]float32, 0, 3*len(st.Points))
	for _, pt := range st.Points {
		flat = append(flat, pt.X, pt.Y, pt.Pressure)
	}
	return record.NewDocument().
		Set("points", record.Bytes(record.PackFloats(flat))).
		Set("width", record.Float(float64(st.Width))).
		Set("filled", record.Bool(st.Filled)).
		Set("color", encodeColor(s, st.Color))
}

// encodeColor writes swatch references as {swatch key, palette key} so the
// loader can find the palette file holding the swatch.
func encodeColor(s *Store, c component.Color) record.Value {
	if c.Ref == nil {
		return record.Variant(colorLiteral, record.Uint(packRGBA(c.Literal)))
	}
	palette := c.Ref.Palette.Key
	if sw, ok := s.proj.Swatches.Get(c.Ref.Swatch); ok {
		palette = sw.Palette.Key
	}
	doc := record.NewDocument().
		Set("ref", record.RootRef(uint64(c.Ref.Swatch.Key), uint64(palette))).
		Set("fallback", record.Uint(packRGBA(c.Ref.Fallback)))
	return record.Variant(colorSwatch, record.Doc(doc))
}

func encodePalette(s *Store, pl *component.Palette) *record.Document {
	return record.NewDocument().
		Set("name", record.String(pl.Name)).
		Set("swatches", ownedList(s, component.KindSwatch, pl.Swatches))
}

func encodeSwatch(_ *Store, sw *component.Swatch) *record.Document {
	return record.NewDocument().
		Set("name", record.String(sw.Name)).
		Set("color", record.Uint(packRGBA(sw.Color)))
}
