package project

import (
	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
)

// The helpers below find the root asset whose file holds an object. They
// follow stored parent handles, so a detached object still reports the asset
// it was last linked into.

func GraphicRoot(h arena.Handle[component.Graphic]) arena.RootRef {
	return arena.RootRef{Kind: h.Kind, Key: h.Key}
}

func PaletteRoot(h arena.Handle[component.Palette]) arena.RootRef {
	return arena.RootRef{Kind: h.Kind, Key: h.Key}
}

func (p *Project) LayerRoot(l *component.Layer) (arena.RootRef, bool) {
	if !p.Graphics.Has(l.Graphic.Key) {
		return arena.RootRef{}, false
	}
	return GraphicRoot(l.Graphic), true
}

func (p *Project) FrameRoot(f *component.Frame) (arena.RootRef, bool) {
	l, ok := p.Layers.Get(f.Layer)
	if !ok {
		return arena.RootRef{}, false
	}
	return p.LayerRoot(l)
}

func (p *Project) StrokeRoot(s *component.Stroke) (arena.RootRef, bool) {
	f, ok := p.Frames.Get(s.Frame)
	if !ok {
		return arena.RootRef{}, false
	}
	return p.FrameRoot(f)
}

func (p *Project) SwatchRoot(s *component.Swatch) (arena.RootRef, bool) {
	if !p.Palettes.Has(s.Palette.Key) {
		return arena.RootRef{}, false
	}
	return PaletteRoot(s.Palette), true
}

// AssetLinked reports whether an asset is reachable from the project root.
func (p *Project) AssetLinked(root arena.RootRef) bool {
	switch root.Kind {
	case component.KindGraphic:
		g, ok := p.Graphics.Get(p.Graphics.Handle(root.Key))
		return ok && p.linkedIn(g.Folder, root.Key, func(f *component.Folder) []arena.Key { return keysOf(f.Graphics) })
	case component.KindPalette:
		pl, ok := p.Palettes.Get(p.Palettes.Handle(root.Key))
		return ok && p.linkedIn(pl.Folder, root.Key, func(f *component.Folder) []arena.Key { return keysOf(f.Palettes) })
	}
	return false
}

func (p *Project) linkedIn(folder arena.Handle[component.Folder], k arena.Key, list func(*component.Folder) []arena.Key) bool {
	f, ok := p.Folders.Get(folder)
	if !ok || !p.Attached(folder) {
		return false
	}
	for _, c := range list(f) {
		if c == k {
			return true
		}
	}
	return false
}

func keysOf[T any](list []*arena.Owned[T]) []arena.Key {
	out := make([]arena.Key, len(list))
	for i, o := range list {
		out[i] = o.Key
	}
	return out
}
