package persist

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/system"
	"github.com/l1jgo/inkgraph/internal/pagefile"
	"github.com/l1jgo/inkgraph/internal/record"
)

// ref names one object of any paged kind.
type ref struct {
	kind arena.Kind
	key  arena.Key
}

// binding is the kind-erased view of one paged arena used by save. It is a
// system.System so the runner orders the per-kind passes.
type binding interface {
	system.System
	kind() arena.Kind
	pages() *arena.PageIndex
	live(k arena.Key) bool
	touch(k arena.Key)
	// rootOf returns the asset whose file should hold k. ok is false when k
	// is not reachable from a linked asset and must not be written.
	rootOf(k arena.Key) (arena.RootRef, bool)
	children(k arena.Key) []ref
	encode(k arena.Key) (*record.Document, error)
}

// kindStore adapts an Arena[T] to binding.
type kindStore[T any] struct {
	s      *Store
	phase  system.Phase
	arena  *arena.Arena[T]
	root   func(k arena.Key, obj *T) (arena.RootRef, bool)
	kids   func(obj *T) []ref
	encodr func(s *Store, obj *T) *record.Document
}

func (b *kindStore[T]) Phase() system.Phase        { return b.phase }
func (b *kindStore[T]) kind() arena.Kind           { return b.arena.Kind() }
func (b *kindStore[T]) pages() *arena.PageIndex    { return b.arena.Pages() }
func (b *kindStore[T]) live(k arena.Key) bool      { return b.arena.Has(k) }
func (b *kindStore[T]) touch(k arena.Key)          { b.arena.Touch(k) }
func (b *kindStore[T]) get(k arena.Key) (*T, bool) { return b.arena.Get(b.arena.Handle(k)) }

func (b *kindStore[T]) rootOf(k arena.Key) (arena.RootRef, bool) {
	obj, ok := b.get(k)
	if !ok {
		return arena.RootRef{}, false
	}
	root, ok := b.root(k, obj)
	if !ok || !b.s.proj.AssetLinked(root) {
		return arena.RootRef{}, false
	}
	return root, true
}

func (b *kindStore[T]) children(k arena.Key) []ref {
	obj, ok := b.get(k)
	if !ok || b.kids == nil {
		return nil
	}
	return b.kids(obj)
}

func (b *kindStore[T]) encode(k arena.Key) (*record.Document, error) {
	obj, ok := b.get(k)
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", b.kind(), k, arena.ErrNotFound)
	}
	return b.encodr(b.s, obj), nil
}

// Update runs this kind's share of a save: deletions first, then every
// created or modified object that is reachable from a linked asset. The
// error combines the write failures of this pass, children written on
// behalf of a container included; each of them is also in the report.
func (b *kindStore[T]) Update() error {
	s := b.s
	before := len(s.failed)
	for _, k := range b.arena.Deleted() {
		s.forget(b, k)
	}
	for _, k := range b.arena.Modified() {
		r := ref{kind: b.kind(), key: k}
		if _, done := s.written[r]; done {
			continue
		}
		root, ok := b.rootOf(k)
		if !ok {
			continue
		}
		s.writeTree(r, root)
	}
	var err error
	for _, f := range s.failed[before:] {
		err = multierr.Append(err, fmt.Errorf("%s %d: %w", f.kind, f.key, f.err))
	}
	return err
}

func refs[T any](kind arena.Kind, list []*arena.Owned[T]) []ref {
	out := make([]ref, len(list))
	for i, o := range list {
		out[i] = ref{kind: kind, key: o.Key}
	}
	return out
}

// bind registers one binding per paged kind.
func (s *Store) bind() {
	p := s.proj
	s.bindings = make(map[arena.Kind]binding, 6)
	s.runner = system.NewRunner()
	add := func(b binding) {
		s.bindings[b.kind()] = b
		s.runner.Register(b)
	}

	add(&kindStore[component.Stroke]{
		s: s, phase: system.PhaseLeaf, arena: p.Strokes,
		root: func(k arena.Key, st *component.Stroke) (arena.RootRef, bool) {
			if p.FrameStrokes.IndexOf(p.Strokes.Handle(k)) < 0 {
				return arena.RootRef{}, false
			}
			return p.StrokeRoot(st)
		},
		encodr: encodeStroke,
	})
	add(&kindStore[component.Swatch]{
		s: s, phase: system.PhaseLeaf, arena: p.Swatches,
		root: func(k arena.Key, sw *component.Swatch) (arena.RootRef, bool) {
			if p.PaletteSwatches.IndexOf(p.Swatches.Handle(k)) < 0 {
				return arena.RootRef{}, false
			}
			return p.SwatchRoot(sw)
		},
		encodr: encodeSwatch,
	})
	add(&kindStore[component.Frame]{
		s: s, phase: system.PhaseBranch, arena: p.Frames,
		root: func(k arena.Key, f *component.Frame) (arena.RootRef, bool) {
			if p.LayerFrames.IndexOf(p.Frames.Handle(k)) < 0 {
				return arena.RootRef{}, false
			}
			return p.FrameRoot(f)
		},
		kids:   func(f *component.Frame) []ref { return refs(component.KindStroke, f.Strokes) },
		encodr: encodeFrame,
	})
	add(&kindStore[component.Layer]{
		s: s, phase: system.PhaseTrunk, arena: p.Layers,
		root: func(k arena.Key, l *component.Layer) (arena.RootRef, bool) {
			if p.GraphicLayers.IndexOf(p.Layers.Handle(k)) < 0 {
				return arena.RootRef{}, false
			}
			return p.LayerRoot(l)
		},
		kids:   func(l *component.Layer) []ref { return refs(component.KindFrame, l.Frames) },
		encodr: encodeLayer,
	})
	add(&kindStore[component.Graphic]{
		s: s, phase: system.PhaseRoot, arena: p.Graphics,
		root: func(k arena.Key, _ *component.Graphic) (arena.RootRef, bool) {
			return arena.RootRef{Kind: component.KindGraphic, Key: k}, true
		},
		kids:   func(g *component.Graphic) []ref { return refs(component.KindLayer, g.Layers) },
		encodr: encodeGraphic,
	})
	add(&kindStore[component.Palette]{
		s: s, phase: system.PhaseRoot, arena: p.Palettes,
		root: func(k arena.Key, _ *component.Palette) (arena.RootRef, bool) {
			return arena.RootRef{Kind: component.KindPalette, Key: k}, true
		},
		kids:   func(pl *component.Palette) []ref { return refs(component.KindSwatch, pl.Swatches) },
		encodr: encodePalette,
	})
}

// forget releases the pages of a deleted object. When the object was an
// asset root its whole file goes away.
func (s *Store) forget(b binding, k arena.Key) {
	loc, ok := b.pages().Get(k)
	b.pages().Delete(k)
	root := arena.RootRef{Kind: b.kind(), Key: k}
	if af, isRoot := s.files[root]; isRoot {
		if err := af.pf.Close(); err != nil {
			s.log.Warn("close asset file", zap.String("path", af.rel), zap.Error(err))
		}
		delete(s.files, root)
		if err := s.removeFile(af.rel); err != nil {
			s.report.add(Diagnostic{Path: af.rel, Kind: b.kind(), Key: k, Offset: -1, Err: err})
		}
		s.dropRoot(root)
		return
	}
	if !ok {
		return
	}
	af, open := s.files[loc.Root]
	if !open || !s.proj.AssetLinked(loc.Root) {
		// the file went away with its asset
		return
	}
	if err := af.pf.FreeChain(pagefile.Ptr(loc.Page)); err != nil {
		s.report.add(Diagnostic{Path: af.rel, Kind: b.kind(), Key: k, Offset: int64(loc.Page), Err: err})
		return
	}
	s.touched[loc.Root] = struct{}{}
	s.report.Freed++
}
