// Package project owns every arena of an animation project and the ownership
// edges between them.
package project

import (
	"path"
	"strings"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/edge"
)

// maxDepth bounds parent walks so a corrupted parent chain cannot loop.
const maxDepth = 256

// Project is the in-memory object graph. Accessed only from the edit session
// goroutine; read-only consumers on other goroutines must not run while an
// edit is in progress.
type Project struct {
	Registry *arena.Registry

	Folders  *arena.Arena[component.Folder]
	Graphics *arena.Arena[component.Graphic]
	Layers   *arena.Arena[component.Layer]
	Frames   *arena.Arena[component.Frame]
	Strokes  *arena.Arena[component.Stroke]
	Palettes *arena.Arena[component.Palette]
	Swatches *arena.Arena[component.Swatch]
	Audio    *arena.Arena[component.Audio]

	SubFolders      *edge.Edge[component.Folder, component.Folder]
	FolderGraphics  *edge.Edge[component.Folder, component.Graphic]
	FolderPalettes  *edge.Edge[component.Folder, component.Palette]
	FolderAudio     *edge.Edge[component.Folder, component.Audio]
	GraphicLayers   *edge.Edge[component.Graphic, component.Layer]
	LayerFrames     *edge.Edge[component.Layer, component.Frame]
	FrameStrokes    *edge.Edge[component.Frame, component.Stroke]
	PaletteSwatches *edge.Edge[component.Palette, component.Swatch]

	root *arena.Owned[component.Folder]
}

// New creates a project with an empty root folder.
func New() *Project {
	p := NewEmpty()
	p.SetRoot(p.Folders.Add(&component.Folder{}))
	return p
}

// NewEmpty creates a project without a root folder; loaders call SetRoot.
func NewEmpty() *Project {
	p := &Project{
		Registry: arena.NewRegistry(),
		Folders:  arena.New[component.Folder](component.KindFolder),
		Graphics: arena.New[component.Graphic](component.KindGraphic),
		Layers:   arena.New[component.Layer](component.KindLayer),
		Frames:   arena.New[component.Frame](component.KindFrame),
		Strokes:  arena.New[component.Stroke](component.KindStroke),
		Palettes: arena.New[component.Palette](component.KindPalette),
		Swatches: arena.New[component.Swatch](component.KindSwatch),
		Audio:    arena.New[component.Audio](component.KindAudio),
	}
	p.Registry.Register(p.Folders)
	p.Registry.Register(p.Graphics)
	p.Registry.Register(p.Layers)
	p.Registry.Register(p.Frames)
	p.Registry.Register(p.Strokes)
	p.Registry.Register(p.Palettes)
	p.Registry.Register(p.Swatches)
	p.Registry.Register(p.Audio)

	p.SubFolders = &edge.Edge[component.Folder, component.Folder]{
		Name: "folder", Parents: p.Folders, Children: p.Folders,
		List:   func(f *component.Folder) *[]*arena.Owned[component.Folder] { return &f.Folders },
		Parent: func(f *component.Folder) *arena.Handle[component.Folder] { return &f.Parent },
	}
	p.FolderGraphics = &edge.Edge[component.Folder, component.Graphic]{
		Name: "graphic", Parents: p.Folders, Children: p.Graphics,
		List:   func(f *component.Folder) *[]*arena.Owned[component.Graphic] { return &f.Graphics },
		Parent: func(g *component.Graphic) *arena.Handle[component.Folder] { return &g.Folder },
	}
	p.FolderPalettes = &edge.Edge[component.Folder, component.Palette]{
		Name: "palette", Parents: p.Folders, Children: p.Palettes,
		List:   func(f *component.Folder) *[]*arena.Owned[component.Palette] { return &f.Palettes },
		Parent: func(pl *component.Palette) *arena.Handle[component.Folder] { return &pl.Folder },
	}
	p.FolderAudio = &edge.Edge[component.Folder, component.Audio]{
		Name: "audio", Parents: p.Folders, Children: p.Audio,
		List:   func(f *component.Folder) *[]*arena.Owned[component.Audio] { return &f.Audio },
		Parent: func(a *component.Audio) *arena.Handle[component.Folder] { return &a.Folder },
	}
	p.GraphicLayers = &edge.Edge[component.Graphic, component.Layer]{
		Name: "layer", Parents: p.Graphics, Children: p.Layers,
		List:   func(g *component.Graphic) *[]*arena.Owned[component.Layer] { return &g.Layers },
		Parent: func(l *component.Layer) *arena.Handle[component.Graphic] { return &l.Graphic },
	}
	p.LayerFrames = &edge.Edge[component.Layer, component.Frame]{
		Name: "frame", Parents: p.Layers, Children: p.Frames,
		List:   func(l *component.Layer) *[]*arena.Owned[component.Frame] { return &l.Frames },
		Parent: func(f *component.Frame) *arena.Handle[component.Layer] { return &f.Layer },
	}
	p.FrameStrokes = &edge.Edge[component.Frame, component.Stroke]{
		Name: "stroke", Parents: p.Frames, Children: p.Strokes,
		List:   func(f *component.Frame) *[]*arena.Owned[component.Stroke] { return &f.Strokes },
		Parent: func(s *component.Stroke) *arena.Handle[component.Frame] { return &s.Frame },
	}
	p.PaletteSwatches = &edge.Edge[component.Palette, component.Swatch]{
		Name: "swatch", Parents: p.Palettes, Children: p.Swatches,
		List:   func(pl *component.Palette) *[]*arena.Owned[component.Swatch] { return &pl.Swatches },
		Parent: func(s *component.Swatch) *arena.Handle[component.Palette] { return &s.Palette },
	}
	return p
}

// SetRoot installs the root folder.
func (p *Project) SetRoot(o *arena.Owned[component.Folder]) { p.root = o }

// Root returns the root folder handle.
func (p *Project) Root() arena.Handle[component.Folder] {
	if p.root == nil {
		return arena.Handle[component.Folder]{}
	}
	return p.root.Handle
}

// FolderPath returns the slash separated path of a folder relative to the
// project root. The root itself is "".
func (p *Project) FolderPath(h arena.Handle[component.Folder]) (string, bool) {
	var parts []string
	root := p.Root()
	for depth := 0; depth < maxDepth; depth++ {
		if h == root {
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
			return path.Join(parts...), true
		}
		f, ok := p.Folders.Get(h)
		if !ok || f.Parent.IsZero() {
			return "", false
		}
		parts = append(parts, f.Name)
		h = f.Parent
	}
	return "", false
}

// AssetPath returns the relative file path of an asset in its folder.
func (p *Project) AssetPath(a component.Asset) (string, bool) {
	dir, ok := p.FolderPath(*a.AssetFolder())
	if !ok {
		return "", false
	}
	return path.Join(dir, a.AssetName()+a.Extension()), true
}

// FolderByPath resolves a relative folder path.
func (p *Project) FolderByPath(rel string) (arena.Handle[component.Folder], bool) {
	h := p.Root()
	rel = strings.Trim(path.Clean("/"+rel), "/")
	if rel == "" {
		return h, p.Folders.Has(h.Key)
	}
	for _, name := range strings.Split(rel, "/") {
		f, ok := p.Folders.Get(h)
		if !ok {
			return arena.Handle[component.Folder]{}, false
		}
		found := false
		for _, sub := range f.Folders {
			if s, ok := p.Folders.Get(sub.Handle); ok && s.Name == name {
				h, found = sub.Handle, true
				break
			}
		}
		if !found {
			return arena.Handle[component.Folder]{}, false
		}
	}
	return h, true
}

// Attached reports whether a folder is reachable from the root through the
// parents' child lists, not only through stored parent handles.
func (p *Project) Attached(h arena.Handle[component.Folder]) bool {
	root := p.Root()
	for depth := 0; depth < maxDepth; depth++ {
		if h == root {
			return p.Folders.Has(h.Key)
		}
		f, ok := p.Folders.Get(h)
		if !ok {
			return false
		}
		parent, ok := p.Folders.Get(f.Parent)
		if !ok {
			return false
		}
		linked := false
		for _, sub := range parent.Folders {
			if sub.Key == h.Key {
				linked = true
				break
			}
		}
		if !linked {
			return false
		}
		h = f.Parent
	}
	return false
}
