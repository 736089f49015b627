package component

import "github.com/l1jgo/inkgraph/internal/core/arena"

// Folder maps to a directory of the project. The project root is a folder
// with an empty name and no parent.
type Folder struct {
	Name   string
	Parent arena.Handle[Folder]

	Folders  []*arena.Owned[Folder]
	Graphics []*arena.Owned[Graphic]
	Palettes []*arena.Owned[Palette]
	Audio    []*arena.Owned[Audio]
}

func (f *Folder) EachOwned(fn func(arena.Ref)) {
	arena.Visit(f.Folders, fn)
	arena.Visit(f.Graphics, fn)
	arena.Visit(f.Palettes, fn)
	arena.Visit(f.Audio, fn)
}
