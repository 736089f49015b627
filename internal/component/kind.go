// Package component holds the entity data of an animation project. Structs
// are plain data; mutations go through edge and asset operations.
package component

import "github.com/l1jgo/inkgraph/internal/core/arena"

// Entity kinds. The numeric values are written into asset files and must not
// change.
const (
	KindFolder  arena.Kind = 1
	KindGraphic arena.Kind = 2
	KindLayer   arena.Kind = 3
	KindFrame   arena.Kind = 4
	KindStroke  arena.Kind = 5
	KindPalette arena.Kind = 6
	KindSwatch  arena.Kind = 7
	KindAudio   arena.Kind = 8
)

func init() {
	arena.RegisterKind(KindFolder, "folder")
	arena.RegisterKind(KindGraphic, "graphic")
	arena.RegisterKind(KindLayer, "layer")
	arena.RegisterKind(KindFrame, "frame")
	arena.RegisterKind(KindStroke, "stroke")
	arena.RegisterKind(KindPalette, "palette")
	arena.RegisterKind(KindSwatch, "swatch")
	arena.RegisterKind(KindAudio, "audio")
}

// Asset is a child of a folder that is also the root of its own file.
type Asset interface {
	AssetName() string
	SetAssetName(name string)
	Extension() string
	AssetFolder() *arena.Handle[Folder]
}

// Resource is a folder child backed by an externally authored file.
type Resource interface {
	ResourceName() string
	SetResourceName(name string)
	ResourceFolder() *arena.Handle[Folder]
}
