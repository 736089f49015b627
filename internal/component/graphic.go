package component

import "github.com/l1jgo/inkgraph/internal/core/arena"

// GraphicExt is the file extension of graphic assets.
const GraphicExt = ".graphic"

// Graphic is an animation clip asset: a stack of layers over a timeline.
type Graphic struct {
	Name   string
	Folder arena.Handle[Folder]
	Length int32 // frames
	FPS    float32

	Layers []*arena.Owned[Layer]
}

func (g *Graphic) AssetName() string                  { return g.Name }
func (g *Graphic) SetAssetName(name string)           { g.Name = name }
func (g *Graphic) Extension() string                  { return GraphicExt }
func (g *Graphic) AssetFolder() *arena.Handle[Folder] { return &g.Folder }
func (g *Graphic) EachOwned(fn func(arena.Ref))       { arena.Visit(g.Layers, fn) }

// Layer is one track of a graphic.
type Layer struct {
	Name    string
	Graphic arena.Handle[Graphic]
	Hidden  bool
	Locked  bool
	Opacity float32

	Frames []*arena.Owned[Frame]
}

func (l *Layer) EachOwned(fn func(arena.Ref)) { arena.Visit(l.Frames, fn) }

// Frame is a keyframe of a layer, placed at Time on the timeline.
type Frame struct {
	Time  int32
	Layer arena.Handle[Layer]

	Strokes []*arena.Owned[Stroke]
}

func (f *Frame) EachOwned(fn func(arena.Ref)) { arena.Visit(f.Strokes, fn) }

// Point is one sample of a stroke.
type Point struct {
	X, Y     float32
	Pressure float32
}

// Stroke is a drawn or filled shape on a frame.
type Stroke struct {
	Frame  arena.Handle[Frame]
	Points []Point
	Width  float32
	Filled bool
	Color  Color
}
