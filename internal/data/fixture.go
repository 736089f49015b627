package data

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
	"github.com/l1jgo/inkgraph/internal/project"
	"github.com/l1jgo/inkgraph/internal/session"
)

// Fixture describes a project tree in YAML. The top level is the root
// folder, so its name is ignored.
type Fixture struct {
	Name     string           `yaml:"name,omitempty"`
	Folders  []Fixture        `yaml:"folders,omitempty"`
	Graphics []GraphicFixture `yaml:"graphics,omitempty"`
	Palettes []PaletteFixture `yaml:"palettes,omitempty"`
}

type GraphicFixture struct {
	Name   string         `yaml:"name"`
	Length int32          `yaml:"length,omitempty"`
	FPS    float32        `yaml:"fps,omitempty"`
	Layers []LayerFixture `yaml:"layers,omitempty"`
}

type LayerFixture struct {
	Name    string         `yaml:"name"`
	Hidden  bool           `yaml:"hidden,omitempty"`
	Locked  bool           `yaml:"locked,omitempty"`
	Opacity *float32       `yaml:"opacity,omitempty"` // default 1
	Frames  []FrameFixture `yaml:"frames,omitempty"`
}

type FrameFixture struct {
	Time    int32           `yaml:"time"`
	Strokes []StrokeFixture `yaml:"strokes,omitempty"`
}

// StrokeFixture colors are either Color ("#rrggbb[aa]") or Swatch, a
// "palette/swatch" name pair resolved against the fixture's palettes, with
// Color then serving as the fallback.
type StrokeFixture struct {
	Width  float32      `yaml:"width,omitempty"`
	Filled bool         `yaml:"filled,omitempty"`
	Points [][3]float32 `yaml:"points,flow"`
	Color  string       `yaml:"color,omitempty"`
	Swatch string       `yaml:"swatch,omitempty"`
}

type PaletteFixture struct {
	Name     string          `yaml:"name"`
	Swatches []SwatchFixture `yaml:"swatches,omitempty"`
}

type SwatchFixture struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

func ParseFixture(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// seeder builds a fixture into a session as one composite action.
type seeder struct {
	s        *session.Session
	act      *undo.Action
	swatches map[string]arena.Handle[component.Swatch] // "palette/swatch"
}

// Seed adds everything fx describes below the root folder and records it
// as a single undoable action. On error nothing is left behind.
func Seed(s *session.Session, fx *Fixture) error {
	sd := &seeder{
		s:        s,
		act:      undo.New("seed"),
		swatches: make(map[string]arena.Handle[component.Swatch]),
	}
	root := s.Project.Root()
	// palettes first, so strokes anywhere can reference them
	folders, err := sd.folders(root, fx)
	if err == nil {
		err = sd.graphics(root, fx, folders)
	}
	if err != nil {
		sd.act.Undo()
		sd.act.Release()
		return err
	}
	return s.Do(sd.act, nil)
}

func (sd *seeder) add(act *undo.Action, err error) error {
	if err != nil {
		return err
	}
	sd.act.Append(act)
	return nil
}

// folders creates the folder tree with its palettes and returns the folder
// handles in fixture order, depth first.
func (sd *seeder) folders(at arena.Handle[component.Folder], fx *Fixture) ([]arena.Handle[component.Folder], error) {
	lib, p := sd.s.Assets, sd.s.Project
	for _, pf := range fx.Palettes {
		h, act, err := lib.AddPalette(at, &component.Palette{Name: pf.Name})
		if err := sd.add(act, err); err != nil {
			return nil, err
		}
		pl, _ := p.Palettes.Get(h)
		for _, sf := range pf.Swatches {
			c, err := component.ParseRGBA(sf.Color)
			if err != nil {
				return nil, fmt.Errorf("swatch %s/%s: %w", pf.Name, sf.Name, err)
			}
			sh, act, err := p.PaletteSwatches.AddAtIndex(h, &component.Swatch{Name: sf.Name, Color: c}, -1)
			if err := sd.add(act, err); err != nil {
				return nil, err
			}
			sd.swatches[pl.Name+"/"+sf.Name] = sh
		}
	}
	var out []arena.Handle[component.Folder]
	for i := range fx.Folders {
		sub := &fx.Folders[i]
		h, act, err := lib.AddFolder(at, sub.Name)
		if err := sd.add(act, err); err != nil {
			return nil, err
		}
		out = append(out, h)
		nested, err := sd.folders(h, sub)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// graphics walks the fixture in the same order as folders, consuming the
// handles it produced.
func (sd *seeder) graphics(at arena.Handle[component.Folder], fx *Fixture, folders []arena.Handle[component.Folder]) error {
	i := 0
	var walk func(at arena.Handle[component.Folder], fx *Fixture) error
	walk = func(at arena.Handle[component.Folder], fx *Fixture) error {
		for _, gf := range fx.Graphics {
			if err := sd.graphic(at, gf); err != nil {
				return err
			}
		}
		for j := range fx.Folders {
			h := folders[i]
			i++
			if err := walk(h, &fx.Folders[j]); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(at, fx)
}

func (sd *seeder) graphic(at arena.Handle[component.Folder], gf GraphicFixture) error {
	p := sd.s.Project
	g := &component.Graphic{Name: gf.Name, Length: gf.Length, FPS: gf.FPS}
	if g.FPS == 0 {
		g.FPS = 24
	}
	gh, act, err := sd.s.Assets.AddGraphic(at, g)
	if err := sd.add(act, err); err != nil {
		return err
	}
	for _, lf := range gf.Layers {
		layer := &component.Layer{Name: lf.Name, Hidden: lf.Hidden, Locked: lf.Locked, Opacity: 1}
		if lf.Opacity != nil {
			layer.Opacity = *lf.Opacity
		}
		lh, act, err := p.GraphicLayers.AddAtIndex(gh, layer, -1)
		if err := sd.add(act, err); err != nil {
			return err
		}
		for _, ff := range lf.Frames {
			fh, act, err := p.LayerFrames.AddAtIndex(lh, &component.Frame{Time: ff.Time}, -1)
			if err := sd.add(act, err); err != nil {
				return err
			}
			for _, sf := range ff.Strokes {
				st, err := sd.stroke(sf)
				if err != nil {
					return fmt.Errorf("graphic %s: %w", gf.Name, err)
				}
				_, act, err := p.FrameStrokes.AddAtIndex(fh, st, -1)
				if err := sd.add(act, err); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (sd *seeder) stroke(sf StrokeFixture) (*component.Stroke, error) {
	st := &component.Stroke{Width: sf.Width, Filled: sf.Filled}
	if st.Width == 0 {
		st.Width = 1
	}
	for _, pt := range sf.Points {
		st.Points = append(st.Points, component.Point{X: pt[0], Y: pt[1], Pressure: pt[2]})
	}
	var c component.RGBA
	if sf.Color != "" {
		var err error
		if c, err = component.ParseRGBA(sf.Color); err != nil {
			return nil, err
		}
	}
	if sf.Swatch == "" {
		st.Color = component.Solid(c)
		return st, nil
	}
	sh, ok := sd.swatches[sf.Swatch]
	if !ok {
		return nil, fmt.Errorf("unknown swatch %q", sf.Swatch)
	}
	sw, _ := sd.s.Project.Swatches.Get(sh)
	st.Color = component.FromSwatch(sh, sw.Palette, c)
	return st, nil
}

// Dump renders the live tree below the root folder as a fixture.
func Dump(p *project.Project) ([]byte, error) {
	fx := dumpFolder(p, p.Root(), 0)
	return yaml.Marshal(fx)
}

func dumpFolder(p *project.Project, h arena.Handle[component.Folder], depth int) Fixture {
	f, ok := p.Folders.Get(h)
	if !ok || depth > 256 {
		return Fixture{}
	}
	fx := Fixture{Name: f.Name}
	for _, o := range f.Palettes {
		if pl, ok := p.Palettes.Get(o.Handle); ok {
			fx.Palettes = append(fx.Palettes, dumpPalette(p, pl))
		}
	}
	for _, o := range f.Graphics {
		if g, ok := p.Graphics.Get(o.Handle); ok {
			fx.Graphics = append(fx.Graphics, dumpGraphic(p, g))
		}
	}
	for _, o := range f.Folders {
		fx.Folders = append(fx.Folders, dumpFolder(p, o.Handle, depth+1))
	}
	return fx
}

func dumpPalette(p *project.Project, pl *component.Palette) PaletteFixture {
	pf := PaletteFixture{Name: pl.Name}
	for _, o := range pl.Swatches {
		if sw, ok := p.Swatches.Get(o.Handle); ok {
			pf.Swatches = append(pf.Swatches, SwatchFixture{Name: sw.Name, Color: sw.Color.String()})
		}
	}
	return pf
}

func dumpGraphic(p *project.Project, g *component.Graphic) GraphicFixture {
	gf := GraphicFixture{Name: g.Name, Length: g.Length, FPS: g.FPS}
	for _, lo := range g.Layers {
		l, ok := p.Layers.Get(lo.Handle)
		if !ok {
			continue
		}
		lf := LayerFixture{Name: l.Name, Hidden: l.Hidden, Locked: l.Locked}
		if l.Opacity != 1 {
			op := l.Opacity
			lf.Opacity = &op
		}
		for _, fo := range l.Frames {
			fr, ok := p.Frames.Get(fo.Handle)
			if !ok {
				continue
			}
			ff := FrameFixture{Time: fr.Time}
			for _, so := range fr.Strokes {
				if st, ok := p.Strokes.Get(so.Handle); ok {
					ff.Strokes = append(ff.Strokes, dumpStroke(p, st))
				}
			}
			lf.Frames = append(lf.Frames, ff)
		}
		gf.Layers = append(gf.Layers, lf)
	}
	return gf
}

func dumpStroke(p *project.Project, st *component.Stroke) StrokeFixture {
	sf := StrokeFixture{Width: st.Width, Filled: st.Filled}
	for _, pt := range st.Points {
		sf.Points = append(sf.Points, [3]float32{pt.X, pt.Y, pt.Pressure})
	}
	if st.Color.Ref == nil {
		sf.Color = st.Color.Literal.String()
		return sf
	}
	sf.Color = st.Color.Ref.Fallback.String()
	sw, ok := p.Swatches.Get(st.Color.Ref.Swatch)
	if !ok {
		return sf
	}
	if pl, ok := p.Palettes.Get(sw.Palette); ok {
		sf.Swatch = strings.Join([]string{pl.Name, sw.Name}, "/")
	}
	return sf
}
