package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
	"github.com/l1jgo/inkgraph/internal/edge"
	"github.com/l1jgo/inkgraph/internal/session"
)

// Engine wraps a gopher-lua VM bound to an edit session. Every editing
// function it exposes pushes exactly one action onto the session history.
// Single-goroutine access only, like the session itself.
type Engine struct {
	vm  *lua.LState
	s   *session.Session
	log *zap.Logger
}

// NewEngine creates a Lua VM with the editing API installed.
func NewEngine(s *session.Session, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, s: s, log: log}
	e.register()
	return e
}

func (e *Engine) register() {
	for name, fn := range map[string]lua.LGFunction{
		"root":        e.luaRoot,
		"folder_add":  e.luaFolderAdd,
		"graphic_add": e.luaGraphicAdd,
		"layer_add":   e.luaLayerAdd,
		"frame_add":   e.luaFrameAdd,
		"stroke_add":  e.luaStrokeAdd,
		"palette_add": e.luaPaletteAdd,
		"swatch_add":  e.luaSwatchAdd,
		"rename":      e.luaRename,
		"delete":      e.luaDelete,
		"reorder":     e.luaReorder,
		"undo":        e.luaUndo,
		"redo":        e.luaRedo,
		"save":        e.luaSave,
		"log":         e.luaLog,
	} {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// DoFile runs one script.
func (e *Engine) DoFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}
	e.log.Debug("ran lua script", zap.String("file", path))
	return nil
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// DoDir runs every .lua file of a directory in name order. A missing
// directory is not an error.
func (e *Engine) DoDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.DoFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// push records an edit or raises it as a Lua error.
func (e *Engine) push(L *lua.LState, act *undo.Action, err error) {
	if err := e.s.Do(act, err); err != nil {
		L.RaiseError("%v", err)
	}
}

func checkKey(L *lua.LState, n int) arena.Key {
	v := L.CheckNumber(n)
	if v < 0 {
		L.ArgError(n, "key must not be negative")
	}
	return arena.Key(v)
}

func checkColor(L *lua.LState, n int) component.RGBA {
	c, err := component.ParseRGBA(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return c
}

func (e *Engine) folder(L *lua.LState, n int) arena.Handle[component.Folder] {
	k := arena.Key(L.OptNumber(n, 0))
	if k == 0 {
		return e.s.Project.Root()
	}
	return e.s.Project.Folders.Handle(k)
}

func (e *Engine) luaRoot(L *lua.LState) int {
	L.Push(lua.LNumber(e.s.Project.Root().Key))
	return 1
}

// folder_add(parent, name) -> key; parent 0 is the root folder.
func (e *Engine) luaFolderAdd(L *lua.LState) int {
	h, act, err := e.s.Assets.AddFolder(e.folder(L, 1), L.OptString(2, ""))
	e.push(L, act, err)
	L.Push(lua.LNumber(h.Key))
	return 1
}

// graphic_add(folder, name, length, fps) -> key
func (e *Engine) luaGraphicAdd(L *lua.LState) int {
	g := &component.Graphic{
		Name:   L.OptString(2, ""),
		Length: int32(L.OptInt(3, 24)),
		FPS:    float32(L.OptNumber(4, 24)),
	}
	h, act, err := e.s.Assets.AddGraphic(e.folder(L, 1), g)
	e.push(L, act, err)
	L.Push(lua.LNumber(h.Key))
	return 1
}

// layer_add(graphic, name) -> key
func (e *Engine) luaLayerAdd(L *lua.LState) int {
	p := e.s.Project
	parent := p.Graphics.Handle(checkKey(L, 1))
	h, act, err := p.GraphicLayers.AddAtIndex(parent, &component.Layer{Name: L.OptString(2, "Layer"), Opacity: 1}, -1)
	e.push(L, act, err)
	L.Push(lua.LNumber(h.Key))
	return 1
}

// frame_add(layer, time) -> key
func (e *Engine) luaFrameAdd(L *lua.LState) int {
	p := e.s.Project
	parent := p.Layers.Handle(checkKey(L, 1))
	h, act, err := p.LayerFrames.AddAtIndex(parent, &component.Frame{Time: int32(L.OptInt(2, 0))}, -1)
	e.push(L, act, err)
	L.Push(lua.LNumber(h.Key))
	return 1
}

// stroke_add(frame, {x, y, pressure, ...}, width, color) -> key
//
// color is "#rrggbb[aa]" or {swatch = key, fallback = "#rrggbb[aa]"}.
func (e *Engine) luaStrokeAdd(L *lua.LState) int {
	p := e.s.Project
	parent := p.Frames.Handle(checkKey(L, 1))
	st := &component.Stroke{Width: float32(L.OptNumber(3, 1))}
	if pts, ok := L.Get(2).(*lua.LTable); ok {
		n := pts.Len()
		for i := 1; i+2 <= n; i += 3 {
			st.Points = append(st.Points, component.Point{
				X:        float32(lua.LVAsNumber(pts.RawGetInt(i))),
				Y:        float32(lua.LVAsNumber(pts.RawGetInt(i + 1))),
				Pressure: float32(lua.LVAsNumber(pts.RawGetInt(i + 2))),
			})
		}
	}
	switch c := L.Get(4).(type) {
	case lua.LString:
		st.Color = component.Solid(checkColor(L, 4))
	case *lua.LTable:
		sh := p.Swatches.Handle(arena.Key(lua.LVAsNumber(c.RawGetString("swatch"))))
		sw, ok := p.Swatches.Get(sh)
		if !ok {
			L.ArgError(4, "unknown swatch")
		}
		fb := sw.Color
		if s, ok := c.RawGetString("fallback").(lua.LString); ok {
			v, err := component.ParseRGBA(string(s))
			if err != nil {
				L.ArgError(4, err.Error())
			}
			fb = v
		}
		st.Color = component.FromSwatch(sh, sw.Palette, fb)
	}
	h, act, err := p.FrameStrokes.AddAtIndex(parent, st, -1)
	e.push(L, act, err)
	L.Push(lua.LNumber(h.Key))
	return 1
}

// palette_add(folder, name) -> key
func (e *Engine) luaPaletteAdd(L *lua.LState) int {
	h, act, err := e.s.Assets.AddPalette(e.folder(L, 1), &component.Palette{Name: L.OptString(2, "")})
	e.push(L, act, err)
	L.Push(lua.LNumber(h.Key))
	return 1
}

// swatch_add(palette, name, color) -> key
func (e *Engine) luaSwatchAdd(L *lua.LState) int {
	p := e.s.Project
	parent := p.Palettes.Handle(checkKey(L, 1))
	sw := &component.Swatch{Name: L.OptString(2, "Swatch"), Color: checkColor(L, 3)}
	h, act, err := p.PaletteSwatches.AddAtIndex(parent, sw, -1)
	e.push(L, act, err)
	L.Push(lua.LNumber(h.Key))
	return 1
}

// rename(kind, key, name)
func (e *Engine) luaRename(L *lua.LState) int {
	kind, k, name := L.CheckString(1), checkKey(L, 2), L.CheckString(3)
	p, lib := e.s.Project, e.s.Assets
	var (
		act *undo.Action
		err error
	)
	switch kind {
	case "graphic":
		act, err = lib.RenameGraphic(p.Graphics.Handle(k), name)
	case "palette":
		act, err = lib.RenamePalette(p.Palettes.Handle(k), name)
	case "audio":
		act, err = lib.RenameResource(p.Audio.Handle(k), name)
	case "layer":
		act, err = setName(p.Layers, k, name, func(l *component.Layer) *string { return &l.Name })
	case "swatch":
		act, err = setName(p.Swatches, k, name, func(s *component.Swatch) *string { return &s.Name })
	default:
		L.ArgError(1, "cannot rename "+kind)
	}
	e.push(L, act, err)
	return 0
}

// delete(kind, key)
func (e *Engine) luaDelete(L *lua.LState) int {
	kind, k := L.CheckString(1), checkKey(L, 2)
	p, lib := e.s.Project, e.s.Assets
	var (
		act *undo.Action
		err error
	)
	switch kind {
	case "folder":
		act, err = lib.DeleteFolder(p.Folders.Handle(k))
	case "graphic":
		act, err = lib.DeleteGraphic(p.Graphics.Handle(k))
	case "palette":
		act, err = lib.DeletePalette(p.Palettes.Handle(k))
	case "audio":
		act, err = lib.DeleteResource(p.Audio.Handle(k))
	case "layer":
		act, err = p.GraphicLayers.Delete(p.Layers.Handle(k))
	case "frame":
		act, err = p.LayerFrames.Delete(p.Frames.Handle(k))
	case "stroke":
		act, err = p.FrameStrokes.Delete(p.Strokes.Handle(k))
	case "swatch":
		act, err = p.PaletteSwatches.Delete(p.Swatches.Handle(k))
	default:
		L.ArgError(1, "cannot delete "+kind)
	}
	e.push(L, act, err)
	return 0
}

// reorder(kind, key, index)
func (e *Engine) luaReorder(L *lua.LState) int {
	kind, k, at := L.CheckString(1), checkKey(L, 2), L.CheckInt(3)
	p := e.s.Project
	var (
		act *undo.Action
		err error
	)
	switch kind {
	case "layer":
		act, err = p.GraphicLayers.SetIndex(p.Layers.Handle(k), at)
	case "frame":
		act, err = p.LayerFrames.SetIndex(p.Frames.Handle(k), at)
	case "stroke":
		act, err = p.FrameStrokes.SetIndex(p.Strokes.Handle(k), at)
	case "swatch":
		act, err = p.PaletteSwatches.SetIndex(p.Swatches.Handle(k), at)
	default:
		L.ArgError(1, "cannot reorder "+kind)
	}
	e.push(L, act, err)
	return 0
}

func (e *Engine) luaUndo(L *lua.LState) int {
	L.Push(lua.LBool(e.s.Undo()))
	return 1
}

func (e *Engine) luaRedo(L *lua.LState) int {
	L.Push(lua.LBool(e.s.Redo()))
	return 1
}

// save() -> number of problems
func (e *Engine) luaSave(L *lua.LState) int {
	rep, err := e.s.Save()
	if err != nil {
		L.RaiseError("save: %v", err)
	}
	for _, d := range rep.Diagnostics {
		e.log.Warn("save problem", zap.Error(d))
	}
	L.Push(lua.LNumber(len(rep.Diagnostics)))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func setName[T any](a *arena.Arena[T], k arena.Key, name string, field func(*T) *string) (*undo.Action, error) {
	return edge.SetField(a, a.Handle(k), "name", field, name)
}
