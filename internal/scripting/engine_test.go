package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/config"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/session"
)

func newEngine(t *testing.T) (*Engine, *session.Session) {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = filepath.Join(t.TempDir(), "proj")
	cfg.PageFile.DataSize = 64
	s, err := session.Create(cfg, zap.NewNop())
	require.NoError(t, err)
	e := NewEngine(s, zap.NewNop())
	t.Cleanup(func() {
		e.Close()
		s.Close()
	})
	return e, s
}

func global(e *Engine, name string) arena.Key {
	return arena.Key(lua.LVAsNumber(e.vm.GetGlobal(name)))
}

const buildScript = `
g = graphic_add(0, "Walk", 12, 12)
l = layer_add(g, "Ink")
f = frame_add(l, 3)
p = palette_add(root(), "Skin")
sw = swatch_add(p, "Base", "#ffcc99")
s1 = stroke_add(f, {0, 0, 1, 2, 2, 0.5}, 3, "#ff0000")
s2 = stroke_add(f, {1, 1, 1}, 1, {swatch = sw, fallback = "#000000"})
`

func TestScriptBuildsTree(t *testing.T) {
	e, s := newEngine(t)
	require.NoError(t, e.DoString(buildScript))
	assert.Equal(t, 7, s.History.Len())

	p := s.Project
	g, ok := p.Graphics.Get(p.Graphics.Handle(global(e, "g")))
	require.True(t, ok)
	assert.Equal(t, "Walk", g.Name)
	assert.Equal(t, float32(12), g.FPS)
	require.Len(t, g.Layers, 1)

	fr, ok := p.Frames.Get(p.Frames.Handle(global(e, "f")))
	require.True(t, ok)
	assert.Equal(t, int32(3), fr.Time)
	require.Len(t, fr.Strokes, 2)

	st, ok := p.Strokes.Get(p.Strokes.Handle(global(e, "s1")))
	require.True(t, ok)
	assert.Len(t, st.Points, 2)
	assert.Equal(t, float32(3), st.Width)
	assert.Equal(t, "#ff0000ff", st.Color.Literal.String())

	st2, ok := p.Strokes.Get(p.Strokes.Handle(global(e, "s2")))
	require.True(t, ok)
	require.NotNil(t, st2.Color.Ref)
	assert.Equal(t, global(e, "sw"), st2.Color.Ref.Swatch.Key)
	assert.Equal(t, "#ffcc99ff", st2.Color.Resolve(p.Swatches.Get).String())
}

func TestScriptUndoRedo(t *testing.T) {
	e, s := newEngine(t)
	require.NoError(t, e.DoString(buildScript))
	require.NoError(t, e.DoString(`
ok1 = undo()
ok2 = redo()
ok3 = redo()
`))
	assert.Equal(t, lua.LTrue, e.vm.GetGlobal("ok1"))
	assert.Equal(t, lua.LTrue, e.vm.GetGlobal("ok2"))
	assert.Equal(t, lua.LFalse, e.vm.GetGlobal("ok3"))
	assert.Equal(t, 7, s.History.Cursor())
}

func TestScriptRenameReorderDelete(t *testing.T) {
	e, s := newEngine(t)
	require.NoError(t, e.DoString(buildScript))
	require.NoError(t, e.DoString(`
rename("graphic", g, "Run")
rename("layer", l, "Lines")
reorder("stroke", s2, 0)
delete("swatch", sw)
`))
	p := s.Project
	g, _ := p.Graphics.Get(p.Graphics.Handle(global(e, "g")))
	assert.Equal(t, "Run", g.Name)
	l, _ := p.Layers.Get(p.Layers.Handle(global(e, "l")))
	assert.Equal(t, "Lines", l.Name)

	fr, _ := p.Frames.Get(p.Frames.Handle(global(e, "f")))
	require.Len(t, fr.Strokes, 2)
	assert.Equal(t, global(e, "s2"), fr.Strokes[0].Handle.Key)

	pl, _ := p.Palettes.Get(p.Palettes.Handle(global(e, "p")))
	assert.Empty(t, pl.Swatches)
	assert.Equal(t, 11, s.History.Len())
}

func TestScriptErrorsRaise(t *testing.T) {
	e, s := newEngine(t)
	for _, src := range []string{
		`layer_add(9999, "x")`,
		`delete("nonsense", 1)`,
		`rename("graphic", 9999, "x")`,
		`stroke_add(1, {}, 1, "#zz")`,
		`folder_add(777, "x")`,
		`graphic_add(0, "../outside")`,
	} {
		assert.Error(t, e.DoString(src), src)
	}
	assert.Equal(t, 0, s.History.Len())
}

func TestScriptSave(t *testing.T) {
	e, s := newEngine(t)
	require.NoError(t, e.DoString(buildScript+"\nproblems = save()\n"))
	assert.Equal(t, lua.LNumber(0), e.vm.GetGlobal("problems"))
	assert.Equal(t, 2, s.Store.OpenFiles())
}

func TestDoDirRunsInNameOrder(t *testing.T) {
	e, s := newEngine(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`rename("graphic", g, "Second")`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`g = graphic_add(0, "First")`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`error("not lua")`), 0o644))

	require.NoError(t, e.DoDir(dir))
	g, ok := s.Project.Graphics.Get(s.Project.Graphics.Handle(global(e, "g")))
	require.True(t, ok)
	assert.Equal(t, "Second", g.Name)

	assert.NoError(t, e.DoDir(filepath.Join(dir, "missing")))
}
