package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/config"
	"github.com/l1jgo/inkgraph/internal/session"
)

const walkFixture = `
palettes:
  - name: Skin
    swatches:
      - {name: Base, color: "#ffcc99"}
      - {name: Shade, color: "#cc9966"}
folders:
  - name: Scenes
    graphics:
      - name: Walk
        length: 12
        layers:
          - name: Ink
            frames:
              - time: 0
                strokes:
                  - points: [[0, 0, 1], [4, 2, 0.5]]
                    width: 2
                    color: "#000000"
                    swatch: Skin/Shade
              - time: 6
                strokes:
                  - points: [[1, 1, 1]]
                    color: "#ff0000"
          - name: Paper
            hidden: true
            opacity: 0.5
    folders:
      - name: Props
`

func newSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = filepath.Join(t.TempDir(), "proj")
	cfg.PageFile.DataSize = 64
	s, err := session.Create(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseFixture(t *testing.T) {
	fx, err := ParseFixture([]byte(walkFixture))
	require.NoError(t, err)

	require.Len(t, fx.Palettes, 1)
	assert.Len(t, fx.Palettes[0].Swatches, 2)
	require.Len(t, fx.Folders, 1)
	scenes := fx.Folders[0]
	assert.Equal(t, "Scenes", scenes.Name)
	require.Len(t, scenes.Graphics, 1)
	walk := scenes.Graphics[0]
	assert.Equal(t, int32(12), walk.Length)
	assert.Zero(t, walk.FPS)
	require.Len(t, walk.Layers, 2)
	assert.Nil(t, walk.Layers[0].Opacity)
	require.NotNil(t, walk.Layers[1].Opacity)
	assert.Equal(t, float32(0.5), *walk.Layers[1].Opacity)
	assert.Equal(t, [3]float32{4, 2, 0.5}, walk.Layers[0].Frames[0].Strokes[0].Points[1])
}

func TestParseFixtureRejectsGarbage(t *testing.T) {
	_, err := ParseFixture([]byte("folders: {name: [unclosed"))
	assert.Error(t, err)
}

func TestLoadFixtureMissingFile(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSeedIsOneAction(t *testing.T) {
	s := newSession(t)
	fx, err := ParseFixture([]byte(walkFixture))
	require.NoError(t, err)

	require.NoError(t, Seed(s, fx))
	assert.Equal(t, 1, s.History.Len())

	root, ok := s.Project.Folders.Get(s.Project.Root())
	require.True(t, ok)
	assert.Len(t, root.Folders, 1)
	assert.Len(t, root.Palettes, 1)

	require.True(t, s.Undo())
	assert.Empty(t, root.Folders)
	assert.Empty(t, root.Palettes)

	require.True(t, s.Redo())
	assert.Len(t, root.Folders, 1)
	assert.Len(t, root.Palettes, 1)
}

func TestSeedBindsSwatch(t *testing.T) {
	s := newSession(t)
	fx, err := ParseFixture([]byte(walkFixture))
	require.NoError(t, err)
	require.NoError(t, Seed(s, fx))

	p := s.Project
	root, _ := p.Folders.Get(p.Root())
	scenes, ok := p.Folders.Get(root.Folders[0].Handle)
	require.True(t, ok)
	g, ok := p.Graphics.Get(scenes.Graphics[0].Handle)
	require.True(t, ok)
	assert.Equal(t, float32(24), g.FPS)
	l, _ := p.Layers.Get(g.Layers[0].Handle)
	fr, _ := p.Frames.Get(l.Frames[0].Handle)
	st, ok := p.Strokes.Get(fr.Strokes[0].Handle)
	require.True(t, ok)

	require.NotNil(t, st.Color.Ref)
	sw, ok := p.Swatches.Get(st.Color.Ref.Swatch)
	require.True(t, ok)
	assert.Equal(t, "Shade", sw.Name)
	assert.Equal(t, "#cc9966ff", st.Color.Resolve(p.Swatches.Get).String())
	assert.Equal(t, "#000000ff", st.Color.Ref.Fallback.String())
}

func TestSeedUnknownSwatchLeavesNothing(t *testing.T) {
	s := newSession(t)
	fx, err := ParseFixture([]byte(`
palettes:
  - name: Skin
graphics:
  - name: Walk
    layers:
      - name: Ink
        frames:
          - time: 0
            strokes:
              - points: [[0, 0, 1]]
                swatch: Skin/Missing
`))
	require.NoError(t, err)

	err = Seed(s, fx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Skin/Missing")
	assert.Equal(t, 0, s.History.Len())

	root, _ := s.Project.Folders.Get(s.Project.Root())
	assert.Empty(t, root.Graphics)
	assert.Empty(t, root.Palettes)
}

func TestSeedBadColor(t *testing.T) {
	s := newSession(t)
	fx := &Fixture{Palettes: []PaletteFixture{{Name: "P", Swatches: []SwatchFixture{{Name: "a", Color: "red"}}}}}
	assert.Error(t, Seed(s, fx))
	assert.Equal(t, 0, s.History.Len())
}

func TestDumpRoundTrip(t *testing.T) {
	s := newSession(t)
	fx, err := ParseFixture([]byte(walkFixture))
	require.NoError(t, err)
	require.NoError(t, Seed(s, fx))

	out, err := Dump(s.Project)
	require.NoError(t, err)
	back, err := ParseFixture(out)
	require.NoError(t, err)

	require.Len(t, back.Palettes, 1)
	assert.Equal(t, []SwatchFixture{{Name: "Base", Color: "#ffcc99ff"}, {Name: "Shade", Color: "#cc9966ff"}}, back.Palettes[0].Swatches)

	require.Len(t, back.Folders, 1)
	scenes := back.Folders[0]
	assert.Equal(t, "Scenes", scenes.Name)
	require.Len(t, scenes.Folders, 1)
	assert.Equal(t, "Props", scenes.Folders[0].Name)

	require.Len(t, scenes.Graphics, 1)
	walk := scenes.Graphics[0]
	assert.Equal(t, "Walk", walk.Name)
	assert.Equal(t, float32(24), walk.FPS)
	require.Len(t, walk.Layers, 2)
	assert.Nil(t, walk.Layers[0].Opacity)
	require.NotNil(t, walk.Layers[1].Opacity)
	assert.True(t, walk.Layers[1].Hidden)

	first := walk.Layers[0].Frames[0].Strokes[0]
	assert.Equal(t, "Skin/Shade", first.Swatch)
	assert.Equal(t, "#000000ff", first.Color)
	assert.Equal(t, float32(2), first.Width)
	second := walk.Layers[0].Frames[1].Strokes[0]
	assert.Empty(t, second.Swatch)
	assert.Equal(t, "#ff0000ff", second.Color)
	assert.Equal(t, float32(1), second.Width)

	// a dumped tree seeds into an identical dump
	s2 := newSession(t)
	require.NoError(t, Seed(s2, back))
	again, err := Dump(s2.Project)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}
