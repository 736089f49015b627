package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/inkgraph/internal/asset"
	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
	"github.com/l1jgo/inkgraph/internal/pagefile"
	"github.com/l1jgo/inkgraph/internal/project"
	"github.com/l1jgo/inkgraph/internal/record"
)

var testOpts = Options{PageDataSize: 64}

func keep[T any](t *testing.T) func(T, *undo.Action, error) T {
	return func(v T, _ *undo.Action, err error) T {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

type scene struct {
	dir   string
	store *Store
	lib   *asset.Library
	p     *project.Project

	folder  arena.Handle[component.Folder]
	graphic arena.Handle[component.Graphic]
	layer   arena.Handle[component.Layer]
	frame   arena.Handle[component.Frame]
	stroke  arena.Handle[component.Stroke]
	palette arena.Handle[component.Palette]
	swatch  arena.Handle[component.Swatch]
}

var (
	skin     = component.RGBA{R: 0xf0, G: 0xc0, B: 0xa0, A: 0xff}
	fallback = component.RGBA{R: 1, G: 2, B: 3, A: 255}
)

// newScene builds Scene/Walk.graphic with one layer, frame and stroke whose
// color points at a swatch of Skin.palette in the root folder.
func newScene(t *testing.T) *scene {
	t.Helper()
	dir := t.TempDir()
	p := project.New()
	store := NewStore(dir, p, testOpts)
	t.Cleanup(func() { store.Close() })
	sc := &scene{dir: dir, store: store, p: p, lib: asset.NewLibrary(p, dir, DefaultTrashDir, store, nil)}

	sc.folder = keep[arena.Handle[component.Folder]](t)(sc.lib.AddFolder(p.Root(), "Scene"))
	sc.palette = keep[arena.Handle[component.Palette]](t)(sc.lib.AddPalette(p.Root(), &component.Palette{Name: "Skin"}))
	sc.swatch = keep[arena.Handle[component.Swatch]](t)(p.PaletteSwatches.AddAtIndex(sc.palette, &component.Swatch{Name: "base", Color: skin}, -1))
	sc.graphic = keep[arena.Handle[component.Graphic]](t)(sc.lib.AddGraphic(sc.folder, &component.Graphic{Name: "Walk", Length: 48, FPS: 12}))
	sc.layer = keep[arena.Handle[component.Layer]](t)(p.GraphicLayers.AddAtIndex(sc.graphic, &component.Layer{Name: "ink", Opacity: 0.75, Locked: true}, -1))
	sc.frame = keep[arena.Handle[component.Frame]](t)(p.LayerFrames.AddAtIndex(sc.layer, &component.Frame{Time: 5}, -1))
	sc.stroke = keep[arena.Handle[component.Stroke]](t)(p.FrameStrokes.AddAtIndex(sc.frame, &component.Stroke{
		Points: []component.Point{{X: 1, Y: 2, Pressure: 0.5}, {X: 3, Y: 4, Pressure: 1}},
		Width:  2,
		Color:  component.FromSwatch(sc.swatch, sc.palette, fallback),
	}, -1))
	return sc
}

func (sc *scene) save(t *testing.T) *Report {
	t.Helper()
	rep, err := sc.store.Save()
	require.NoError(t, err)
	require.True(t, rep.OK(), "save problems: %v", rep.Err())
	return rep
}

func reload(t *testing.T, dir string) (*Store, *Report) {
	t.Helper()
	s, rep, err := Load(dir, testOpts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, rep
}

func onlyGraphic(t *testing.T, p *project.Project) (arena.Handle[component.Graphic], *component.Graphic) {
	t.Helper()
	keys := p.Graphics.Keys()
	require.Len(t, keys, 1)
	h := p.Graphics.Handle(keys[0])
	g, _ := p.Graphics.Get(h)
	return h, g
}

func TestSaveLoadRoundTrip(t *testing.T) {
	sc := newScene(t)
	rep := sc.save(t)
	assert.Equal(t, 2, rep.Files)
	assert.Equal(t, 6, rep.Objects)
	assert.FileExists(t, filepath.Join(sc.dir, "Scene", "Walk.graphic"))
	assert.FileExists(t, filepath.Join(sc.dir, "Skin.palette"))
	require.NoError(t, sc.store.Close())

	s, rep := reload(t, sc.dir)
	require.True(t, rep.OK(), "load problems: %v", rep.Err())
	assert.Equal(t, 2, rep.Files)
	assert.Zero(t, rep.Remapped)
	p := s.Project()

	folder, ok := p.FolderByPath("Scene")
	require.True(t, ok)
	assert.Equal(t, []arena.Handle[component.Graphic]{sc.graphic}, p.FolderGraphics.ChildHandles(folder))

	g, _ := p.Graphics.Get(sc.graphic)
	assert.Equal(t, "Walk", g.Name)
	assert.Equal(t, int32(48), g.Length)
	assert.Equal(t, float32(12), g.FPS)

	l, ok := p.Layers.Get(sc.layer)
	require.True(t, ok)
	assert.Equal(t, "ink", l.Name)
	assert.True(t, l.Locked)
	assert.Equal(t, float32(0.75), l.Opacity)

	fr, ok := p.Frames.Get(sc.frame)
	require.True(t, ok)
	assert.Equal(t, int32(5), fr.Time)

	st, ok := p.Strokes.Get(sc.stroke)
	require.True(t, ok)
	assert.Equal(t, []component.Point{{X: 1, Y: 2, Pressure: 0.5}, {X: 3, Y: 4, Pressure: 1}}, st.Points)
	assert.Equal(t, float32(2), st.Width)
	require.NotNil(t, st.Color.Ref)
	assert.Equal(t, sc.swatch, st.Color.Ref.Swatch)
	assert.Equal(t, sc.palette, st.Color.Ref.Palette)
	assert.Equal(t, skin, st.Color.Resolve(p.Swatches.Get))

	for _, modified := range [][]arena.Key{
		p.Folders.Modified(), p.Graphics.Modified(), p.Layers.Modified(),
		p.Frames.Modified(), p.Strokes.Modified(), p.Palettes.Modified(), p.Swatches.Modified(),
	} {
		assert.Empty(t, modified, "a clean load leaves nothing dirty")
	}

	again, err := s.Save()
	require.NoError(t, err)
	assert.Zero(t, again.Objects, "saving an untouched project writes nothing")
}

func TestKeysAfterLoadDoNotCollide(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	s, _ := reload(t, sc.dir)
	p := s.Project()
	h, _, err := p.LayerFrames.AddAtIndex(sc.layer, &component.Frame{Time: 9}, -1)
	require.NoError(t, err)
	assert.Greater(t, h.Key, sc.frame.Key)
}

func TestIncrementalSaveFreesPages(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	af := sc.store.files[project.GraphicRoot(sc.graphic)]
	require.NotNil(t, af)
	loc, ok := sc.p.Strokes.Pages().Get(sc.stroke.Key)
	require.True(t, ok)
	chain, err := af.pf.Chain(pagefile.Ptr(loc.Page))
	require.NoError(t, err)

	act, err := sc.p.FrameStrokes.Delete(sc.stroke)
	require.NoError(t, err)
	act.Release()

	rep := sc.save(t)
	assert.Equal(t, 1, rep.Freed)
	assert.Equal(t, 1, rep.Objects, "only the frame is rewritten")
	free, err := af.pf.FreeList()
	require.NoError(t, err)
	assert.ElementsMatch(t, chain, free, "exactly the stroke's pages are free")
	require.NoError(t, sc.store.Close())

	s, rep := reload(t, sc.dir)
	require.True(t, rep.OK())
	fr, ok := s.Project().Frames.Get(sc.frame)
	require.True(t, ok)
	assert.Empty(t, fr.Strokes)
}

// pageUse counts the pages of root's file that belong to a live object's
// chain or to the free list, next to the file's page total.
func pageUse(t *testing.T, s *Store, root arena.RootRef) (used, total int) {
	t.Helper()
	af := s.files[root]
	require.NotNil(t, af)
	seen := map[pagefile.Ptr]bool{}
	p := s.Project()
	markChains(t, p.Graphics, root, af.pf, seen)
	markChains(t, p.Layers, root, af.pf, seen)
	markChains(t, p.Frames, root, af.pf, seen)
	markChains(t, p.Strokes, root, af.pf, seen)
	free, err := af.pf.FreeList()
	require.NoError(t, err)
	for _, pg := range free {
		seen[pg] = true
	}
	return len(seen), af.pf.PageCount()
}

func markChains[T any](t *testing.T, a *arena.Arena[T], root arena.RootRef, pf *pagefile.File, seen map[pagefile.Ptr]bool) {
	for _, k := range a.Keys() {
		loc, ok := a.Pages().Get(k)
		if !ok || loc.Root != root {
			continue
		}
		chain, err := pf.Chain(pagefile.Ptr(loc.Page))
		require.NoError(t, err)
		for _, pg := range chain {
			seen[pg] = true
		}
	}
}

func TestDeleteHeldByHistoryFreesPages(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	root := project.GraphicRoot(sc.graphic)

	// the action stays unreleased, the way the undo history keeps it
	act, err := sc.p.FrameStrokes.Delete(sc.stroke)
	require.NoError(t, err)
	rep := sc.save(t)
	assert.Equal(t, 1, rep.Freed)
	assert.False(t, sc.p.Strokes.Has(sc.stroke.Key))
	used, total := pageUse(t, sc.store, root)
	assert.Equal(t, total, used, "every page is either live or free")

	act.Undo()
	require.True(t, sc.p.Strokes.Has(sc.stroke.Key))
	rep = sc.save(t)
	assert.Equal(t, 2, rep.Objects, "stroke and frame are written")
	require.NoError(t, sc.store.Close())

	s, rep := reload(t, sc.dir)
	require.True(t, rep.OK(), "%v", rep.Err())
	st, ok := s.Project().Strokes.Get(sc.stroke)
	require.True(t, ok, "the revived stroke keeps its key")
	assert.Len(t, st.Points, 2)
	used, total = pageUse(t, s, root)
	assert.Equal(t, total, used)
}

func TestDeletedLayerPagesBalanceAfterReload(t *testing.T) {
	sc := newScene(t)
	other := keep[arena.Handle[component.Layer]](t)(sc.p.GraphicLayers.AddAtIndex(sc.graphic, &component.Layer{Name: "paper", Opacity: 1}, -1))
	sc.save(t)

	_, err := sc.p.GraphicLayers.Delete(sc.layer)
	require.NoError(t, err)
	rep := sc.save(t)
	assert.Equal(t, 3, rep.Freed, "layer, frame and stroke")
	require.NoError(t, sc.store.Close())

	s, rep := reload(t, sc.dir)
	require.True(t, rep.OK(), "%v", rep.Err())
	assert.Equal(t, []arena.Handle[component.Layer]{other}, s.Project().GraphicLayers.ChildHandles(sc.graphic))
	used, total := pageUse(t, s, project.GraphicRoot(sc.graphic))
	assert.Equal(t, total, used)
}

func TestFailedWriteStaysDirty(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	core, logs := observer.New(zap.WarnLevel)
	sc.store.log = zap.New(core)

	// the graphic's file goes away underneath the store
	af := sc.store.files[project.GraphicRoot(sc.graphic)]
	require.NotNil(t, af)
	require.NoError(t, af.pf.Close())
	sc.p.Strokes.Touch(sc.stroke.Key)

	rep, err := sc.store.Save()
	require.NoError(t, err, "single objects do not stop the save")
	assert.False(t, rep.OK())
	assert.ErrorIs(t, rep.Err(), pagefile.ErrClosed)
	assert.Contains(t, sc.p.Strokes.Modified(), sc.stroke.Key, "retried by the next save")

	incomplete := logs.FilterMessage("save incomplete").All()
	require.Len(t, incomplete, 1)
	assert.Equal(t, int64(1), incomplete[0].ContextMap()["failed"])
	assert.Equal(t, 1, logs.FilterMessage("object not saved").Len())

	// the stroke pass reports its own failure
	s := sc.store
	s.report = &Report{}
	s.written = make(map[ref]struct{})
	s.touched = make(map[arena.RootRef]struct{})
	s.failed = nil
	err = s.bindings[component.KindStroke].Update()
	assert.ErrorIs(t, err, pagefile.ErrClosed)
	require.Len(t, s.failed, 1)
	assert.Equal(t, sc.stroke.Key, s.failed[0].key)
	assert.NoError(t, s.bindings[component.KindGraphic].Update(), "nothing of this kind is dirty")
	s.report, s.written, s.touched = nil, nil, nil
}

func TestGrowingRecordSpansPages(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	st, _ := sc.p.Strokes.GetMut(sc.stroke)
	for i := 0; i < 100; i++ {
		st.Points = append(st.Points, component.Point{X: float32(i), Y: float32(-i), Pressure: 1})
	}
	sc.save(t)
	loc, ok := sc.p.Strokes.Pages().Get(sc.stroke.Key)
	require.True(t, ok)
	chain, err := sc.store.files[project.GraphicRoot(sc.graphic)].pf.Chain(pagefile.Ptr(loc.Page))
	require.NoError(t, err)
	assert.Greater(t, len(chain), 1)
	require.NoError(t, sc.store.Close())

	s, _ := reload(t, sc.dir)
	got, _ := s.Project().Strokes.Get(sc.stroke)
	assert.Len(t, got.Points, 102)
}

func TestRenameMovesFile(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	walk := filepath.Join(sc.dir, "Scene", "Walk.graphic")
	run := filepath.Join(sc.dir, "Scene", "Run.graphic")

	act, err := sc.lib.RenameGraphic(sc.graphic, "Run")
	require.NoError(t, err)
	assert.NoFileExists(t, walk, "stale file goes away at once")

	rep := sc.save(t)
	assert.Equal(t, 1, rep.Files)
	assert.FileExists(t, run)

	act.Undo()
	assert.NoFileExists(t, run)
	sc.save(t)
	assert.FileExists(t, walk)
	require.NoError(t, sc.store.Close())

	s, _ := reload(t, sc.dir)
	_, g := onlyGraphic(t, s.Project())
	assert.Equal(t, "Walk", g.Name)
	assert.Equal(t, 1, len(g.Layers))
}

func TestDeletedAssetIsNotWritten(t *testing.T) {
	sc := newScene(t)
	act, err := sc.lib.DeleteGraphic(sc.graphic)
	require.NoError(t, err)
	require.NotNil(t, act)
	sc.save(t)
	assert.NoFileExists(t, filepath.Join(sc.dir, "Scene", "Walk.graphic"))
	assert.DirExists(t, filepath.Join(sc.dir, "Scene"))

	act.Undo()
	sc.save(t)
	assert.FileExists(t, filepath.Join(sc.dir, "Scene", "Walk.graphic"))

	act.Redo()
	act.Release()
	assert.NoFileExists(t, filepath.Join(sc.dir, "Scene", "Walk.graphic"))
	rep := sc.save(t)
	assert.Zero(t, rep.Objects)
	assert.Zero(t, sc.p.Layers.Len(), "released subtree is collected")
}

func TestDeletedFolderDirectoryRemoved(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	act, err := sc.lib.DeleteFolder(sc.folder)
	require.NoError(t, err)
	sc.save(t)
	assert.NoDirExists(t, filepath.Join(sc.dir, "Scene"))

	act.Undo()
	sc.save(t)
	assert.FileExists(t, filepath.Join(sc.dir, "Scene", "Walk.graphic"))
}

func TestLayerMovesBetweenFiles(t *testing.T) {
	sc := newScene(t)
	other := keep[arena.Handle[component.Graphic]](t)(sc.lib.AddGraphic(sc.p.Root(), &component.Graphic{Name: "Jump"}))
	sc.save(t)

	_, err := sc.p.GraphicLayers.Transfer(sc.layer, other)
	require.NoError(t, err)
	rep := sc.save(t)
	assert.Equal(t, 3, rep.Freed, "layer, frame and stroke leave the old file")

	loc, _ := sc.p.Strokes.Pages().Get(sc.stroke.Key)
	assert.Equal(t, project.GraphicRoot(other), loc.Root)
	require.NoError(t, sc.store.Close())

	s, rep := reload(t, sc.dir)
	require.True(t, rep.OK(), "%v", rep.Err())
	p := s.Project()
	assert.Empty(t, p.GraphicLayers.ChildHandles(sc.graphic))
	assert.Equal(t, []arena.Handle[component.Layer]{sc.layer}, p.GraphicLayers.ChildHandles(other))
	assert.True(t, p.Strokes.Has(sc.stroke.Key))
}

func TestCorruptRecordReportsFileOffset(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	loc, ok := sc.p.Layers.Pages().Get(sc.layer.Key)
	require.True(t, ok)
	require.NoError(t, sc.store.Close())

	path := filepath.Join(sc.dir, "Scene", "Walk.graphic")
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0x00}, int64(loc.Page)+8)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, rep := reload(t, sc.dir)
	require.Len(t, rep.Diagnostics, 1)
	d := rep.Diagnostics[0]
	assert.Equal(t, "Scene/Walk.graphic", d.Path)
	assert.Equal(t, component.KindLayer, d.Kind)
	assert.Equal(t, sc.layer.Key, d.Key)
	assert.Equal(t, int64(loc.Page)+8, d.Offset)
	assert.ErrorIs(t, rep.Err(), record.ErrBadMagic)

	p := s.Project()
	g, ok := p.Graphics.Get(sc.graphic)
	require.True(t, ok, "the graphic survives a broken layer")
	assert.Empty(t, g.Layers)
	assert.Equal(t, []arena.Key{sc.graphic.Key}, p.Graphics.Modified())

	_, err = s.Save()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, rep = reload(t, sc.dir)
	assert.True(t, rep.OK())
}

func TestMissingPaletteFallsBack(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	require.NoError(t, sc.store.Close())
	require.NoError(t, os.Remove(filepath.Join(sc.dir, "Skin.palette")))

	s, rep := reload(t, sc.dir)
	require.True(t, rep.OK())
	p := s.Project()
	st, ok := p.Strokes.Get(sc.stroke)
	require.True(t, ok)
	require.NotNil(t, st.Color.Ref)
	assert.True(t, st.Color.Ref.Swatch.IsZero())
	assert.Equal(t, fallback, st.Color.Resolve(p.Swatches.Get))
	assert.Empty(t, p.Strokes.Modified(), "an unresolved reference does not dirty the stroke")
}

func TestPaletteLoadedOnFirstReference(t *testing.T) {
	dir := t.TempDir()
	p := project.New()
	store := NewStore(dir, p, testOpts)
	lib := asset.NewLibrary(p, dir, DefaultTrashDir, store, nil)
	z := keep[arena.Handle[component.Folder]](t)(lib.AddFolder(p.Root(), "zz"))
	pal := keep[arena.Handle[component.Palette]](t)(lib.AddPalette(z, &component.Palette{Name: "Late"}))
	sw := keep[arena.Handle[component.Swatch]](t)(p.PaletteSwatches.AddAtIndex(pal, &component.Swatch{Name: "red", Color: component.RGBA{R: 255, A: 255}}, -1))
	g := keep[arena.Handle[component.Graphic]](t)(lib.AddGraphic(p.Root(), &component.Graphic{Name: "A"}))
	l := keep[arena.Handle[component.Layer]](t)(p.GraphicLayers.AddAtIndex(g, &component.Layer{}, -1))
	fr := keep[arena.Handle[component.Frame]](t)(p.LayerFrames.AddAtIndex(l, &component.Frame{}, -1))
	st := keep[arena.Handle[component.Stroke]](t)(p.FrameStrokes.AddAtIndex(fr, &component.Stroke{Color: component.FromSwatch(sw, pal, fallback)}, -1))
	_, err := store.Save()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	s, rep := reload(t, dir)
	require.True(t, rep.OK())
	got, ok := s.Project().Strokes.Get(st)
	require.True(t, ok)
	assert.Equal(t, sw, got.Color.Ref.Swatch)
	assert.Equal(t, component.RGBA{R: 255, A: 255}, got.Color.Resolve(s.Project().Swatches.Get))
	zz, _ := s.Project().FolderByPath("zz")
	assert.Equal(t, []arena.Handle[component.Palette]{pal}, s.Project().FolderPalettes.ChildHandles(zz))
}

func TestCopiedFileIsRemapped(t *testing.T) {
	sc := newScene(t)
	sc.save(t)
	require.NoError(t, sc.store.Close())
	raw, err := os.ReadFile(filepath.Join(sc.dir, "Scene", "Walk.graphic"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sc.dir, "Scene", "Copy.graphic"), raw, 0o644))

	s, rep := reload(t, sc.dir)
	require.True(t, rep.OK())
	assert.Equal(t, 4, rep.Remapped, "graphic, layer, frame and stroke of the second file")
	p := s.Project()
	assert.Equal(t, 2, p.Graphics.Len())
	assert.Equal(t, 2, p.Strokes.Len())
	assert.NotEmpty(t, p.Graphics.Modified())

	_, err = s.Save()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, rep := reload(t, sc.dir)
	require.True(t, rep.OK())
	assert.Zero(t, rep.Remapped)
	assert.Equal(t, 2, s2.Project().Layers.Len())
}

func TestDuplicatePageReference(t *testing.T) {
	dir := t.TempDir()
	pf, err := pagefile.Create(filepath.Join(dir, "Dup.graphic"), pagefile.Options{DataSize: 64})
	require.NoError(t, err)
	page, err := pf.AllocPage()
	require.NoError(t, err)
	c := record.Codec{}
	layer, _ := c.Marshal(record.NewDocument().Set("name", record.String("only")))
	require.NoError(t, pf.SetObjData(page, layer))
	root, _ := c.Marshal(record.NewDocument().
		Set("name", record.String("Dup")).
		Set("layers", record.List(record.Owned(5, uint64(page)), record.Owned(6, uint64(page)))))
	require.NoError(t, pf.SetObjData(pf.RootPage(), root))
	require.NoError(t, pf.SetRootKey(3))
	require.NoError(t, pf.Close())

	s, rep := reload(t, dir)
	require.Len(t, rep.Diagnostics, 1)
	assert.True(t, errors.Is(rep.Diagnostics[0], ErrDuplicatePage))
	assert.Equal(t, arena.Key(6), rep.Diagnostics[0].Key)
	_, g := onlyGraphic(t, s.Project())
	assert.Len(t, g.Layers, 1)
}

func TestLoadSkipsTrashAndUnknownFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DefaultTrashDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultTrashDir, "x_beep.wav"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beep.wav"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("c"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.graphic"), []byte("nope"), 0o644))

	s, rep := reload(t, dir)
	p := s.Project()
	assert.Equal(t, 1, p.Audio.Len())
	assert.Equal(t, 1, p.Folders.Len())
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "Broken.graphic", rep.Diagnostics[0].Path)
	assert.Zero(t, p.Graphics.Len())
}

func TestLoadMissingDir(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent"), testOpts)
	assert.Error(t, err)
}
