package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/asset"
	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/pagefile"
	"github.com/l1jgo/inkgraph/internal/project"
	"github.com/l1jgo/inkgraph/internal/record"
)

// ErrDuplicatePage marks a page chain referenced by more than one object.
var ErrDuplicatePage = errors.New("persist: page referenced twice")

type loadState int

const (
	statePending loadState = iota
	stateLoading
	stateLoaded
	stateFailed
)

// pendingAsset is an asset file found by the directory scan.
type pendingAsset struct {
	rel    string
	name   string
	kind   arena.Kind
	folder arena.Handle[component.Folder]
	pf     *pagefile.File
	state  loadState

	visited  map[pagefile.Ptr]bool
	graphic  *arena.Owned[component.Graphic]
	palette  *arena.Owned[component.Palette]
	swatches map[arena.Key]arena.Key // stored -> live
}

type loader struct {
	s       *Store
	p       *project.Project
	rep     *Report
	folders map[string]arena.Handle[component.Folder]
	assets  []*pendingAsset
	// palettes by the root key recorded in their file header
	palettes map[arena.Key]*pendingAsset
}

// Load reads the project stored under dir into a new project. Objects that
// fail to read are reported and left out; the error is only for a project
// directory that cannot be used at all.
func Load(dir string, opts Options) (*Store, *Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("load %s: not a directory", dir)
	}

	proj := project.NewEmpty()
	s := NewStore(dir, proj, opts)
	rep := &Report{}
	l := &loader{
		s:        s,
		p:        proj,
		rep:      rep,
		folders:  make(map[string]arena.Handle[component.Folder]),
		palettes: make(map[arena.Key]*pendingAsset),
	}

	l.scan()
	l.openAssets()
	for _, pa := range l.assets {
		l.load(pa)
	}
	l.attach()

	s.log.Info("project loaded",
		zap.String("dir", dir),
		zap.Int("folders", proj.Folders.Len()),
		zap.Int("files", rep.Files),
		zap.Int("objects", rep.Objects),
		zap.Int("remapped", rep.Remapped),
		zap.Int("problems", len(rep.Diagnostics)),
	)
	return s, rep, nil
}

func (l *loader) diag(rel string, kind arena.Kind, key arena.Key, offset int64, err error) {
	l.rep.add(Diagnostic{Path: rel, Kind: kind, Key: key, Offset: offset, Err: err})
	l.s.log.Warn("load problem",
		zap.String("path", rel),
		zap.Stringer("kind", kind),
		zap.Uint64("key", uint64(key)),
		zap.Int64("offset", offset),
		zap.Error(err),
	)
}

// scan builds folders from directories, imports audio files and queues
// asset files. The trash directory and hidden entries are skipped.
func (l *loader) scan() {
	k, _ := l.p.Folders.Reserve(0)
	root := l.p.Folders.Insert(k, &component.Folder{})
	l.p.SetRoot(root)
	l.folders[""] = root.Handle
	l.s.dirs[k] = ""

	trash := filepath.Clean(l.s.opts.TrashDir)
	// the callback records every problem as a diagnostic and never fails
	_ = filepath.WalkDir(l.s.dir, func(abs string, d fs.DirEntry, err error) error {
		rel, rerr := filepath.Rel(l.s.dir, abs)
		if rerr != nil {
			return nil
		}
		if err != nil {
			l.diag(filepath.ToSlash(rel), 0, 0, -1, err)
			if d != nil && d.IsDir() && rel != "." {
				return fs.SkipDir
			}
			return nil
		}
		if rel == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || rel == trash {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel = filepath.ToSlash(rel)
		dirRel := path.Dir(rel)
		if dirRel == "." {
			dirRel = ""
		}
		parent, ok := l.folders[dirRel]
		if !ok {
			return nil
		}
		if d.IsDir() {
			l.addFolder(rel, d.Name(), parent)
			return nil
		}
		name := d.Name()
		ext := path.Ext(name)
		if kind, ok := kindOfExt(ext); ok {
			l.assets = append(l.assets, &pendingAsset{
				rel:      rel,
				name:     strings.TrimSuffix(name, ext),
				kind:     kind,
				folder:   parent,
				visited:  make(map[pagefile.Ptr]bool),
				swatches: make(map[arena.Key]arena.Key),
			})
			return nil
		}
		if component.IsAudioFile(name) {
			l.addAudio(abs, rel, name, parent)
			return nil
		}
		l.s.log.Debug("unknown file skipped", zap.String("path", rel))
		return nil
	})
}

// Loaded objects are appended with Get, not GetMut, so nothing is dirty
// after a clean load.
func (l *loader) addFolder(rel, name string, parent arena.Handle[component.Folder]) {
	pf, ok := l.p.Folders.Get(parent)
	if !ok {
		return
	}
	k, _ := l.p.Folders.Reserve(0)
	o := l.p.Folders.Insert(k, &component.Folder{Name: name, Parent: parent})
	pf.Folders = append(pf.Folders, o)
	l.folders[rel] = o.Handle
	l.s.dirs[k] = rel
}

func (l *loader) addAudio(abs, rel, name string, parent arena.Handle[component.Folder]) {
	hash, size, err := asset.HashFile(abs)
	if err != nil {
		l.diag(rel, component.KindAudio, 0, -1, err)
		return
	}
	pf, ok := l.p.Folders.Get(parent)
	if !ok {
		return
	}
	k, _ := l.p.Audio.Reserve(0)
	o := l.p.Audio.Insert(k, &component.Audio{Name: name, Folder: parent, Path: rel, Hash: hash, Size: size})
	pf.Audio = append(pf.Audio, o)
}

// openAssets opens every queued file and catalogs palettes by the root key
// in their header, so swatch references from other files can find them.
func (l *loader) openAssets() {
	for _, pa := range l.assets {
		pf, err := pagefile.Open(l.s.abs(pa.rel), l.s.pageOpts())
		if err != nil {
			l.diag(pa.rel, pa.kind, 0, -1, err)
			pa.state = stateFailed
			continue
		}
		pa.pf = pf
		l.rep.Files++
		if pa.kind != component.KindPalette {
			continue
		}
		stored := arena.Key(pf.RootKey())
		if other, dup := l.palettes[stored]; dup {
			l.s.log.Warn("palettes share a root key",
				zap.String("path", pa.rel), zap.String("other", other.rel), zap.Uint64("key", uint64(stored)))
			continue
		}
		l.palettes[stored] = pa
	}
}

// load decodes one asset file. Palettes may be loaded early, on the first
// swatch reference that needs them.
func (l *loader) load(pa *pendingAsset) {
	if pa.state != statePending {
		return
	}
	pa.state = stateLoading
	var ok bool
	switch pa.kind {
	case component.KindGraphic:
		ok = l.loadGraphic(pa)
	case component.KindPalette:
		ok = l.loadPalette(pa)
	}
	if !ok {
		pa.state = stateFailed
		if err := pa.pf.Close(); err != nil {
			l.s.log.Warn("close asset file", zap.String("path", pa.rel), zap.Error(err))
		}
		return
	}
	pa.state = stateLoaded
}

// attach links loaded assets into their folders in scan order and hands the
// open files to the store.
func (l *loader) attach() {
	for _, pa := range l.assets {
		if pa.state != stateLoaded {
			continue
		}
		f, ok := l.p.Folders.Get(pa.folder)
		if !ok {
			continue
		}
		var root arena.RootRef
		switch pa.kind {
		case component.KindGraphic:
			f.Graphics = append(f.Graphics, pa.graphic)
			root = project.GraphicRoot(pa.graphic.Handle)
		case component.KindPalette:
			f.Palettes = append(f.Palettes, pa.palette)
			root = project.PaletteRoot(pa.palette.Handle)
		}
		l.s.files[root] = &assetFile{rel: pa.rel, pf: pa.pf}
	}
}

// read fetches and decodes the record whose chain starts at page.
func (l *loader) read(pa *pendingAsset, page pagefile.Ptr, kind arena.Kind, stored arena.Key) (*record.Fields, bool) {
	if pa.visited[page] {
		l.diag(pa.rel, kind, stored, int64(page), ErrDuplicatePage)
		return nil, false
	}
	pa.visited[page] = true
	data, err := pa.pf.GetObjData(page)
	if err != nil {
		l.diag(pa.rel, kind, stored, int64(page), err)
		return nil, false
	}
	doc, err := l.s.codec.Unmarshal(data)
	if err != nil {
		offset := int64(page)
		var de *record.DecodeError
		if errors.As(err, &de) {
			offset = pa.pf.FileOffset(page, de.Offset)
		}
		l.diag(pa.rel, kind, stored, offset, err)
		return nil, false
	}
	l.rep.Objects++
	return record.Read(doc), true
}

// fieldsOK reports a field type mismatch as a decode failure of the object.
func (l *loader) fieldsOK(pa *pendingAsset, f *record.Fields, page pagefile.Ptr, kind arena.Kind, stored arena.Key) bool {
	if err := f.Err(); err != nil {
		l.diag(pa.rel, kind, stored, int64(page), fmt.Errorf("%w: %v", ErrMalformed, err))
		return false
	}
	return true
}

// ErrMalformed wraps field type mismatches in otherwise decodable records.
var ErrMalformed = errors.New("persist: malformed record")

// child is a {key, page} pair read from an owned list.
type child = [2]uint64

func (l *loader) countRemap(remapped bool) {
	if remapped {
		l.rep.Remapped++
	}
}

func (l *loader) loadGraphic(pa *pendingAsset) bool {
	page := pa.pf.RootPage()
	stored := arena.Key(pa.pf.RootKey())
	f, ok := l.read(pa, page, component.KindGraphic, stored)
	if !ok {
		return false
	}
	g := &component.Graphic{
		Name:   pa.name,
		Folder: pa.folder,
		Length: int32(f.Int("length")),
		FPS:    float32(f.FloatOr("fps", 24)),
	}
	storedName := f.String("name")
	layers := f.OwnedList("layers")
	if !l.fieldsOK(pa, f, page, component.KindGraphic, stored) {
		return false
	}

	k, remapped := l.p.Graphics.Reserve(stored)
	l.countRemap(remapped)
	h := l.p.Graphics.Handle(k)
	root := project.GraphicRoot(h)
	dirty := remapped || storedName != g.Name
	for _, c := range layers {
		o, changed, ok := l.loadLayer(pa, root, c, h)
		if !ok {
			dirty = true
			continue
		}
		g.Layers = append(g.Layers, o)
		dirty = dirty || changed
	}
	pa.graphic = l.p.Graphics.Insert(k, g)
	l.p.Graphics.Pages().Set(k, arena.Location{Root: root, Page: uint64(page)})
	if dirty {
		l.p.Graphics.Touch(k)
	}
	return true
}

func (l *loader) loadLayer(pa *pendingAsset, root arena.RootRef, c child, parent arena.Handle[component.Graphic]) (*arena.Owned[component.Layer], bool, bool) {
	stored, page := arena.Key(c[0]), pagefile.Ptr(c[1])
	f, ok := l.read(pa, page, component.KindLayer, stored)
	if !ok {
		return nil, false, false
	}
	layer := &component.Layer{
		Name:    f.String("name"),
		Graphic: parent,
		Hidden:  f.Bool("hidden"),
		Locked:  f.Bool("locked"),
		Opacity: float32(f.FloatOr("opacity", 1)),
	}
	frames := f.OwnedList("frames")
	if !l.fieldsOK(pa, f, page, component.KindLayer, stored) {
		return nil, false, false
	}

	k, remapped := l.p.Layers.Reserve(stored)
	l.countRemap(remapped)
	h := l.p.Layers.Handle(k)
	dirty := false
	for _, c := range frames {
		o, changed, ok := l.loadFrame(pa, root, c, h)
		if !ok {
			dirty = true
			continue
		}
		layer.Frames = append(layer.Frames, o)
		dirty = dirty || changed
	}
	o := l.p.Layers.Insert(k, layer)
	l.p.Layers.Pages().Set(k, arena.Location{Root: root, Page: uint64(page)})
	if dirty {
		l.p.Layers.Touch(k)
	}
	return o, remapped, true
}

func (l *loader) loadFrame(pa *pendingAsset, root arena.RootRef, c child, parent arena.Handle[component.Layer]) (*arena.Owned[component.Frame], bool, bool) {
	stored, page := arena.Key(c[0]), pagefile.Ptr(c[1])
	f, ok := l.read(pa, page, component.KindFrame, stored)
	if !ok {
		return nil, false, false
	}
	frame := &component.Frame{Time: int32(f.Int("time")), Layer: parent}
	strokes := f.OwnedList("strokes")
	if !l.fieldsOK(pa, f, page, component.KindFrame, stored) {
		return nil, false, false
	}

	k, remapped := l.p.Frames.Reserve(stored)
	l.countRemap(remapped)
	h := l.p.Frames.Handle(k)
	dirty := false
	for _, c := range strokes {
		o, changed, ok := l.loadStroke(pa, root, c, h)
		if !ok {
			dirty = true
			continue
		}
		frame.Strokes = append(frame.Strokes, o)
		dirty = dirty || changed
	}
	o := l.p.Frames.Insert(k, frame)
	l.p.Frames.Pages().Set(k, arena.Location{Root: root, Page: uint64(page)})
	if dirty {
		l.p.Frames.Touch(k)
	}
	return o, remapped, true
}

func (l *loader) loadStroke(pa *pendingAsset, root arena.RootRef, c child, parent arena.Handle[component.Frame]) (*arena.Owned[component.Stroke], bool, bool) {
	stored, page := arena.Key(c[0]), pagefile.Ptr(c[1])
	f, ok := l.read(pa, page, component.KindStroke, stored)
	if !ok {
		return nil, false, false
	}
	flat := record.UnpackFloats(f.Bytes("points"))
	st := &component.Stroke{
		Frame:  parent,
		Points: make([]component.Point, 0, len(flat)/3),
		Width:  float32(f.FloatOr("width", 1)),
		Filled: f.Bool("filled"),
	}
	for i := 0; i+2 < len(flat); i += 3 {
		st.Points = append(st.Points, component.Point{X: flat[i], Y: flat[i+1], Pressure: flat[i+2]})
	}
	color, recolored, err := l.decodeColor(f.Value("color"))
	if !l.fieldsOK(pa, f, page, component.KindStroke, stored) {
		return nil, false, false
	}
	if err != nil {
		l.diag(pa.rel, component.KindStroke, stored, int64(page), fmt.Errorf("%w: %v", ErrMalformed, err))
		return nil, false, false
	}
	st.Color = color

	k, remapped := l.p.Strokes.Reserve(stored)
	l.countRemap(remapped)
	o := l.p.Strokes.Insert(k, st)
	l.p.Strokes.Pages().Set(k, arena.Location{Root: root, Page: uint64(page)})
	if recolored {
		l.p.Strokes.Touch(k)
	}
	return o, remapped, true
}

// decodeColor resolves a stored color. Swatch references are translated to
// live keys, loading the palette file on first use; changed reports that the
// keys differ from the stored ones.
func (l *loader) decodeColor(v record.Value) (component.Color, bool, error) {
	if v.IsNull() {
		return component.Color{}, false, nil
	}
	tag, inner, ok := v.AsVariant()
	if !ok {
		return component.Color{}, false, fmt.Errorf("color: want variant, have %s", v.Type())
	}
	switch tag {
	case colorLiteral:
		u, ok := inner.AsUint()
		if !ok {
			return component.Color{}, false, fmt.Errorf("color literal: have %s", inner.Type())
		}
		return component.Solid(unpackRGBA(u)), false, nil
	case colorSwatch:
		d, ok := inner.AsDoc()
		if !ok {
			return component.Color{}, false, fmt.Errorf("color swatch: have %s", inner.Type())
		}
		f := record.Read(d)
		sk, pk, ok := f.Value("ref").AsRootRef()
		if !ok {
			return component.Color{}, false, errors.New("color swatch: missing ref")
		}
		fallback := unpackRGBA(f.Uint("fallback"))
		if err := f.Err(); err != nil {
			return component.Color{}, false, err
		}
		sw, pal, changed := l.resolveSwatch(arena.Key(sk), arena.Key(pk))
		return component.FromSwatch(sw, pal, fallback), changed, nil
	}
	return component.Color{}, false, fmt.Errorf("color: unknown variant %q", tag)
}

// resolveSwatch maps stored swatch and palette keys to live handles. An
// unresolvable reference yields zero handles, so the color falls back.
func (l *loader) resolveSwatch(storedSwatch, storedPalette arena.Key) (arena.Handle[component.Swatch], arena.Handle[component.Palette], bool) {
	pa, ok := l.palettes[storedPalette]
	if !ok {
		return arena.Handle[component.Swatch]{}, arena.Handle[component.Palette]{}, false
	}
	l.load(pa)
	if pa.state != stateLoaded {
		return arena.Handle[component.Swatch]{}, arena.Handle[component.Palette]{}, false
	}
	live, ok := pa.swatches[storedSwatch]
	if !ok {
		return arena.Handle[component.Swatch]{}, arena.Handle[component.Palette]{}, false
	}
	ph := pa.palette.Handle
	return l.p.Swatches.Handle(live), ph, live != storedSwatch || ph.Key != storedPalette
}

func (l *loader) loadPalette(pa *pendingAsset) bool {
	page := pa.pf.RootPage()
	stored := arena.Key(pa.pf.RootKey())
	f, ok := l.read(pa, page, component.KindPalette, stored)
	if !ok {
		return false
	}
	pl := &component.Palette{Name: pa.name, Folder: pa.folder}
	storedName := f.String("name")
	swatches := f.OwnedList("swatches")
	if !l.fieldsOK(pa, f, page, component.KindPalette, stored) {
		return false
	}

	k, remapped := l.p.Palettes.Reserve(stored)
	l.countRemap(remapped)
	h := l.p.Palettes.Handle(k)
	root := project.PaletteRoot(h)
	dirty := remapped || storedName != pl.Name
	for _, c := range swatches {
		o, changed, ok := l.loadSwatch(pa, root, c, h)
		if !ok {
			dirty = true
			continue
		}
		pl.Swatches = append(pl.Swatches, o)
		pa.swatches[arena.Key(c[0])] = o.Key
		dirty = dirty || changed
	}
	pa.palette = l.p.Palettes.Insert(k, pl)
	l.p.Palettes.Pages().Set(k, arena.Location{Root: root, Page: uint64(page)})
	if dirty {
		l.p.Palettes.Touch(k)
	}
	return true
}

func (l *loader) loadSwatch(pa *pendingAsset, root arena.RootRef, c child, parent arena.Handle[component.Palette]) (*arena.Owned[component.Swatch], bool, bool) {
	stored, page := arena.Key(c[0]), pagefile.Ptr(c[1])
	f, ok := l.read(pa, page, component.KindSwatch, stored)
	if !ok {
		return nil, false, false
	}
	sw := &component.Swatch{
		Name:    f.String("name"),
		Palette: parent,
		Color:   unpackRGBA(f.Uint("color")),
	}
	if !l.fieldsOK(pa, f, page, component.KindSwatch, stored) {
		return nil, false, false
	}
	k, remapped := l.p.Swatches.Reserve(stored)
	l.countRemap(remapped)
	o := l.p.Swatches.Insert(k, sw)
	l.p.Swatches.Pages().Set(k, arena.Location{Root: root, Page: uint64(page)})
	return o, remapped, true
}
