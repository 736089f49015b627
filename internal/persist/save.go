package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/pagefile"
	"github.com/l1jgo/inkgraph/internal/project"
)

// Save writes every change made since the previous save or load.
//
// Dropped handles are collected first. Linked assets without a usable
// backing file get a fresh file holding their whole tree. Then each kind,
// leaves before containers, frees the pages of deleted objects and writes
// created and modified ones; an object whose asset changed moves to the new
// file together with its subtree. Finally directories of removed folders go
// away and the dirty sets are cleared.
//
// Failures of single objects are reported, not returned; the objects stay
// dirty so the next save retries them. The error is for failures that stop
// the save as a whole.
func (s *Store) Save() (*Report, error) {
	rep := &Report{}
	s.report = rep
	s.written = make(map[ref]struct{})
	s.touched = make(map[arena.RootRef]struct{})
	s.failed = s.failed[:0]
	defer func() {
		s.report, s.written, s.touched = nil, nil, nil
	}()

	rounds, removed := s.proj.Registry.GarbageCollect()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return rep, fmt.Errorf("save %s: %w", s.dir, err)
	}
	stale := s.syncFolders()
	s.ensureFiles()
	if err := s.runner.Tick(); err != nil {
		s.log.Warn("save incomplete",
			zap.String("dir", s.dir),
			zap.Int("failed", len(s.failed)),
			zap.Error(err),
		)
	}
	s.removeDirs(stale)
	s.syncFiles()

	s.proj.Registry.ResetCycle()
	for _, f := range s.failed {
		s.bindings[f.kind].touch(f.key)
	}

	s.log.Info("project saved",
		zap.String("dir", s.dir),
		zap.Int("gc_rounds", rounds),
		zap.Int("collected", removed),
		zap.Int("files", rep.Files),
		zap.Int("objects", rep.Objects),
		zap.Int("freed", rep.Freed),
		zap.Int("problems", len(rep.Diagnostics)),
	)
	return rep, nil
}

// syncFolders creates a directory for every folder reachable from the root
// and returns the directories of folders that are no longer reachable.
func (s *Store) syncFolders() []string {
	live := make(map[arena.Key]string, len(s.dirs))
	paths := make(map[string]bool, len(s.dirs))
	s.proj.Folders.Each(func(h arena.Handle[component.Folder], _ *component.Folder) {
		if !s.proj.Attached(h) {
			return
		}
		rel, ok := s.proj.FolderPath(h)
		if !ok {
			return
		}
		live[h.Key] = rel
		paths[rel] = true
		if rel == "" {
			return
		}
		if err := os.MkdirAll(s.abs(rel), 0o755); err != nil {
			s.report.add(Diagnostic{Path: rel, Kind: component.KindFolder, Key: h.Key, Offset: -1, Err: err})
		}
	})
	var stale []string
	for k, rel := range s.dirs {
		if cur, ok := live[k]; (!ok || cur != rel) && !paths[rel] && rel != "" {
			stale = append(stale, rel)
		}
	}
	s.dirs = live
	return stale
}

// removeDirs removes the given directories, deepest first. A directory that
// still holds files the project does not know about is left in place.
func (s *Store) removeDirs(rels []string) {
	sort.Slice(rels, func(i, j int) bool {
		di, dj := strings.Count(rels[i], "/"), strings.Count(rels[j], "/")
		if di != dj {
			return di > dj
		}
		return rels[i] < rels[j]
	})
	for _, rel := range rels {
		err := os.Remove(s.abs(rel))
		switch {
		case err == nil:
			s.log.Debug("folder removed", zap.String("path", rel))
		case errors.Is(err, fs.ErrNotExist):
		default:
			s.log.Warn("folder kept", zap.String("path", rel), zap.Error(err))
		}
	}
}

func (s *Store) ensureFiles() {
	s.proj.Graphics.Each(func(h arena.Handle[component.Graphic], g *component.Graphic) {
		s.ensureFile(project.GraphicRoot(h), g)
	})
	s.proj.Palettes.Each(func(h arena.Handle[component.Palette], pl *component.Palette) {
		s.ensureFile(project.PaletteRoot(h), pl)
	})
}

// ensureFile gives a linked asset a backing file at its current path,
// writing its complete tree when the file has to be created.
func (s *Store) ensureFile(root arena.RootRef, a component.Asset) {
	if !s.proj.AssetLinked(root) {
		return
	}
	rel, ok := s.proj.AssetPath(a)
	if !ok {
		return
	}
	if af, ok := s.files[root]; ok {
		if af.rel == rel && fileExists(s.abs(rel)) {
			return
		}
		if err := af.pf.Close(); err != nil {
			s.log.Warn("close asset file", zap.String("path", af.rel), zap.Error(err))
		}
		if af.rel != rel {
			if err := s.removeFile(af.rel); err != nil {
				s.report.add(Diagnostic{Path: af.rel, Kind: root.Kind, Key: root.Key, Offset: -1, Err: err})
			}
		}
		delete(s.files, root)
	}
	s.dropRoot(root)
	pf, err := pagefile.Create(s.abs(rel), s.pageOpts())
	if err != nil {
		s.report.add(Diagnostic{Path: rel, Kind: root.Kind, Key: root.Key, Offset: -1, Err: err})
		return
	}
	s.files[root] = &assetFile{rel: rel, pf: pf}
	s.report.Files++
	s.writeTree(ref{kind: root.Kind, key: root.Key}, root)
}

// writeTree writes r into root's file. Children that are not stored in that
// file yet are written first, so the encoded child list carries valid
// pages.
func (s *Store) writeTree(r ref, root arena.RootRef) {
	b := s.bindings[r.kind]
	for _, c := range b.children(r.key) {
		loc, ok := s.bindings[c.kind].pages().Get(c.key)
		if ok && loc.Root == root {
			continue
		}
		s.writeTree(c, root)
	}
	af, ok := s.files[root]
	if !ok {
		return
	}
	page, err := s.place(b, r, root, af)
	if err != nil {
		s.fail(af, r, int64(page), err)
		return
	}
	doc, err := b.encode(r.key)
	if err != nil {
		s.fail(af, r, int64(page), err)
		return
	}
	data, err := s.codec.Marshal(doc)
	if err != nil {
		s.fail(af, r, int64(page), err)
		return
	}
	if err := af.pf.SetObjData(page, data); err != nil {
		s.fail(af, r, int64(page), err)
		return
	}
	s.written[r] = struct{}{}
	s.touched[root] = struct{}{}
	s.report.Objects++
}

// place returns the first page of r in root's file, moving r there from
// another file when needed.
func (s *Store) place(b binding, r ref, root arena.RootRef, af *assetFile) (pagefile.Ptr, error) {
	if r.kind == root.Kind && r.key == root.Key {
		page := af.pf.RootPage()
		b.pages().Set(r.key, arena.Location{Root: root, Page: uint64(page)})
		if af.pf.RootKey() != uint64(r.key) {
			if err := af.pf.SetRootKey(uint64(r.key)); err != nil {
				return page, err
			}
		}
		return page, nil
	}
	if loc, ok := b.pages().Get(r.key); ok {
		if loc.Root == root {
			return pagefile.Ptr(loc.Page), nil
		}
		s.release(b, r, loc)
	}
	page, err := af.pf.AllocPage()
	if err != nil {
		return 0, err
	}
	b.pages().Set(r.key, arena.Location{Root: root, Page: uint64(page)})
	return page, nil
}

// release frees the chain of an object that moved to another file.
func (s *Store) release(b binding, r ref, loc arena.Location) {
	b.pages().Delete(r.key)
	old, open := s.files[loc.Root]
	if !open || !s.proj.AssetLinked(loc.Root) {
		return
	}
	if err := old.pf.FreeChain(pagefile.Ptr(loc.Page)); err != nil {
		s.report.add(Diagnostic{Path: old.rel, Kind: r.kind, Key: r.key, Offset: int64(loc.Page), Err: err})
		return
	}
	s.touched[loc.Root] = struct{}{}
	s.report.Freed++
}

// failure is an object that could not be written during the current save.
type failure struct {
	ref
	err error
}

func (s *Store) fail(af *assetFile, r ref, offset int64, err error) {
	s.report.add(Diagnostic{Path: af.rel, Kind: r.kind, Key: r.key, Offset: offset, Err: err})
	s.failed = append(s.failed, failure{ref: r, err: err})
	s.log.Warn("object not saved",
		zap.String("path", af.rel),
		zap.Stringer("kind", r.kind),
		zap.Uint64("key", uint64(r.key)),
		zap.Error(err),
	)
}

func (s *Store) syncFiles() {
	for root := range s.touched {
		af, ok := s.files[root]
		if !ok {
			continue
		}
		if err := af.pf.Sync(); err != nil {
			s.report.add(Diagnostic{Path: af.rel, Kind: root.Kind, Key: root.Key, Offset: -1, Err: err})
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
