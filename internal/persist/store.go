// Package persist saves a project into one paged file per root asset and
// loads it back. Folders map to directories and audio resources to the files
// they name; only graphics and palettes (with everything nested in them) are
// paged.
package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/system"
	"github.com/l1jgo/inkgraph/internal/pagefile"
	"github.com/l1jgo/inkgraph/internal/project"
	"github.com/l1jgo/inkgraph/internal/record"
)

// DefaultTrashDir is the quarantine directory skipped by loads.
const DefaultTrashDir = ".trash"

// Options configures a Store.
type Options struct {
	PageDataSize int    // data bytes per page for new files
	CompressOver int    // zstd threshold for records, 0 disables
	TrashDir     string // relative to the project root
	Log          *zap.Logger
}

type assetFile struct {
	rel string
	pf  *pagefile.File
}

// Store binds a project to its directory on disk.
type Store struct {
	dir   string
	opts  Options
	proj  *project.Project
	codec record.Codec
	log   *zap.Logger

	files    map[arena.RootRef]*assetFile
	dirs     map[arena.Key]string
	bindings map[arena.Kind]binding
	runner   *system.Runner

	// per save
	written map[ref]struct{}
	touched map[arena.RootRef]struct{}
	failed  []failure
	report  *Report
}

// NewStore binds proj to dir without reading anything. Use Load for an
// existing project.
func NewStore(dir string, proj *project.Project, opts Options) *Store {
	if opts.TrashDir == "" {
		opts.TrashDir = DefaultTrashDir
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		dir:   dir,
		opts:  opts,
		proj:  proj,
		codec: record.Codec{CompressOver: opts.CompressOver},
		log:   log,
		files: make(map[arena.RootRef]*assetFile),
		dirs:  make(map[arena.Key]string),
	}
	s.bind()
	return s
}

func (s *Store) Dir() string                { return s.dir }
func (s *Store) Project() *project.Project  { return s.proj }
func (s *Store) TrashDir() string           { return filepath.Join(s.dir, s.opts.TrashDir) }
func (s *Store) abs(rel string) string      { return filepath.Join(s.dir, filepath.FromSlash(rel)) }
func (s *Store) pageOpts() pagefile.Options { return pagefile.Options{DataSize: s.opts.PageDataSize, Log: s.log} }

// RemoveAssetFile deletes the backing file of a root asset right away. It is
// called by asset operations whenever a file name goes stale; the next save
// writes a fresh file at the current path. A missing file is not an error.
func (s *Store) RemoveAssetFile(root arena.RootRef, rel string) error {
	if af, ok := s.files[root]; ok {
		if err := af.pf.Close(); err != nil {
			s.log.Warn("close asset file", zap.String("path", af.rel), zap.Error(err))
		}
		if af.rel != rel {
			s.removeFile(af.rel)
		}
		delete(s.files, root)
	}
	s.dropRoot(root)
	return s.removeFile(rel)
}

func (s *Store) removeFile(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(s.abs(rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	if err == nil {
		s.log.Debug("asset file removed", zap.String("path", rel))
	}
	return nil
}

// dropRoot forgets every page location stored in root's file.
func (s *Store) dropRoot(root arena.RootRef) {
	for _, b := range s.bindings {
		b.pages().DropRoot(root)
	}
}

// Close closes every open asset file.
func (s *Store) Close() error {
	var err error
	for root, af := range s.files {
		if cerr := af.pf.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", af.rel, cerr))
		}
		delete(s.files, root)
	}
	return err
}

// OpenFiles reports how many asset files are currently open.
func (s *Store) OpenFiles() int { return len(s.files) }

// FilePath returns the relative path of root's backing file, if it has one.
func (s *Store) FilePath(root arena.RootRef) (string, bool) {
	af, ok := s.files[root]
	if !ok {
		return "", false
	}
	return af.rel, true
}

func kindOfExt(ext string) (arena.Kind, bool) {
	switch ext {
	case component.GraphicExt:
		return component.KindGraphic, true
	case component.PaletteExt:
		return component.KindPalette, true
	}
	return 0, false
}
