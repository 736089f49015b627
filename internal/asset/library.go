// Package asset layers naming and file identity over the ownership edges.
// Assets (graphics, palettes) own a paged file that is written lazily at
// save time and deleted outright whenever its name goes stale. Resources
// (audio) are externally authored files that are moved, never deleted:
// removing one quarantines the file in the trash directory.
package asset

import (
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/project"
)

var (
	ErrNotFound = errors.New("asset: not found")
	ErrInvalid  = errors.New("asset: invalid operation")
	ErrMissing  = errors.New("asset: resource file missing")
)

// BackingFiles removes the paged file of a root asset. rel is the file's
// relative path under the asset's current name and folder; implementations
// also drop any file they have open for root under another path.
type BackingFiles interface {
	RemoveAssetFile(root arena.RootRef, rel string) error
}

// Library runs asset, resource and folder operations for one project.
type Library struct {
	proj  *project.Project
	dir   string
	trash string
	files BackingFiles
	log   *zap.Logger
}

// NewLibrary binds a project rooted at dir. trashDir is relative to dir.
func NewLibrary(proj *project.Project, dir, trashDir string, files BackingFiles, log *zap.Logger) *Library {
	if log == nil {
		log = zap.NewNop()
	}
	return &Library{
		proj:  proj,
		dir:   dir,
		trash: filepath.Join(dir, trashDir),
		files: files,
		log:   log,
	}
}

func (l *Library) Project() *project.Project { return l.proj }
func (l *Library) abs(rel string) string      { return filepath.Join(l.dir, filepath.FromSlash(rel)) }

// removeAssetFile deletes the backing file of root under a's current path.
// Failures are logged: the steps calling this cannot fail.
func (l *Library) removeAssetFile(root arena.RootRef, a component.Asset) {
	if l.files == nil {
		return
	}
	rel, _ := l.proj.AssetPath(a)
	if err := l.files.RemoveAssetFile(root, rel); err != nil {
		l.log.Warn("remove asset file",
			zap.Stringer("kind", root.Kind),
			zap.Uint64("key", uint64(root.Key)),
			zap.Error(err),
		)
	}
}

func folderNames(p *project.Project, f *component.Folder, skip arena.Key) []string {
	names := make([]string, 0, len(f.Folders))
	for _, o := range f.Folders {
		if o.Key == skip {
			continue
		}
		if sub, ok := p.Folders.Get(o.Handle); ok {
			names = append(names, sub.Name)
		}
	}
	return names
}

func audioNames(p *project.Project, f *component.Folder, skip arena.Key) []string {
	names := make([]string, 0, len(f.Audio))
	for _, o := range f.Audio {
		if o.Key == skip {
			continue
		}
		if a, ok := p.Audio.Get(o.Handle); ok {
			names = append(names, a.Name)
		}
	}
	return names
}
