package asset

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/component"
	"github.com/l1jgo/inkgraph/internal/core/arena"
	"github.com/l1jgo/inkgraph/internal/core/undo"
)

// quarantine moves the file at rel into the trash directory under a unique
// name and returns the trash path.
func (l *Library) quarantine(rel string) (string, error) {
	if err := os.MkdirAll(l.trash, 0o755); err != nil {
		return "", fmt.Errorf("trash %s: %w", rel, err)
	}
	dst := filepath.Join(l.trash, uuid.NewString()+"_"+path.Base(rel))
	if err := os.Rename(l.abs(rel), dst); err != nil {
		return "", fmt.Errorf("trash %s: %w", rel, err)
	}
	l.log.Info("resource quarantined", zap.String("path", rel), zap.String("trash", dst))
	return dst, nil
}

// restore moves a quarantined file back to rel.
func (l *Library) restore(trashed, rel string) error {
	dst := l.abs(rel)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("restore %s: %w", rel, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("restore %s: %w", rel, err)
	}
	if err := os.Rename(trashed, dst); err != nil {
		return fmt.Errorf("restore %s: %w", rel, err)
	}
	l.log.Info("resource restored", zap.String("path", rel))
	return nil
}

// trashCell remembers where a quarantined file went between undo and redo.
type trashCell struct {
	rel     string
	trashed string
}

func (c *trashCell) out(l *Library) {
	if c.trashed != "" {
		return
	}
	t, err := l.quarantine(c.rel)
	if err != nil {
		l.log.Warn("quarantine failed", zap.String("path", c.rel), zap.Error(err))
		return
	}
	c.trashed = t
}

func (c *trashCell) back(l *Library) {
	if c.trashed == "" {
		return
	}
	if err := l.restore(c.trashed, c.rel); err != nil {
		l.log.Warn("restore failed", zap.String("path", c.rel), zap.Error(err))
		return
	}
	c.trashed = ""
}

// ImportResource copies the external file src into folder and links a new
// audio resource for it. Undo quarantines the copy, redo brings it back.
func (l *Library) ImportResource(folder arena.Handle[component.Folder], src string) (arena.Handle[component.Audio], *undo.Action, error) {
	f, ok := l.proj.Folders.Get(folder)
	if !ok {
		return arena.Handle[component.Audio]{}, nil, fmt.Errorf("import %s: folder %s: %w", src, folder, ErrNotFound)
	}
	if !component.IsAudioFile(src) {
		return arena.Handle[component.Audio]{}, nil, fmt.Errorf("import %s: unsupported file type: %w", src, ErrInvalid)
	}
	dirRel, ok := l.proj.FolderPath(folder)
	if !ok {
		return arena.Handle[component.Audio]{}, nil, fmt.Errorf("import %s: folder %s detached: %w", src, folder, ErrInvalid)
	}
	name := DedupeFile(filepath.Base(src), audioNames(l.proj, f, 0))
	rel := path.Join(dirRel, name)
	if err := os.MkdirAll(filepath.Dir(l.abs(rel)), 0o755); err != nil {
		return arena.Handle[component.Audio]{}, nil, fmt.Errorf("import %s: %w", src, err)
	}
	if err := copyFile(src, l.abs(rel)); err != nil {
		return arena.Handle[component.Audio]{}, nil, fmt.Errorf("import %s: %w", src, err)
	}
	hash, size, err := HashFile(l.abs(rel))
	if err != nil {
		os.Remove(l.abs(rel))
		return arena.Handle[component.Audio]{}, nil, err
	}

	h, act, err := l.proj.FolderAudio.AddAtIndex(folder, &component.Audio{
		Name: name, Path: rel, Hash: hash, Size: size,
	}, -1)
	if err != nil {
		os.Remove(l.abs(rel))
		return arena.Handle[component.Audio]{}, nil, err
	}
	c := &trashCell{rel: rel}
	act.Push(undo.Step{
		Redo: func() { c.back(l) },
		Undo: func() { c.out(l) },
	})
	l.log.Info("resource imported", zap.String("path", rel), zap.Int64("size", size))
	return h, act, nil
}

// DeleteResource unlinks h and moves its file into the trash. Undo moves it
// back; redo quarantines it again.
func (l *Library) DeleteResource(h arena.Handle[component.Audio]) (*undo.Action, error) {
	a, ok := l.proj.Audio.Get(h)
	if !ok {
		return nil, nil
	}
	c := &trashCell{rel: a.Path}
	c.out(l)
	del, err := l.proj.FolderAudio.Delete(h)
	if del == nil {
		c.back(l)
		return nil, err
	}
	file := undo.Step{
		Redo: func() { c.out(l) },
		Undo: func() { c.back(l) },
	}
	return undo.New("audio delete", file).Append(del), nil
}

// moveResource renames the file of h to rel and updates its name and path.
func (l *Library) moveResource(h arena.Handle[component.Audio], name, rel string) error {
	a, ok := l.proj.Audio.GetMut(h)
	if !ok {
		return fmt.Errorf("move audio %s: %w", h, ErrNotFound)
	}
	if a.Path != rel {
		dst := l.abs(rel)
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("move %s: %s: %w", a.Path, rel, fs.ErrExist)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("move %s: %w", a.Path, err)
		}
		if err := os.Rename(l.abs(a.Path), dst); err != nil {
			return fmt.Errorf("move %s: %w", a.Path, err)
		}
	}
	a.Name, a.Path = name, rel
	return nil
}

func (l *Library) moveStep(h arena.Handle[component.Audio], fromName, fromRel, toName, toRel string) undo.Step {
	run := func(name, rel string) {
		if err := l.moveResource(h, name, rel); err != nil {
			l.log.Warn("resource move failed", zap.String("path", rel), zap.Error(err))
		}
	}
	return undo.Step{
		Redo: func() { run(toName, toRel) },
		Undo: func() { run(fromName, fromRel) },
	}
}

// RenameResource renames the resource and its file. The extension is kept
// when name has none.
func (l *Library) RenameResource(h arena.Handle[component.Audio], name string) (*undo.Action, error) {
	a, ok := l.proj.Audio.Get(h)
	if !ok {
		return nil, fmt.Errorf("rename audio %s: %w", h, ErrNotFound)
	}
	if !validName(name) {
		return nil, fmt.Errorf("rename audio %q: %w", name, ErrInvalid)
	}
	f, ok := l.proj.Folders.Get(a.Folder)
	if !ok {
		return nil, fmt.Errorf("rename audio %s: folder: %w", h, ErrNotFound)
	}
	if path.Ext(name) == "" {
		name += path.Ext(a.Name)
	}
	next := DedupeFile(name, audioNames(l.proj, f, h.Key))
	if next == a.Name {
		return nil, nil
	}
	fromName, fromRel := a.Name, a.Path
	toRel := path.Join(path.Dir(fromRel), next)
	if err := l.moveResource(h, next, toRel); err != nil {
		return nil, err
	}
	return undo.New("audio rename", l.moveStep(h, fromName, fromRel, next, toRel)), nil
}

// TransferResource moves the resource and its file into folder.
func (l *Library) TransferResource(h arena.Handle[component.Audio], folder arena.Handle[component.Folder]) (*undo.Action, error) {
	a, ok := l.proj.Audio.Get(h)
	if !ok {
		return nil, fmt.Errorf("transfer audio %s: %w", h, ErrNotFound)
	}
	if a.Folder == folder {
		return nil, nil
	}
	f, ok := l.proj.Folders.Get(folder)
	if !ok {
		return nil, fmt.Errorf("transfer audio: folder %s: %w", folder, ErrNotFound)
	}
	dirRel, ok := l.proj.FolderPath(folder)
	if !ok {
		return nil, fmt.Errorf("transfer audio: folder %s detached: %w", folder, ErrInvalid)
	}
	fromName, fromRel := a.Name, a.Path
	toName := DedupeFile(a.Name, audioNames(l.proj, f, h.Key))
	toRel := path.Join(dirRel, toName)
	if err := l.moveResource(h, toName, toRel); err != nil {
		return nil, err
	}
	move, err := l.proj.FolderAudio.Transfer(h, folder)
	if err != nil || move == nil {
		if rerr := l.moveResource(h, fromName, fromRel); rerr != nil {
			err = multierr.Append(err, rerr)
		}
		return nil, err
	}
	return undo.New("audio transfer", l.moveStep(h, fromName, fromRel, toName, toRel)).Append(move), nil
}

// Relocate finds the file of a resource that was renamed or moved outside
// the editor, by size and content hash. It updates the stored name and path
// when the file turns up in the same folder; a file found in another folder
// is also transferred there. A nil action means the file is where it should
// be.
func (l *Library) Relocate(h arena.Handle[component.Audio]) (*undo.Action, error) {
	a, ok := l.proj.Audio.Get(h)
	if !ok {
		return nil, fmt.Errorf("relocate audio %s: %w", h, ErrNotFound)
	}
	if hash, _, err := HashFile(l.abs(a.Path)); err == nil && hash == a.Hash {
		return nil, nil
	}
	from := a.Path
	found, err := l.findByHash(a.Hash, a.Size)
	if err != nil {
		return nil, err
	}
	if found == "" {
		return nil, fmt.Errorf("relocate %s: %w", from, ErrMissing)
	}
	dirRel := path.Dir(found)
	if dirRel == "." {
		dirRel = ""
	}
	folder, ok := l.proj.FolderByPath(dirRel)
	if !ok {
		return nil, fmt.Errorf("relocate %s: found at %s outside any folder: %w", from, found, ErrInvalid)
	}
	name := path.Base(found)
	act := undo.New("audio relocate")
	fields, err := l.relink(h, name, found)
	if err != nil {
		return nil, err
	}
	act.Append(fields)
	if folder != a.Folder {
		move, err := l.proj.FolderAudio.Transfer(h, folder)
		if err != nil {
			act.Undo()
			return nil, err
		}
		act.Append(move)
	}
	l.log.Info("resource relocated", zap.String("from", from), zap.String("to", found))
	return act, nil
}

// relink updates name and path of h without touching files.
func (l *Library) relink(h arena.Handle[component.Audio], name, rel string) (*undo.Action, error) {
	a, ok := l.proj.Audio.GetMut(h)
	if !ok {
		return nil, fmt.Errorf("relink audio %s: %w", h, ErrNotFound)
	}
	fromName, fromRel := a.Name, a.Path
	apply := func(name, rel string) {
		if a, ok := l.proj.Audio.GetMut(h); ok {
			a.Name, a.Path = name, rel
		}
	}
	apply(name, rel)
	return undo.New("audio relink", undo.Step{
		Redo: func() { apply(name, rel) },
		Undo: func() { apply(fromName, fromRel) },
	}), nil
}

// findByHash walks the project directory, trash excluded, for a file with
// the given size and content hash.
func (l *Library) findByHash(hash string, size int64) (string, error) {
	var found string
	err := filepath.WalkDir(l.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p == l.trash || (p != l.dir && strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if !component.IsAudioFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() != size {
			return nil
		}
		if got, _, err := HashFile(p); err == nil && got == hash {
			rel, err := filepath.Rel(l.dir, p)
			if err != nil {
				return nil
			}
			found = filepath.ToSlash(rel)
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("relocate: %w", err)
	}
	return found, nil
}
