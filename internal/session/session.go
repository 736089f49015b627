// Package session ties a project, its asset library, its store on disk and
// the undo history into one edit session. A session is owned by a single
// goroutine.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/l1jgo/inkgraph/internal/asset"
	"github.com/l1jgo/inkgraph/internal/config"
	"github.com/l1jgo/inkgraph/internal/core/event"
	"github.com/l1jgo/inkgraph/internal/core/undo"
	"github.com/l1jgo/inkgraph/internal/persist"
	"github.com/l1jgo/inkgraph/internal/project"
)

// ErrNotEmpty is returned by Create for a directory that already holds files.
var ErrNotEmpty = errors.New("session: project directory not empty")

type Session struct {
	Project *project.Project
	Assets  *asset.Library
	Store   *persist.Store
	History *undo.Stack
	Bus     *event.Bus

	cfg *config.Config
	log *zap.Logger
}

func storeOptions(cfg *config.Config, log *zap.Logger) persist.Options {
	return persist.Options{
		PageDataSize: cfg.PageFile.DataSize,
		CompressOver: cfg.Record.CompressOver,
		TrashDir:     cfg.Project.TrashDir,
		Log:          log.Named("persist"),
	}
}

func assemble(cfg *config.Config, log *zap.Logger, store *persist.Store) *Session {
	proj := store.Project()
	s := &Session{
		Project: proj,
		Assets:  asset.NewLibrary(proj, store.Dir(), cfg.Project.TrashDir, store, log.Named("asset")),
		Store:   store,
		History: undo.NewStack(cfg.History.Depth),
		Bus:     event.NewBus(),
		cfg:     cfg,
		log:     log,
	}
	s.logEvents()
	return s
}

// Create starts a new, empty project in cfg.Project.Root. The directory is
// created when missing and must otherwise be empty.
func Create(cfg *config.Config, log *zap.Logger) (*Session, error) {
	dir := cfg.Project.Root
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("create project %s: %w", dir, err)
	case len(entries) > 0:
		return nil, fmt.Errorf("create project %s: %w", dir, ErrNotEmpty)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project %s: %w", dir, err)
	}
	store := persist.NewStore(dir, project.New(), storeOptions(cfg, log))
	log.Info("project created", zap.String("dir", dir))
	return assemble(cfg, log, store), nil
}

// Open loads the project in cfg.Project.Root. Objects that failed to load
// are listed in the report; the session is usable regardless.
func Open(cfg *config.Config, log *zap.Logger) (*Session, *persist.Report, error) {
	store, rep, err := persist.Load(cfg.Project.Root, storeOptions(cfg, log))
	if err != nil {
		return nil, nil, err
	}
	s := assemble(cfg, log, store)
	event.Emit(s.Bus, event.ProjectLoaded{Dir: store.Dir(), Objects: rep.Objects, Problems: len(rep.Diagnostics)})
	return s, rep, nil
}

// Do records an applied action in the history. Nil and empty actions are
// ignored; a non-nil err is passed through after releasing the action, so
// an edit call can be wrapped directly: s.Do(lib.RenameGraphic(h, "x")).
func (s *Session) Do(act *undo.Action, err error) error {
	if err != nil {
		act.Release()
		return err
	}
	if act.Empty() {
		return nil
	}
	s.History.Push(act)
	event.Emit(s.Bus, event.ActionApplied{Name: act.Name, Steps: act.Len()})
	return nil
}

// Undo reverts the most recent action. It reports false when there is none.
func (s *Session) Undo() bool {
	act, ok := s.History.Undo()
	if ok {
		event.Emit(s.Bus, event.ActionUndone{Name: act.Name})
	}
	return ok
}

// Redo reapplies the most recently undone action.
func (s *Session) Redo() bool {
	act, ok := s.History.Redo()
	if ok {
		event.Emit(s.Bus, event.ActionRedone{Name: act.Name})
	}
	return ok
}

// Save persists every change since the last save.
func (s *Session) Save() (*persist.Report, error) {
	rep, err := s.Store.Save()
	if err != nil {
		return rep, err
	}
	event.Emit(s.Bus, event.ProjectSaved{
		Dir:      s.Store.Dir(),
		Files:    rep.Files,
		Objects:  rep.Objects,
		Problems: len(rep.Diagnostics),
	})
	return rep, nil
}

// Flush delivers queued session events.
func (s *Session) Flush() int { return s.Bus.Flush() }

func (s *Session) Config() *config.Config { return s.cfg }
func (s *Session) Logger() *zap.Logger    { return s.log }

// Close delivers pending events, releases the history and closes open
// files. Unsaved changes are lost.
func (s *Session) Close() error {
	s.Bus.Flush()
	s.History.Clear()
	return s.Store.Close()
}
