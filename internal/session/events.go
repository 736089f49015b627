package session

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/inkgraph/internal/core/event"
)

// logEvents subscribes the session logger to every session event. Saves and
// loads that left problems behind are logged as warnings.
func (s *Session) logEvents() {
	log := s.log.Named("session")
	event.Subscribe(s.Bus, func(e event.ActionApplied) {
		log.Debug("action applied", zap.String("action", e.Name), zap.Int("steps", e.Steps))
	})
	event.Subscribe(s.Bus, func(e event.ActionUndone) {
		log.Debug("action undone", zap.String("action", e.Name))
	})
	event.Subscribe(s.Bus, func(e event.ActionRedone) {
		log.Debug("action redone", zap.String("action", e.Name))
	})
	event.Subscribe(s.Bus, func(e event.ProjectSaved) {
		log.Log(problemLevel(e.Problems), "project saved",
			zap.String("dir", e.Dir),
			zap.Int("files", e.Files),
			zap.Int("objects", e.Objects),
			zap.Int("problems", e.Problems),
		)
	})
	event.Subscribe(s.Bus, func(e event.ProjectLoaded) {
		log.Log(problemLevel(e.Problems), "project loaded",
			zap.String("dir", e.Dir),
			zap.Int("objects", e.Objects),
			zap.Int("problems", e.Problems),
		)
	})
}

func problemLevel(n int) zapcore.Level {
	if n > 0 {
		return zapcore.WarnLevel
	}
	return zapcore.DebugLevel
}
