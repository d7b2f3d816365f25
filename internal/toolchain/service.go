// Package toolchain coordinates command executions for every front end:
// it serializes runs, records them in the history store and publishes
// execution events.
package toolchain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/ide"
	"github.com/starford/raido/internal/sse"
)

// Publisher receives execution events.
type Publisher interface {
	Publish(sse.Event)
}

// Option is a functional option for configuring a Service.
type Option func(*Service)

// WithHistory records every run in store.
func WithHistory(store history.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithPublisher publishes execution events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service runs the commands of one executor, one at a time.
type Service struct {
	mu      sync.Mutex
	exec    *ide.Executor
	history history.Store
	events  Publisher
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new toolchain service.
func NewService(exec *ide.Executor, opts ...Option) *Service {
	s := &Service{
		exec:   exec,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the IDE name of the loaded configuration.
func (s *Service) Name() string {
	return s.exec.Configuration().Name()
}

// Commands returns the configured commands in declared order.
func (s *Service) Commands() []ide.Command {
	return s.exec.Commands()
}

// Command looks a command up by name. Unknown names yield apperr.ErrNotFound.
func (s *Service) Command(name string) (ide.Command, error) {
	return s.exec.Configuration().Command(name)
}

// Run executes the named command. The returned record describes the run
// whether or not it succeeded; err is the execution failure, if any.
func (s *Service) Run(ctx context.Context, name string, interactive bool) (*history.Record, error) {
	cmd, err := s.Command(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.publish(sse.EventCommandStarted, map[string]any{"command": cmd.Name, "interactive": interactive})
	started := s.now()
	res, execErr := s.exec.Execute(ctx, cmd, interactive)

	rec := history.Record{
		Command:   cmd.Name,
		Outcome:   history.OutcomeOK,
		Args:      []string{},
		StartedAt: started,
		Duration:  s.now().Sub(started),
	}
	if res != nil {
		rec.Dir = res.Dir
		rec.Args = res.Args
		rec.Artifact = res.Artifact
		rec.ArtifactChecksum = res.ArtifactChecksum
	}
	if execErr != nil {
		rec.Outcome = history.OutcomeError
		rec.Error = execErr.Error()
	}

	if s.history != nil {
		// A history failure does not fail the run.
		id, err := s.history.Append(ctx, rec)
		if err != nil {
			s.logger.Warn("toolchain: record history failed",
				slog.String("command", cmd.Name),
				slog.String("error", err.Error()))
		} else {
			rec.ID = id
		}
	}

	if execErr != nil {
		s.logger.Info("toolchain: command failed",
			slog.String("command", cmd.Name),
			slog.String("error", execErr.Error()))
		s.publish(sse.EventCommandFailed, rec)
		return &rec, execErr
	}
	s.logger.Info("toolchain: command dispatched",
		slog.String("command", cmd.Name),
		slog.String("dir", rec.Dir))
	s.publish(sse.EventCommandCompleted, rec)
	return &rec, nil
}

// History returns recent executions, newest first. An empty command
// matches every command. Without a history store the result is empty.
func (s *Service) History(ctx context.Context, command string, limit int) ([]history.Record, error) {
	if s.history == nil {
		return []history.Record{}, nil
	}
	recs, err := s.history.Recent(ctx, command, limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []history.Record{}
	}
	return recs, nil
}

func (s *Service) publish(kind string, data any) {
	if s.events == nil {
		return
	}
	s.events.Publish(sse.Event{Type: kind, Data: data})
}
