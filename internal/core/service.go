package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gmvsync/internal/reconcile"
)

// RunTimeout is the maximum duration of one run.
var RunTimeout = 2 * time.Hour

// Runner imports one folder.
type Runner interface {
	Run(ctx context.Context, folder string) (*reconcile.Summary, error)
}

// Service starts runs and answers questions about them.
type Service struct {
	runner  Runner
	base    string
	gate    *RunGate
	history *History
	log     *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	active map[string]RunRecord
}

// NewService creates a Service importing folders below base.
func NewService(runner Runner, base string, gate *RunGate, history *History, log *slog.Logger) *Service {
	if gate == nil {
		gate = NewRunGate(DefaultMaxWaitTime)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		runner:  runner,
		base:    base,
		gate:    gate,
		history: history,
		log:     log,
		now:     time.Now,
		active:  make(map[string]RunRecord),
	}
}

// BaseFolder returns the folder import folders live in.
func (s *Service) BaseFolder() string {
	return s.base
}

// Start runs the import folder name in the background and returns the run
// id. It fails with ErrRunInProgress when another run does not finish in
// time.
func (s *Service) Start(ctx context.Context, name string, trigger Trigger) (string, error) {
	path, err := ResolveFolder(s.base, name)
	if err != nil {
		return "", err
	}
	if err := s.gate.Enter(ctx, name); err != nil {
		return "", err
	}

	rec := s.begin(ctx, name, trigger)
	// the run outlives the triggering request
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.gate.Leave()
		s.execute(runCtx, rec, path)
	}()
	return rec.ID, nil
}

// RunNow runs folder synchronously. folder is a name below the base folder
// or, for trusted callers such as the CLI, a path.
func (s *Service) RunNow(ctx context.Context, folder string, trigger Trigger) (RunRecord, error) {
	path := folder
	if !filepath.IsAbs(folder) && filepath.Base(folder) == folder {
		var err error
		if path, err = ResolveFolder(s.base, folder); err != nil {
			return RunRecord{}, err
		}
	}
	if err := s.gate.Enter(ctx, filepath.Base(path)); err != nil {
		return RunRecord{}, err
	}
	defer s.gate.Leave()

	run := s.execute(ctx, s.begin(ctx, filepath.Base(path), trigger), path)
	return run.RunRecord, run.err
}

// RunLatest starts a run of the newest import folder.
func (s *Service) RunLatest(ctx context.Context, trigger Trigger) (string, error) {
	folders, err := ListFolders(s.base)
	if err != nil {
		return "", err
	}
	for _, f := range folders {
		if f.HasData {
			return s.Start(ctx, f.Name, trigger)
		}
	}
	return "", fmt.Errorf("%w: no import folder below %s", reconcile.ErrFolderNotFound, s.base)
}

// Get returns the run with id, active or historical.
func (s *Service) Get(ctx context.Context, id string) (RunRecord, error) {
	s.mu.RLock()
	rec, ok := s.active[id]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}
	if s.history == nil {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return s.history.Get(ctx, id)
}

// List returns recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]RunRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx, limit)
}

// Folders lists the import folders, newest first.
func (s *Service) Folders() ([]Folder, error) {
	return ListFolders(s.base)
}

// Status reports the active run, if any.
func (s *Service) Status() GateStatus {
	return s.gate.Status()
}

// Shutdown waits for the active run to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.gate.Wait(ctx)
}

// trackedRun carries the run error next to the record.
type trackedRun struct {
	RunRecord
	err error
}

func (s *Service) begin(ctx context.Context, folder string, trigger Trigger) RunRecord {
	rec := RunRecord{
		ID:      uuid.NewString(),
		Folder:  folder,
		Trigger: trigger,
		Status:  StatusRunning,
		Started: s.now(),
	}
	s.mu.Lock()
	s.active[rec.ID] = rec
	s.mu.Unlock()
	s.save(ctx, rec)
	return rec
}

func (s *Service) execute(ctx context.Context, rec RunRecord, path string) trackedRun {
	log := s.log.With("run_id", rec.ID, "folder", rec.Folder, "trigger", rec.Trigger)
	log.Info("run started")

	ctx, cancel := context.WithTimeout(ctx, RunTimeout)
	defer cancel()

	summary, err := s.runner.Run(ctx, path)
	finished := s.now()
	rec.Finished = &finished
	rec.Summary = summary
	if summary != nil {
		rec.LogPath = summary.LogPath
	}

	if err != nil {
		msg := MapError(err)
		rec.Status = StatusFailed
		rec.Error = err.Error()
		rec.ErrorCode = msg.Code
		log.Error("run failed", "error", err, "code", msg.Code)
	} else {
		rec.Status = StatusSucceeded
		total := summary.Total()
		log.Info("run finished",
			"created", total.Created, "updated", total.Updated,
			"failed", total.Failed, "duration", finished.Sub(rec.Started))
	}

	s.save(ctx, rec)
	s.mu.Lock()
	delete(s.active, rec.ID)
	s.mu.Unlock()
	return trackedRun{RunRecord: rec, err: err}
}

func (s *Service) save(ctx context.Context, rec RunRecord) {
	if s.history == nil {
		return
	}
	// history is written even when the run was cancelled
	if err := s.history.Save(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Error("cannot save run history", "run_id", rec.ID, "error", err)
	}
}

// IsNotFound reports whether err means a run or folder does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound) || errors.Is(err, reconcile.ErrFolderNotFound)
}
