package core

// scheduler.go triggers runs in the background.
//
// Two triggers exist:
//  1. A cron expression runs the newest import folder.
//  2. A watcher on the base folder runs a new import folder once nothing
//     has changed inside it for the debounce period.
//
// The scheduler is long-running and context-aware for graceful shutdown. A
// failed or rejected run is logged and never stops the scheduler.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/gmvsync/internal/logging"
)

// Scheduler owns the cron and watch triggers of a Service.
type Scheduler struct {
	svc *Service
	log *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	timers  map[string]*time.Timer
}

// NewScheduler creates a scheduler for svc. Nothing runs until Schedule or
// Watch is called.
func NewScheduler(svc *Service, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{svc: svc, log: log, timers: make(map[string]*time.Timer)}
}

// Schedule runs the newest import folder on every tick of spec (standard
// five field cron syntax).
func (s *Scheduler) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		s.log.Info("scheduled run triggered", "schedule", spec)
		id, err := s.svc.RunLatest(ctx, TriggerSchedule)
		if err != nil {
			s.log.Error("scheduled run not started", "error", err)
			return
		}
		s.log.Info("scheduled run started", "run_id", id)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.log.Info("run schedule active", "schedule", spec)
	return nil
}

// Watch runs import folders created below the base folder. A folder runs
// once no file inside it has changed for debounce.
func (s *Scheduler) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	base, err := filepath.Abs(s.svc.BaseFolder())
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.svc.BaseFolder(), err)
	}
	if err := watcher.Add(base); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", base, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.watcher = watcher
	s.cancel = cancel
	s.mu.Unlock()

	go s.loop(watchCtx, watcher, base, debounce)
	s.log.Info("watching for new import folders", "folder", base, "debounce", debounce)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, watcher *fsnotify.Watcher, base string, debounce time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			name, ok := folderOf(base, event.Name)
			if !ok || strings.HasPrefix(filepath.Base(event.Name), logging.RunLogPrefix) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					s.watchTree(watcher, event.Name)
				}
			}
			s.arm(ctx, name, debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("folder watch error", "error", err)
		}
	}
}

// watchTree adds dir and its sub directories to the watcher.
func (s *Scheduler) watchTree(watcher *fsnotify.Watcher, dir string) {
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			s.log.Warn("cannot watch folder", "folder", path, "error", err)
		}
		return nil
	})
}

// arm (re)starts the debounce timer of an import folder.
func (s *Scheduler) arm(ctx context.Context, name string, debounce time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
	}
	s.timers[name] = time.AfterFunc(debounce, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()

		s.log.Info("new import folder detected", "folder", name)
		id, err := s.svc.Start(ctx, name, TriggerWatch)
		if err != nil {
			level := slog.LevelError
			if errors.Is(err, ErrRunInProgress) {
				level = slog.LevelWarn
			}
			s.log.Log(ctx, level, "watched folder run not started", "folder", name, "error", err)
			return
		}
		s.log.Info("watched folder run started", "folder", name, "run_id", id)
	})
}

// Stop ends all triggers. Runs already started keep going.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}

// folderOf returns the import folder name path belongs to.
func folderOf(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	name, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	return name, true
}
