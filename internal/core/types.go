package core

import (
	"time"

	"github.com/JonMunkholm/gmvsync/internal/reconcile"
)

// RunStatus is the state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerAPI      Trigger = "api"
	TriggerSchedule Trigger = "schedule"
	TriggerWatch    Trigger = "watch"
)

// RunRecord describes one run.
type RunRecord struct {
	ID        string             `json:"id"`
	Folder    string             `json:"folder"`
	Trigger   Trigger            `json:"trigger"`
	Status    RunStatus          `json:"status"`
	Started   time.Time          `json:"started"`
	Finished  *time.Time         `json:"finished,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorCode string             `json:"error_code,omitempty"`
	LogPath   string             `json:"log_path,omitempty"`
	Summary   *reconcile.Summary `json:"summary,omitempty"`
}

// Done reports whether the run has finished.
func (r RunRecord) Done() bool {
	return r.Status != StatusRunning
}

// Folder is an import folder below the base folder.
type Folder struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
	// HasData is false when the export sub folder is missing.
	HasData bool `json:"has_data"`
}
