package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one recorded sweep.
type Run struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Workers    int       `json:"workers"`
	Frames     int       `json:"frames"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Frame is one calculated frame of a run.
type Frame struct {
	RunID    string        `json:"run_id"`
	Index    int           `json:"index"`
	Constant complex128    `json:"-"`
	Points   int           `json:"points"`
	Empty    bool          `json:"empty"`
	Latency  time.Duration `json:"latency"`
	Path     string        `json:"path,omitempty"`
}
