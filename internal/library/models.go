package library

import (
	"time"

	"mantra/internal/filters"
)

// Status is the lifecycle state of a recorded render.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Render is one row of render history.
type Render struct {
	ID           string
	CreatedAt    time.Time
	Source       string
	OutputPath   string
	Beat         string
	Reverb       filters.ReverbSettings
	Volumes      filters.VolumeSettings
	Duration     time.Duration
	Status       Status
	ErrorKind    string
	ErrorMessage string
}

// IsTerminal reports whether the render has finished either way.
func (r Render) IsTerminal() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}
