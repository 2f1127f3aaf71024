// Package events provides an event system for sweep and frame notifications.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventSweepStarted is emitted when a sweep begins
	EventSweepStarted EventType = "sweep_started"
	// EventFrameCalculated is emitted when a frame produced escaped points
	EventFrameCalculated EventType = "frame_calculated"
	// EventFrameEmpty is emitted when no point escaped in a frame
	EventFrameEmpty EventType = "frame_empty"
	// EventFrameWritten is emitted when a rendered frame was stored
	EventFrameWritten EventType = "frame_written"
	// EventEngineFailed is emitted when the engine hit a fatal error
	EventEngineFailed EventType = "engine_failed"
	// EventSweepCompleted is emitted when a sweep ends, successfully or not
	EventSweepCompleted EventType = "sweep_completed"
)

// Event represents a sweep or frame event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Sweep     string    `json:"sweep,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Frame    int    `json:"frame,omitempty"`
	Constant string `json:"constant,omitempty"`
	Points   int    `json:"points,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Path     string `json:"path,omitempty"`
	Frames   int    `json:"frames,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewSweepStartedEvent creates a sweep started event
func NewSweepStartedEvent(sweep string, frames int) Event {
	return Event{
		Type:      EventSweepStarted,
		Timestamp: time.Now(),
		Sweep:     sweep,
		Data: EventData{
			Frames: frames,
		},
	}
}

// NewFrameCalculatedEvent creates a frame calculated event
func NewFrameCalculatedEvent(frame int, constant string, points int, latency time.Duration) Event {
	return Event{
		Type:      EventFrameCalculated,
		Timestamp: time.Now(),
		Data: EventData{
			Frame:    frame,
			Constant: constant,
			Points:   points,
			Latency:  latency.String(),
		},
	}
}

// NewFrameEmptyEvent creates a frame empty event
func NewFrameEmptyEvent(frame int, constant string) Event {
	return Event{
		Type:      EventFrameEmpty,
		Timestamp: time.Now(),
		Data: EventData{
			Frame:    frame,
			Constant: constant,
		},
	}
}

// NewFrameWrittenEvent creates a frame written event
func NewFrameWrittenEvent(frame int, path string) Event {
	return Event{
		Type:      EventFrameWritten,
		Timestamp: time.Now(),
		Data: EventData{
			Frame: frame,
			Path:  path,
		},
	}
}

// NewEngineFailedEvent creates an engine failed event
func NewEngineFailedEvent(frame int, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventEngineFailed,
		Timestamp: time.Now(),
		Data: EventData{
			Frame: frame,
			Error: errMsg,
		},
	}
}

// NewSweepCompletedEvent creates a sweep completed event
func NewSweepCompletedEvent(sweep string, frames int, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventSweepCompleted,
		Timestamp: time.Now(),
		Sweep:     sweep,
		Data: EventData{
			Frames: frames,
			Error:  errMsg,
		},
	}
}

// WithSweep returns a copy of the event tagged with the sweep name
func (e Event) WithSweep(sweep string) Event {
	e.Sweep = sweep
	return e
}
