// Package telemetry carries scheduling events to observers. Recorders must not
// block and must never influence a scheduling outcome.
package telemetry

import (
	"log/slog"
	"time"
)

// Event names as published to external observers.
const (
	EventSlotsGenerated    = "smart_slots_generated"
	EventTaskAutoScheduled = "task_auto_scheduled"
)

// SlotsGenerated is reported after every slot suggestion pass.
type SlotsGenerated struct {
	Priority         int           `json:"priority"`
	SlotsFound       int           `json:"slotsFound"`
	RequiredDuration time.Duration `json:"requiredDuration"`
}

// TaskAutoScheduled is reported after a task's slot has been committed.
type TaskAutoScheduled struct {
	TaskID     string    `json:"taskId"`
	Priority   int       `json:"priority"`
	SlotStart  time.Time `json:"slotStart"`
	IsDeepWork bool      `json:"isDeepWork"`
}

// Recorder observes scheduling events.
type Recorder interface {
	SlotsGenerated(e SlotsGenerated)
	TaskAutoScheduled(e TaskAutoScheduled)
}

// Nop discards every event.
type Nop struct{}

func (Nop) SlotsGenerated(SlotsGenerated)       {}
func (Nop) TaskAutoScheduled(TaskAutoScheduled) {}

// Multi fans events out to several recorders. A panicking recorder is logged
// and skipped so the others still run.
type Multi struct {
	recorders []Recorder
	logger    *slog.Logger
}

// NewMulti creates a fan-out recorder. Nil recorders are ignored.
func NewMulti(logger *slog.Logger, recorders ...Recorder) *Multi {
	m := &Multi{logger: logger}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// SlotsGenerated implements Recorder.
func (m *Multi) SlotsGenerated(e SlotsGenerated) {
	for _, r := range m.recorders {
		m.guard(EventSlotsGenerated, func() { r.SlotsGenerated(e) })
	}
}

// TaskAutoScheduled implements Recorder.
func (m *Multi) TaskAutoScheduled(e TaskAutoScheduled) {
	for _, r := range m.recorders {
		m.guard(EventTaskAutoScheduled, func() { r.TaskAutoScheduled(e) })
	}
}

func (m *Multi) guard(event string, fn func()) {
	defer func() {
		if p := recover(); p != nil && m.logger != nil {
			m.logger.Warn("telemetry: recorder panicked", slog.String("event", event), slog.Any("panic", p))
		}
	}()
	fn()
}
