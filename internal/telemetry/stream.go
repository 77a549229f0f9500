package telemetry

// Publisher delivers a named event without blocking. It reports false when
// the event was dropped.
type Publisher interface {
	TryPublish(eventType string, data any) bool
}

// StreamRecorder forwards scheduling events to a Publisher, typically the SSE broker.
type StreamRecorder struct {
	pub Publisher
}

// NewStreamRecorder creates a recorder publishing to pub.
func NewStreamRecorder(pub Publisher) *StreamRecorder {
	return &StreamRecorder{pub: pub}
}

// SlotsGenerated implements Recorder.
func (s *StreamRecorder) SlotsGenerated(e SlotsGenerated) {
	s.pub.TryPublish(EventSlotsGenerated, map[string]any{
		"priority":         e.Priority,
		"slotsFound":       e.SlotsFound,
		"requiredDuration": e.RequiredDuration.String(),
	})
}

// TaskAutoScheduled implements Recorder.
func (s *StreamRecorder) TaskAutoScheduled(e TaskAutoScheduled) {
	s.pub.TryPublish(EventTaskAutoScheduled, e)
}
