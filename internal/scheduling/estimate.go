package scheduling

import "time"

// complexityChars is the notes length that adds one base duration to an estimate.
const complexityChars = 500

// Estimator derives the time a task needs.
type Estimator interface {
	Estimate(task TaskRef) time.Duration
}

// HeuristicEstimator scales a per-priority base duration by the length of the
// task notes: base * (1 + notesLength/500).
type HeuristicEstimator struct{}

// Estimate implements Estimator.
func (HeuristicEstimator) Estimate(task TaskRef) time.Duration {
	notes := max(task.NotesLength, 0)
	factor := 1 + float64(notes)/complexityChars
	return time.Duration(float64(BaseDuration(task.Priority)) * factor)
}

// BaseDuration returns the duration of a task with empty notes.
func BaseDuration(priority int) time.Duration {
	switch priority {
	case 3:
		return time.Hour
	case 2:
		return 30 * time.Minute
	case 1:
		return 15 * time.Minute
	default:
		return 20 * time.Minute
	}
}
