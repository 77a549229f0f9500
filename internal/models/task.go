// Package models defines the domain types for Sowilo.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Task priorities. Zero means the task was never prioritised.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// Task is a unit of work that can be placed on the calendar.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsDeleted   bool       `json:"is_deleted,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  time.Time  `json:"modified_at"`
}

// IsCompleted reports whether the task has been completed.
func (t Task) IsCompleted() bool { return t.CompletedAt != nil }

// IsScheduled reports whether the task has a due date.
func (t Task) IsScheduled() bool { return t.DueDate != nil }

// ParsePriority maps "low", "medium" and "high" (or "1".."3") to a priority.
// The empty string and "none" map to PriorityNone.
func ParsePriority(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "0":
		return PriorityNone, nil
	case "low", "1":
		return PriorityLow, nil
	case "medium", "2":
		return PriorityMedium, nil
	case "high", "3":
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// PriorityName is the inverse of ParsePriority.
func PriorityName(p int) string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return "none"
}
