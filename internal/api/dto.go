package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/calendar"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/taskservice"
)

// Priority accepts either a number (0-3) or one of "low", "medium", "high".
type Priority int

// UnmarshalJSON implements json.Unmarshaler.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("priority must be a number or a name")
		}
		s = strconv.Itoa(n)
	}
	v, err := models.ParsePriority(s)
	if err != nil {
		return err
	}
	*p = Priority(v)
	return nil
}

// TaskRequest is the request body for creating or replacing a task.
type TaskRequest struct {
	ID       string     `json:"id,omitempty" example:"b7c1..."`
	Title    string     `json:"title" example:"Write quarterly report" validate:"required"`
	Notes    string     `json:"notes,omitempty"`
	Priority Priority   `json:"priority" example:"3"`
	DueDate  *time.Time `json:"due_date,omitempty"`
	Version  int64      `json:"version,omitempty" example:"1"`
}

func (r TaskRequest) input() taskservice.TaskInput {
	return taskservice.TaskInput{
		ID:       r.ID,
		Title:    r.Title,
		Notes:    r.Notes,
		Priority: int(r.Priority),
		DueDate:  r.DueDate,
	}
}

// TaskListResponse wraps paginated task listings.
// ServerTime is set for change feeds and is the cursor for the next one.
type TaskListResponse struct {
	Tasks      []models.Task `json:"tasks" validate:"required"`
	Total      int           `json:"total" example:"42" validate:"required"`
	ServerTime *time.Time    `json:"server_time,omitempty"`
}

// SuggestionsResponse lists ranked slots for a task, best first.
type SuggestionsResponse struct {
	TaskID            string                `json:"task_id"`
	EstimatedDuration string                `json:"estimated_duration" example:"1h0m0s"`
	Slots             []scheduling.TimeSlot `json:"slots"`
}

// ScheduleResponse is returned after a single task was auto-scheduled.
type ScheduleResponse struct {
	Task *models.Task        `json:"task"`
	Slot scheduling.TimeSlot `json:"slot"`
}

// BatchRequest lists the tasks to place together.
type BatchRequest struct {
	TaskIDs []string `json:"task_ids" validate:"required"`
}

// Validate validates the batch request.
func (r BatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaskIDs, validation.Required, validation.Length(1, 200),
			validation.Each(validation.Required)),
	)
}

// BatchResponse lists committed assignments. Error is set when the batch
// stopped early; the assignments made before the failure stay committed.
type BatchResponse struct {
	Assignments []scheduling.Assignment `json:"assignments"`
	Error       string                  `json:"error,omitempty"`
}

// EventRequest is the request body for creating a calendar event.
type EventRequest struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title" example:"Team sync"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Source   string    `json:"source,omitempty" example:"google"`
}

// EventListResponse wraps calendar events in a range.
type EventListResponse struct {
	Events []models.Event `json:"events"`
}

// PreferencesDTO is the wire form of scheduling preferences. Durations are Go
// duration strings such as "15m" or "2h".
type PreferencesDTO struct {
	DeepWorkWindows  []calendar.DailyWindow `json:"deep_work_windows"`
	QuietHours       []calendar.DailyWindow `json:"quiet_hours"`
	WorkDayStartHour int                    `json:"work_day_start_hour" example:"9"`
	WorkDayEndHour   int                    `json:"work_day_end_hour" example:"18"`
	MinSlotDuration  string                 `json:"min_slot_duration" example:"15m0s"`
	MaxSlotDuration  string                 `json:"max_slot_duration" example:"2h0m0s"`
}

// Validate checks that the durations parse.
func (d PreferencesDTO) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.MinSlotDuration, validation.Required, validation.By(isDuration)),
		validation.Field(&d.MaxSlotDuration, validation.Required, validation.By(isDuration)),
	)
}

func isDuration(v any) error {
	s, _ := v.(string)
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a duration such as 30m")
	}
	return nil
}

func preferencesDTO(p scheduling.Preferences) PreferencesDTO {
	return PreferencesDTO{
		DeepWorkWindows:  nonNil(p.DeepWorkWindows),
		QuietHours:       nonNil(p.QuietHours),
		WorkDayStartHour: p.WorkDayStartHour,
		WorkDayEndHour:   p.WorkDayEndHour,
		MinSlotDuration:  p.MinSlotDuration.String(),
		MaxSlotDuration:  p.MaxSlotDuration.String(),
	}
}

func (d PreferencesDTO) preferences() scheduling.Preferences {
	minSlot, _ := time.ParseDuration(d.MinSlotDuration)
	maxSlot, _ := time.ParseDuration(d.MaxSlotDuration)
	return scheduling.Preferences{
		DeepWorkWindows:  d.DeepWorkWindows,
		QuietHours:       d.QuietHours,
		WorkDayStartHour: d.WorkDayStartHour,
		WorkDayEndHour:   d.WorkDayEndHour,
		MinSlotDuration:  minSlot,
		MaxSlotDuration:  maxSlot,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
