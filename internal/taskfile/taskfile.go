// Package taskfile reads tasks from Markdown files with YAML frontmatter.
package taskfile

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/taskservice"
)

// dueLayouts are tried in order; layouts without a zone use the caller's location.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// frontmatter is the YAML header of a task file. Priority is kept as text so
// both "high" and 3 are accepted.
type frontmatter struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Priority  string `yaml:"priority"`
	Due       string `yaml:"due"`
	Completed bool   `yaml:"completed"`
}

// Task is a parsed task file.
type Task struct {
	ID        string
	Title     string
	Notes     string
	Priority  int
	Due       *time.Time
	Completed bool
}

// Input converts the task into a service create request.
func (t Task) Input() taskservice.TaskInput {
	return taskservice.TaskInput{
		ID:       t.ID,
		Title:    t.Title,
		Notes:    t.Notes,
		Priority: t.Priority,
		DueDate:  t.Due,
	}
}

// Parse reads a task file. The title comes from the frontmatter or, failing
// that, the first "# " heading of the body. The body becomes the notes.
// Due dates without a zone are read in loc.
func Parse(data []byte, loc *time.Location) (*Task, error) {
	if loc == nil {
		loc = time.UTC
	}
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}

	t := &Task{
		ID:        strings.TrimSpace(fm.ID),
		Title:     deriveTitle(fm.Title, body),
		Notes:     strings.TrimSpace(body),
		Completed: fm.Completed,
	}
	if t.Title == "" {
		return nil, fmt.Errorf("%w: task file has no title", apperr.ErrInvalidInput)
	}
	if fm.Priority != "" {
		if t.Priority, err = models.ParsePriority(fm.Priority); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
	}
	if fm.Due != "" {
		due, err := parseDue(fm.Due, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		t.Due = &due
	}
	return t, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Without frontmatter the whole content is body.
func splitFrontmatter(data []byte) (frontmatter, string, error) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return fm, "", fmt.Errorf("frontmatter: %w", err)
	}
	return fm, body, nil
}

func deriveTitle(title, body string) string {
	if s := strings.TrimSpace(title); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func parseDue(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("due " + raw + ": want RFC 3339, YYYY-MM-DD HH:MM or YYYY-MM-DD")
}
