package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrInvalidDraft     = errors.New("model: invalid task draft")
	ErrInvalidStartTime = errors.New("model: invalid start time")
	ErrInvalidDuration  = errors.New("model: invalid duration")
)

// ClockLayout is the wall-clock layout used for task start times.
const ClockLayout = "15:04"

type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime string    `json:"startTime"`
	Duration  int       `json:"duration"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Draft is the caller-supplied part of a task; the store fills in the rest.
type Draft struct {
	Title     string `json:"title"`
	StartTime string `json:"startTime"`
	Duration  int    `json:"duration"`
}

func (d Draft) Normalize() (Draft, error) {
	out := Draft{
		Title:    strings.TrimSpace(d.Title),
		Duration: d.Duration,
	}
	if out.Title == "" {
		return Draft{}, fmt.Errorf("%w: title is required", ErrInvalidDraft)
	}
	start, err := NormalizeStartTime(d.StartTime)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	out.StartTime = start
	if out.Duration <= 0 {
		return Draft{}, fmt.Errorf("%w: %w: %d", ErrInvalidDraft, ErrInvalidDuration, d.Duration)
	}
	return out, nil
}

func (d Draft) Validate() error {
	_, err := d.Normalize()
	return err
}

// NewTask materializes a draft with the given id and creation time.
func NewTask(id string, d Draft, createdAt time.Time) Task {
	return Task{
		ID:        id,
		Title:     d.Title,
		StartTime: d.StartTime,
		Duration:  d.Duration,
		Completed: false,
		CreatedAt: createdAt.UTC(),
	}
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if _, err := NormalizeStartTime(t.StartTime); err != nil {
		return err
	}
	if t.Duration <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, t.Duration)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	return nil
}

// NormalizeStartTime accepts H:MM or HH:MM and returns the zero-padded HH:MM form.
func NormalizeStartTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStartTime)
	}
	parsed, err := time.Parse(ClockLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidStartTime, raw)
	}
	return parsed.Format(ClockLayout), nil
}

// Clock truncates now to minute granularity in HH:MM form.
func Clock(now time.Time) string {
	return now.Format(ClockLayout)
}

// SortByStartTime orders tasks ascending by start time, keeping insertion order for ties.
func SortByStartTime(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		return strings.Compare(a.StartTime, b.StartTime)
	})
}

func IndexOf(tasks []Task, id string) int {
	return slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
}
