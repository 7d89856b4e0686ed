package model

import (
	"errors"
	"testing"
	"time"
)

func TestTaskValidateSuccess(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:        "task-1",
		Title:     "Revise thermodynamics",
		StartTime: "09:00",
		Duration:  60,
		CreatedAt: now,
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got error: %v", err)
	}
}

func TestTaskValidateRejectsBadFields(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{ID: "task-1", Title: "Bad time", StartTime: "25:00", Duration: 30, CreatedAt: now}
	if err := task.Validate(); err == nil || !errors.Is(err, ErrInvalidStartTime) {
		t.Fatalf("expected ErrInvalidStartTime, got: %v", err)
	}

	task.StartTime = "08:15"
	task.Duration = 0
	if err := task.Validate(); err == nil || !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got: %v", err)
	}

	task.Duration = 15
	task.CreatedAt = time.Time{}
	err := task.Validate()
	if err == nil || err.Error() != "model: task created_at is required" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDraftNormalize(t *testing.T) {
	d, err := Draft{Title: "  Physics chapter 1 ", StartTime: "9:05", Duration: 45}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if d.Title != "Physics chapter 1" || d.StartTime != "09:05" || d.Duration != 45 {
		t.Fatalf("unexpected normalized draft: %+v", d)
	}
}

func TestDraftValidateFailures(t *testing.T) {
	cases := []struct {
		name  string
		draft Draft
		want  error
	}{
		{"empty title", Draft{Title: " ", StartTime: "09:00", Duration: 10}, ErrInvalidDraft},
		{"empty time", Draft{Title: "x", StartTime: "", Duration: 10}, ErrInvalidStartTime},
		{"bad time", Draft{Title: "x", StartTime: "9am", Duration: 10}, ErrInvalidStartTime},
		{"zero duration", Draft{Title: "x", StartTime: "09:00"}, ErrInvalidDuration},
		{"negative duration", Draft{Title: "x", StartTime: "09:00", Duration: -5}, ErrInvalidDuration},
	}
	for _, tc := range cases {
		err := tc.draft.Validate()
		if err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
		if !errors.Is(err, ErrInvalidDraft) || !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestSortByStartTimeIsStable(t *testing.T) {
	tasks := []Task{
		{ID: "c", StartTime: "14:00"},
		{ID: "a", StartTime: "09:00"},
		{ID: "b", StartTime: "09:00"},
		{ID: "d", StartTime: "07:30"},
	}
	SortByStartTime(tasks)
	want := []string{"d", "a", "b", "c"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d: got %q want %q (%+v)", i, tasks[i].ID, id, tasks)
		}
	}
}

func TestClockTruncatesToMinute(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 59, 999, time.Local)
	if got := Clock(now); got != "09:00" {
		t.Fatalf("expected 09:00, got %q", got)
	}
}
