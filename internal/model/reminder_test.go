package model

import "testing"

func TestOccurrenceKeyChangesWithStartTime(t *testing.T) {
	task := Task{ID: "task-1", StartTime: "09:00"}
	before := task.OccurrenceKey()
	task.StartTime = "10:30"
	after := task.OccurrenceKey()
	if before == after {
		t.Fatalf("expected distinct keys, got %v twice", before)
	}
	if before.String() != "task-1-09:00" {
		t.Fatalf("unexpected key string: %q", before.String())
	}
}

func TestTaskIsDue(t *testing.T) {
	task := Task{ID: "task-1", StartTime: "09:00"}
	if !task.IsDue("09:00") {
		t.Fatal("expected pending task to be due at its start time")
	}
	if task.IsDue("09:01") {
		t.Fatal("expected task not due at another minute")
	}
	task.Completed = true
	if task.IsDue("09:00") {
		t.Fatal("expected completed task never due")
	}
}
