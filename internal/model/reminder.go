package model

import "fmt"

// OccurrenceKey identifies one scheduled occurrence of a task: rescheduling a
// task produces a new key, so it becomes eligible to alert again.
type OccurrenceKey struct {
	TaskID    string
	StartTime string
}

func (t Task) OccurrenceKey() OccurrenceKey {
	return OccurrenceKey{TaskID: t.ID, StartTime: t.StartTime}
}

func (k OccurrenceKey) String() string {
	return fmt.Sprintf("%s-%s", k.TaskID, k.StartTime)
}

// IsDue reports whether the task should alert at the given HH:MM clock value.
func (t Task) IsDue(clock string) bool {
	return !t.Completed && t.StartTime == clock
}
