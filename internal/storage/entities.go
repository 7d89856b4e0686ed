package storage

import "time"

type TaskDocument struct {
	ID        string
	Title     string
	StartTime string
	Duration  int
	Completed bool
	CreatedAt time.Time
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Completed *bool
}

func (p TaskPatch) IsEmpty() bool {
	return p.Completed == nil
}
