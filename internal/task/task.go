package task

import (
	"fmt"
	"time"
)

// Task is a unit of work with a simulated processing cost.
type Task struct {
	id        uint64
	cost      time.Duration
	createdAt time.Time
}

// New creates a task. Negative costs are clamped to zero.
func New(id uint64, cost time.Duration) *Task {
	if cost < 0 {
		cost = 0
	}
	return &Task{
		id:        id,
		cost:      cost,
		createdAt: time.Now(),
	}
}

// ID returns the task identifier.
func (t *Task) ID() uint64 {
	return t.id
}

// Cost returns how long executing the task takes.
func (t *Task) Cost() time.Duration {
	return t.cost
}

// CreatedAt returns the creation time (monotonic clock reading included).
func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

// Age returns the time elapsed since the task was created.
func (t *Task) Age() time.Duration {
	return time.Since(t.createdAt)
}

// Execute blocks for the task's cost.
func (t *Task) Execute() {
	if t.cost > 0 {
		time.Sleep(t.cost)
	}
}

// String returns a short description for logs.
func (t *Task) String() string {
	return fmt.Sprintf("Task[id=%d cost=%s]", t.id, t.cost)
}
