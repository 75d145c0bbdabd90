// Package task defines the unit of work that nodes queue, migrate and
// execute. A Task is immutable; executing it simply suspends the caller for
// the task's cost.
package task
