// Package ring implements a consistent hashing ring with virtual nodes. The
// simulator uses it to place generated tasks on nodes by task id, so that a
// node leaving only moves the tasks it owned.
package ring
