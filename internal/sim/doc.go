// Package sim wires nodes and a router into a running cluster and drives it
// with generated tasks.
//
// A Cluster owns the nodes 0..N-1, their shared Router and the placement
// policy for new tasks. Killed nodes leave the router and the placement set
// but keep their counters, so cluster totals stay comparable with the
// number of submitted tasks.
package sim
