// Package gossip holds the state a node builds from peer gossip: the load
// each peer last reported and the set of peers it knows about.
//
// Load reports are applied as they arrive, with no sequence numbers, so the
// view is only eventually consistent. Selection tolerates that staleness:
// it picks the least loaded peer that looked strictly better than the local
// node at its last report.
package gossip
