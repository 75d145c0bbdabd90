// Package router is the in-process message layer connecting nodes. It maps
// node ids to delivery handles and hands envelopes over synchronously.
// Delivery is best-effort: envelopes for unknown or quiesced recipients are
// dropped and reported, never returned to the sender as an error.
//
// Lifecycle contract: a node is registered before it starts, deregistered
// before it stops, and only then discarded. Deregistering first means the
// router never hands an envelope to a node that has finished draining.
package router
