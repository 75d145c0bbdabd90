// Package message defines the envelopes nodes exchange through the router.
//
// An Envelope pairs routing information (sender, recipient) with a Body.
// Body is a closed set of variants, one per message kind, so a load update
// can never carry a task and a task transfer can never arrive without one:
//
//	Load       load gossip, always broadcast
//	Transfer   migration of exactly one queued task
//	Request    reserved for pull-based stealing, ignored today
//	Discovery  peer announcement, always broadcast
package message
