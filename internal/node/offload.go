package node

import (
	"fmt"
	"time"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/gossip"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/message"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

// gossipLoop runs one gossip round per interval until the node stops.
func (n *Node) gossipLoop() {
	defer n.gossipWG.Done()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.gossipRound()
		}
	}
}

// gossipRound reports the local load, broadcasts it to every peer and, when
// the queue is above threshold, migrates one task.
func (n *Node) gossipRound() {
	if n.peerTTL > 0 {
		for _, id := range n.view.Expire(n.peerTTL) {
			n.sink.RecordEvent(n.id, fmt.Sprintf("Expired load of node %d", id))
		}
	}

	load := n.CurrentLoad()
	n.sink.RecordMetrics(n.id, load, n.processed.Load())

	if n.transport != nil {
		n.transport.Broadcast(n.id, message.NewLoadUpdate(n.id, load))
	}

	if load > n.threshold {
		n.offload()
	}
}

// offload removes the head of the queue and hands it to the best known peer;
// loads gossiped by nodes outside the peer set are not targets. The
// queue may have drained since the load was sampled; then there is nothing
// to do this round. Without a target, or if the target refuses, the task
// goes back into the local queue.
func (n *Node) offload() {
	t, ok := n.work.tryPop()
	if !ok {
		return
	}

	target := n.view.BestPeer(n.CurrentLoad(), n.peers.Contains)
	if target == gossip.NoTarget || n.transport == nil {
		n.requeue(t)
		return
	}

	env, err := message.NewTaskTransfer(n.id, target, t)
	if err != nil {
		n.requeue(t)
		return
	}
	if !n.transport.Send(env) {
		// The peer is gone or draining; stop considering it until it gossips again.
		n.view.Forget(target)
		n.sink.RecordEvent(n.id, fmt.Sprintf("Failed to offload task %d to node %d", t.ID(), target))
		n.requeue(t)
		return
	}

	n.sink.RecordEvent(n.id, fmt.Sprintf("Offloaded task %d to node %d", t.ID(), target))
}

// requeue puts t back at the tail of the local queue. The work queue only
// closes after the gossip loop has exited, so the push cannot fail here.
func (n *Node) requeue(t *task.Task) {
	if !n.work.push(t) {
		n.sink.RecordEvent(n.id, fmt.Sprintf("Lost task %d: queue closed", t.ID()))
	}
}
