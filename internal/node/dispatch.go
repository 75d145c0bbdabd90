package node

import (
	"fmt"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/message"
)

// dispatchLoop handles inbound envelopes until the inbox is closed and empty.
func (n *Node) dispatchLoop() {
	defer n.dispatchWG.Done()

	for {
		env, ok := n.inbox.pop()
		if !ok {
			return
		}
		n.handle(env)
	}
}

func (n *Node) handle(env message.Envelope) {
	switch body := env.Body().(type) {
	case message.Load:
		n.view.Apply(env.From(), body.Value)
		n.sink.RecordEvent(n.id, fmt.Sprintf("Received load update from node %d: load=%d", env.From(), body.Value))

	case message.Transfer:
		if err := n.Submit(body.Task); err != nil {
			// Unreachable while the dispatcher runs: the work queue closes after it exits.
			n.sink.RecordEvent(n.id, fmt.Sprintf("Rejected task %d from node %d: %v", body.Task.ID(), env.From(), err))
			return
		}
		n.sink.RecordEvent(n.id, fmt.Sprintf("Received task %d from node %d", body.Task.ID(), env.From()))

	case message.Discovery:
		n.AddPeer(env.From())

	case message.Request:
		// Reserved for pull-based stealing.
	}
}
