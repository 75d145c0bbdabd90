package node

import "github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/gossip"

// Status is a point-in-time snapshot of a node.
type Status struct {
	ID        int               `json:"id"`
	Running   bool              `json:"running"`
	Threshold int               `json:"threshold"`
	Load      int               `json:"load"`
	Executing int64             `json:"executing"`
	Processed int64             `json:"processed"`
	Peers     []int             `json:"peers"`
	PeerLoads []gossip.PeerLoad `json:"peer_loads"`
}

// Status returns a snapshot of the node. Fields are read independently, so
// a busy node may report a load and processed count from different instants.
func (n *Node) Status() Status {
	return Status{
		ID:        n.id,
		Running:   n.Running(),
		Threshold: n.threshold,
		Load:      n.CurrentLoad(),
		Executing: n.Executing(),
		Processed: n.ProcessedCount(),
		Peers:     n.Peers(),
		PeerLoads: n.PeerLoads(),
	}
}
