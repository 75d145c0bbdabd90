package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/node"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/router"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

// Placement policies.
const (
	PlacementRandom = "random"
	PlacementHash   = "hash"
)

const defaultVNodes = 128

var (
	// ErrUnknownNode is returned for ids outside the cluster or already killed.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNoLiveNodes is returned by Submit when every node has been killed.
	ErrNoLiveNodes = errors.New("no live nodes")
)

// Options configures a cluster.
type Options struct {
	Nodes          int
	Threshold      int
	Workers        int
	GossipInterval time.Duration
	PeerTTL        time.Duration
	// Placement is PlacementRandom (default) or PlacementHash.
	Placement string
	// Discovery starts nodes without peers and lets them announce
	// themselves instead of building a static full mesh.
	Discovery bool
	// Seed drives random placement; zero picks a random seed.
	Seed uint64
}

// Stats is a cluster-wide snapshot.
type Stats struct {
	RunID     string        `json:"run_id"`
	Submitted int64         `json:"submitted"`
	Queued    int           `json:"queued"`
	Executing int64         `json:"executing"`
	Processed int64         `json:"processed"`
	Nodes     []node.Status `json:"nodes"`
}

// Cluster is a set of nodes sharing one Router.
type Cluster struct {
	runID     string
	discovery bool
	logger    *zap.Logger
	router    *router.Router
	nodes     []*node.Node
	placer    placer

	mu     sync.Mutex
	killed map[int]bool

	nextTaskID atomic.Uint64
	submitted  atomic.Int64
	started    atomic.Bool
	stopOnce   sync.Once
}

// NewCluster creates opts.Nodes nodes with ids 0..N-1 and registers them
// with a fresh router. Nodes are not started.
func NewCluster(opts Options, sink node.Sink, logger *zap.Logger) (*Cluster, error) {
	if opts.Nodes < 1 {
		return nil, fmt.Errorf("cluster needs at least one node, got %d", opts.Nodes)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var p placer
	switch opts.Placement {
	case "", PlacementRandom:
		p = newRandomPlacer(seed)
	case PlacementHash:
		p = newHashPlacer(defaultVNodes)
	default:
		return nil, fmt.Errorf("unknown placement %q", opts.Placement)
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	c := &Cluster{
		runID:     runID,
		discovery: opts.Discovery,
		logger:    logger,
		router:    router.New(logger),
		nodes:     make([]*node.Node, opts.Nodes),
		placer:    p,
		killed:    make(map[int]bool),
	}

	for i := 0; i < opts.Nodes; i++ {
		n := node.New(node.Options{
			ID:             i,
			Threshold:      opts.Threshold,
			Workers:        opts.Workers,
			GossipInterval: opts.GossipInterval,
			PeerTTL:        opts.PeerTTL,
		}, c.router, sink)
		c.nodes[i] = n
		c.router.Register(i, n)
		c.placer.add(i)
	}

	logger.Info("cluster created",
		zap.Int("nodes", opts.Nodes),
		zap.Int("threshold", opts.Threshold),
		zap.String("placement", placementName(opts.Placement)),
		zap.Bool("discovery", opts.Discovery))
	return c, nil
}

// Start connects the nodes and starts them. In static mode every node knows
// every other before it starts; in discovery mode each node announces
// itself once running. Only the first call has an effect.
func (c *Cluster) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}

	if !c.discovery {
		for _, a := range c.nodes {
			for _, b := range c.nodes {
				a.AddPeer(b.ID())
			}
		}
	}

	for _, n := range c.nodes {
		n.Start()
	}

	if c.discovery {
		for _, n := range c.nodes {
			n.Announce()
		}
	}
	c.logger.Info("cluster started")
}

// Stop removes every live node from the router, then stops each one in id
// order. Each node finishes its queued tasks before Stop moves on.
func (c *Cluster) Stop() {
	c.stopOnce.Do(func() {
		for _, id := range c.router.NodeIDs() {
			c.router.Deregister(id)
		}
		for _, n := range c.nodes {
			n.Stop()
		}
		st := c.Stats()
		c.logger.Info("cluster stopped",
			zap.Int64("submitted", st.Submitted),
			zap.Int64("processed", st.Processed),
			zap.Int("remaining", st.Queued))
	})
}

// KillNode takes a node out of the cluster: it stops receiving envelopes
// and new tasks, then drains its own queue and stops.
func (c *Cluster) KillNode(id int) error {
	if id < 0 || id >= len(c.nodes) {
		return fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	c.mu.Lock()
	if c.killed[id] {
		c.mu.Unlock()
		return fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	c.killed[id] = true
	c.mu.Unlock()

	n := c.nodes[id]
	c.router.Deregister(id)
	c.placer.remove(id)
	n.Stop()

	c.logger.Info("node killed", zap.Int("node", id), zap.Int64("processed", n.ProcessedCount()))
	return nil
}

// NewTask returns a task with the next cluster-wide id.
func (c *Cluster) NewTask(cost time.Duration) *task.Task {
	return task.New(c.nextTaskID.Add(1)-1, cost)
}

// Submit places t using the placement policy and returns the node it went
// to. If the chosen node refuses, the next candidate is tried.
func (c *Cluster) Submit(t *task.Task) (int, error) {
	if t == nil {
		return 0, node.ErrNilTask
	}

	var lastErr error
	for _, id := range c.placer.candidates(t.ID()) {
		if err := c.SubmitTo(id, t); err != nil {
			lastErr = err
			continue
		}
		return id, nil
	}
	if lastErr != nil {
		return 0, fmt.Errorf("submit task %d: %w", t.ID(), lastErr)
	}
	return 0, fmt.Errorf("submit task %d: %w", t.ID(), ErrNoLiveNodes)
}

// SubmitTo enqueues t on node id.
func (c *Cluster) SubmitTo(id int, t *task.Task) error {
	n, err := c.live(id)
	if err != nil {
		return err
	}
	if err := n.Submit(t); err != nil {
		return err
	}
	c.submitted.Add(1)
	return nil
}

// Seed enqueues loads[id] new tasks of the given cost on each listed node.
func (c *Cluster) Seed(loads map[int]int, cost time.Duration) error {
	for id, count := range loads {
		for i := 0; i < count; i++ {
			if err := c.SubmitTo(id, c.NewTask(cost)); err != nil {
				return fmt.Errorf("seed node %d: %w", id, err)
			}
		}
		c.logger.Info("seeded node", zap.Int("node", id), zap.Int("tasks", count))
	}
	return nil
}

// Stats returns totals over every node, killed ones included.
func (c *Cluster) Stats() Stats {
	st := Stats{
		RunID:     c.runID,
		Submitted: c.submitted.Load(),
		Nodes:     make([]node.Status, 0, len(c.nodes)),
	}
	for _, n := range c.nodes {
		ns := n.Status()
		st.Queued += ns.Load
		st.Executing += ns.Executing
		st.Processed += ns.Processed
		st.Nodes = append(st.Nodes, ns)
	}
	return st
}

// NodeStatus returns the status of node id, killed or not.
func (c *Cluster) NodeStatus(id int) (node.Status, error) {
	if id < 0 || id >= len(c.nodes) {
		return node.Status{}, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return c.nodes[id].Status(), nil
}

// WaitDrained blocks until every submitted task has been processed or ctx
// ends.
func (c *Cluster) WaitDrained(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		st := c.Stats()
		if st.Processed >= st.Submitted {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d of %d tasks processed: %w", st.Processed, st.Submitted, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Node returns node id.
func (c *Cluster) Node(id int) (*node.Node, error) {
	if id < 0 || id >= len(c.nodes) {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return c.nodes[id], nil
}

// Size returns the number of nodes the cluster was created with.
func (c *Cluster) Size() int { return len(c.nodes) }

// Router returns the cluster's router.
func (c *Cluster) Router() *router.Router { return c.router }

// RunID returns the identifier of this run.
func (c *Cluster) RunID() string { return c.runID }

func (c *Cluster) live(id int) (*node.Node, error) {
	if id < 0 || id >= len(c.nodes) {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	c.mu.Lock()
	killed := c.killed[id]
	c.mu.Unlock()
	if killed {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return c.nodes[id], nil
}

func placementName(p string) string {
	if p == "" {
		return PlacementRandom
	}
	return p
}
