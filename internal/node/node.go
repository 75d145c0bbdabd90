package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/gossip"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/message"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

const (
	// DefaultWorkers is the worker pool size when Options.Workers is unset.
	DefaultWorkers = 2
	// DefaultGossipInterval is the gossip period when Options.GossipInterval is unset.
	DefaultGossipInterval = 500 * time.Millisecond
)

var (
	// ErrStopped is returned by Submit once the node has shut down.
	ErrStopped = errors.New("node stopped")
	// ErrNilTask is returned by Submit for a nil task.
	ErrNilTask = errors.New("nil task")
)

// Transport is how a node reaches its peers. *router.Router implements it.
type Transport interface {
	Send(env message.Envelope) bool
	Broadcast(from int, env message.Envelope) int
}

// Sink receives node events and load samples. Calls are fire-and-forget.
type Sink interface {
	RecordEvent(nodeID int, event string)
	RecordMetrics(nodeID int, load int, processed int64)
	RecordCompletion(nodeID int, t *task.Task)
}

// Options configures a node.
type Options struct {
	ID             int
	Threshold      int           // queue length above which the node offloads
	Workers        int           // concurrent executors
	GossipInterval time.Duration // period of the gossip/offload loop
	PeerTTL        time.Duration // drop peer loads older than this; 0 keeps them
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopping
	stateStopped
)

// Node is an autonomous peer: it executes queued tasks with a worker pool,
// gossips its load and migrates work to less loaded peers.
type Node struct {
	id        int
	threshold int
	workers   int
	interval  time.Duration
	peerTTL   time.Duration

	transport Transport
	sink      Sink

	work  *fifo[*task.Task]
	inbox *fifo[message.Envelope]
	view  *gossip.LoadView
	peers *gossip.PeerSet

	processed atomic.Int64
	executing atomic.Int64
	state     atomic.Int32

	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{} // closed once Stop has drained the node
	gossipWG   sync.WaitGroup
	dispatchWG sync.WaitGroup
	workerWG   sync.WaitGroup
}

// New creates a node. A nil transport leaves the node isolated: it still
// records metrics but every offload falls back to the local queue.
func New(opts Options, transport Transport, sink Sink) *Node {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.GossipInterval <= 0 {
		opts.GossipInterval = DefaultGossipInterval
	}
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	if sink == nil {
		sink = nopSink{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		id:        opts.ID,
		threshold: opts.Threshold,
		workers:   opts.Workers,
		interval:  opts.GossipInterval,
		peerTTL:   opts.PeerTTL,
		transport: transport,
		sink:      sink,
		work:      newFIFO[*task.Task](),
		inbox:     newFIFO[message.Envelope](),
		view:      gossip.NewLoadView(opts.ID),
		peers:     gossip.NewPeerSet(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the workers, the gossip loop and the dispatcher. It is a
// no-op if the node is already running or has been stopped.
func (n *Node) Start() {
	if !n.state.CompareAndSwap(stateIdle, stateRunning) {
		return
	}
	n.sink.RecordEvent(n.id, "Starting node")

	n.workerWG.Add(n.workers)
	for i := 0; i < n.workers; i++ {
		go n.workerLoop()
	}

	n.dispatchWG.Add(1)
	go n.dispatchLoop()

	n.gossipWG.Add(1)
	go n.gossipLoop()
}

// Stop shuts the node down and waits until every accepted task and envelope
// has been handled. The first call on a running node performs the shutdown;
// concurrent and later calls wait for it to finish. Stop on a node that was
// never started is a no-op.
func (n *Node) Stop() {
	for {
		switch n.state.Load() {
		case stateIdle:
			return
		case stateRunning:
			if n.state.CompareAndSwap(stateRunning, stateStopping) {
				n.shutdown()
				return
			}
		default:
			<-n.done
			return
		}
	}
}

// shutdown drains the node in stages. Only the caller that moved the node to
// stopping runs it.
func (n *Node) shutdown() {
	defer close(n.done)
	n.sink.RecordEvent(n.id, "Stopping node")

	// No new offloads; a round in progress either sends or re-enqueues.
	n.cancel()
	n.gossipWG.Wait()

	// Refuse further envelopes and drain the accepted ones. Transfers still
	// submit into the work queue, which stays open until this returns.
	n.inbox.close()
	n.dispatchWG.Wait()

	n.work.close()
	n.workerWG.Wait()

	n.state.Store(stateStopped)
	n.sink.RecordEvent(n.id, fmt.Sprintf("Node stopped (total processed: %d)", n.processed.Load()))
}

// Submit enqueues t and returns immediately.
func (n *Node) Submit(t *task.Task) error {
	if t == nil {
		return ErrNilTask
	}
	if !n.work.push(t) {
		return fmt.Errorf("node %d: %w", n.id, ErrStopped)
	}
	n.sink.RecordEvent(n.id, fmt.Sprintf("Added task %d (queue size: %d)", t.ID(), n.work.len()))
	return nil
}

// Deliver hands an envelope to the dispatcher. It reports false once the
// node has stopped accepting envelopes.
func (n *Node) Deliver(env message.Envelope) bool {
	return n.inbox.push(env)
}

// AddPeer records id as a known peer and reports whether it was new.
func (n *Node) AddPeer(id int) bool {
	if id == n.id {
		return false
	}
	if !n.peers.Add(id) {
		return false
	}
	n.sink.RecordEvent(n.id, fmt.Sprintf("Added peer %d", id))
	return true
}

// Peers returns the known peer ids in ascending order.
func (n *Node) Peers() []int {
	return n.peers.IDs()
}

// PeerLoads returns the node's current view of its peers' loads.
func (n *Node) PeerLoads() []gossip.PeerLoad {
	return n.view.Snapshot()
}

// Announce broadcasts a peer discovery message and returns the number of
// nodes that accepted it.
func (n *Node) Announce() int {
	if n.transport == nil {
		return 0
	}
	return n.transport.Broadcast(n.id, message.NewPeerDiscovery(n.id))
}

// ID returns the node id.
func (n *Node) ID() int { return n.id }

// Threshold returns the offload threshold.
func (n *Node) Threshold() int { return n.threshold }

// CurrentLoad returns the number of queued tasks.
func (n *Node) CurrentLoad() int { return n.work.len() }

// ProcessedCount returns the number of tasks executed so far.
func (n *Node) ProcessedCount() int64 { return n.processed.Load() }

// Executing returns the number of tasks currently being executed.
func (n *Node) Executing() int64 { return n.executing.Load() }

// Running reports whether the node has been started and not stopped.
func (n *Node) Running() bool { return n.state.Load() == stateRunning }

// Stopped reports whether Stop has finished draining the node.
func (n *Node) Stopped() bool { return n.state.Load() == stateStopped }

// Stopping reports whether a Stop is draining the node.
func (n *Node) Stopping() bool { return n.state.Load() == stateStopping }

// workerLoop executes tasks until the work queue is closed and empty.
func (n *Node) workerLoop() {
	defer n.workerWG.Done()

	for {
		t, ok := n.work.pop()
		if !ok {
			return
		}
		n.execute(t)
	}
}

func (n *Node) execute(t *task.Task) {
	n.executing.Add(1)
	n.sink.RecordEvent(n.id, fmt.Sprintf("Processing task %d", t.ID()))

	t.Execute()

	total := n.processed.Add(1)
	n.executing.Add(-1)
	n.sink.RecordCompletion(n.id, t)
	n.sink.RecordEvent(n.id, fmt.Sprintf("Completed task %d (total processed: %d)", t.ID(), total))
}

type nopSink struct{}

func (nopSink) RecordEvent(int, string)          {}
func (nopSink) RecordMetrics(int, int, int64)    {}
func (nopSink) RecordCompletion(int, *task.Task) {}
