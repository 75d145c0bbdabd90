package node

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/message"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

func TestNew_Defaults(t *testing.T) {
	n := New(Options{ID: 3, Threshold: -1}, nil, nil)

	if n.workers != DefaultWorkers {
		t.Errorf("Expected %d workers, got %d", DefaultWorkers, n.workers)
	}
	if n.interval != DefaultGossipInterval {
		t.Errorf("Expected interval %v, got %v", DefaultGossipInterval, n.interval)
	}
	if n.Threshold() != 0 {
		t.Errorf("Expected negative threshold clamped to 0, got %d", n.Threshold())
	}
	if n.ID() != 3 {
		t.Errorf("Expected id 3, got %d", n.ID())
	}
}

func TestNode_SubmitAndProcess(t *testing.T) {
	sink := &recordingSink{}
	n := New(Options{ID: 0, Threshold: 100, GossipInterval: time.Hour}, &fakeTransport{}, sink)
	n.Start()
	defer n.Stop()

	submitN(t, n, 10, time.Millisecond)

	waitFor(t, 2*time.Second, func() bool { return n.ProcessedCount() == 10 })
	if n.CurrentLoad() != 0 {
		t.Errorf("Expected empty queue, got %d", n.CurrentLoad())
	}

	sink.mu.Lock()
	completions := sink.completions
	sink.mu.Unlock()
	if completions != 10 {
		t.Errorf("Expected 10 completions recorded, got %d", completions)
	}
}

func TestNode_SubmitNil(t *testing.T) {
	n := New(Options{ID: 0}, nil, nil)
	if err := n.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("Expected ErrNilTask, got %v", err)
	}
}

func TestNode_StopDrainsQueue(t *testing.T) {
	const count = 20
	n := New(Options{ID: 0, Threshold: 1000, Workers: 1, GossipInterval: time.Hour}, &fakeTransport{}, nil)
	n.Start()

	submitN(t, n, count, 2*time.Millisecond)
	n.Stop()

	if got := n.ProcessedCount(); got != count {
		t.Errorf("Expected %d processed after Stop, got %d", count, got)
	}
	if n.CurrentLoad() != 0 {
		t.Errorf("Expected empty queue after Stop, got %d", n.CurrentLoad())
	}
	if n.Executing() != 0 {
		t.Errorf("Expected nothing executing after Stop, got %d", n.Executing())
	}
}

func TestNode_ConcurrentStopWaitsForDrain(t *testing.T) {
	const count = 5
	n := New(Options{ID: 0, Threshold: 1000, Workers: 1, GossipInterval: time.Hour}, &fakeTransport{}, nil)
	n.Start()
	submitN(t, n, count, 40*time.Millisecond)

	first := make(chan struct{})
	go func() {
		n.Stop()
		close(first)
	}()

	waitFor(t, time.Second, n.Stopping)
	if n.Stopped() || n.Running() {
		t.Error("Node draining its queue should be neither running nor stopped")
	}

	n.Stop()

	if got := n.ProcessedCount(); got != count {
		t.Errorf("Second Stop returned with %d of %d tasks processed", got, count)
	}
	if n.CurrentLoad() != 0 || n.Executing() != 0 {
		t.Errorf("Second Stop returned with %d queued, %d executing", n.CurrentLoad(), n.Executing())
	}
	if !n.Stopped() {
		t.Error("Expected node to be stopped after Stop returned")
	}

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("First Stop did not return")
	}
}

func TestNode_StopFromManyGoroutines(t *testing.T) {
	const count = 10
	n := New(Options{ID: 0, Threshold: 1000, Workers: 2, GossipInterval: time.Hour}, &fakeTransport{}, nil)
	n.Start()
	submitN(t, n, count, 5*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Stop()
			if got := n.ProcessedCount(); got != count {
				t.Errorf("Stop returned with %d of %d tasks processed", got, count)
			}
		}()
	}
	wg.Wait()
}

func TestNode_StopDrainsInbox(t *testing.T) {
	n := New(Options{ID: 1, GossipInterval: time.Hour}, &fakeTransport{}, nil)
	n.Start()

	for i := 0; i < 5; i++ {
		env, _ := message.NewTaskTransfer(0, 1, task.New(uint64(i), time.Millisecond))
		if !n.Deliver(env) {
			t.Fatal("Running node should accept envelopes")
		}
	}
	n.Stop()

	if got := n.ProcessedCount(); got != 5 {
		t.Errorf("Expected 5 migrated tasks processed after Stop, got %d", got)
	}
}

func TestNode_DoubleStartStop(t *testing.T) {
	sink := &recordingSink{}
	n := New(Options{ID: 0, GossipInterval: time.Hour}, nil, sink)

	n.Stop() // before start: no-op
	if n.Stopped() {
		t.Error("Stop before Start should not stop the node")
	}

	n.Start()
	n.Start()
	if !n.Running() {
		t.Error("Expected node to be running")
	}

	n.Stop()
	n.Stop()
	if n.Running() || !n.Stopped() {
		t.Error("Expected node to be stopped")
	}

	n.Start() // after stop: no-op
	if n.Running() {
		t.Error("Start after Stop should be a no-op")
	}

	sink.mu.Lock()
	starts := 0
	for _, e := range sink.events {
		if e == "Starting node" {
			starts++
		}
	}
	sink.mu.Unlock()
	if starts != 1 {
		t.Errorf("Expected 1 start event, got %d", starts)
	}
}

func TestNode_SubmitAfterStop(t *testing.T) {
	n := New(Options{ID: 4, GossipInterval: time.Hour}, nil, nil)
	n.Start()
	n.Stop()

	err := n.Submit(task.New(1, 0))
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if n.Deliver(message.NewLoadUpdate(1, 3)) {
		t.Error("Stopped node should refuse envelopes")
	}
}

func TestNode_SubmitBeforeStart(t *testing.T) {
	n := New(Options{ID: 0, GossipInterval: time.Hour}, nil, nil)
	submitN(t, n, 3, 0)

	if n.CurrentLoad() != 3 {
		t.Errorf("Expected 3 queued before start, got %d", n.CurrentLoad())
	}

	n.Start()
	n.Stop()
	if n.ProcessedCount() != 3 {
		t.Errorf("Expected 3 processed, got %d", n.ProcessedCount())
	}
}

func TestNode_ConcurrentSubmitProcessesEachOnce(t *testing.T) {
	n := New(Options{ID: 0, Threshold: 1000, Workers: 4, GossipInterval: time.Hour}, nil, nil)
	n.Start()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = n.Submit(task.New(uint64(g*100+i), 0))
			}
		}(g)
	}
	wg.Wait()
	n.Stop()

	if got := n.ProcessedCount(); got != 200 {
		t.Errorf("Expected 200 processed, got %d", got)
	}
}

func TestNode_GossipLoopRecordsMetrics(t *testing.T) {
	sink := &recordingSink{}
	tr := &fakeTransport{}
	n := New(Options{ID: 0, Threshold: 10, GossipInterval: 10 * time.Millisecond}, tr, sink)
	n.Start()
	defer n.Stop()

	waitFor(t, time.Second, func() bool { return sink.sampleCount() >= 2 })
	waitFor(t, time.Second, func() bool { return len(tr.broadcastEnvelopes()) >= 2 })
}

func TestNode_Status(t *testing.T) {
	n := New(Options{ID: 2, Threshold: 4}, nil, nil)
	n.AddPeer(1)
	n.AddPeer(3)
	n.view.Apply(1, 6)
	submitN(t, n, 2, 0)

	s := n.Status()
	if s.ID != 2 || s.Threshold != 4 || s.Load != 2 || s.Running {
		t.Errorf("Unexpected status: %+v", s)
	}
	if len(s.Peers) != 2 || len(s.PeerLoads) != 1 || s.PeerLoads[0].Load != 6 {
		t.Errorf("Unexpected peer data: %+v", s)
	}
}

func TestNode_AddPeerIdempotent(t *testing.T) {
	n := New(Options{ID: 0}, nil, nil)

	n.AddPeer(1)
	n.AddPeer(1)
	n.AddPeer(0) // self

	if peers := n.Peers(); len(peers) != 1 || peers[0] != 1 {
		t.Errorf("Expected [1], got %v", peers)
	}
}

func TestNode_Announce(t *testing.T) {
	tr := &fakeTransport{}
	n := New(Options{ID: 5}, tr, nil)

	n.Announce()

	got := tr.broadcastEnvelopes()
	if len(got) != 1 || got[0].Kind() != message.PeerDiscovery || got[0].From() != 5 {
		t.Errorf("Expected one discovery from 5, got %v", got)
	}
	if New(Options{ID: 6}, nil, nil).Announce() != 0 {
		t.Error("Isolated node should reach nobody")
	}
}
