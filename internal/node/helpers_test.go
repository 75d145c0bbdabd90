package node

import (
	"sync"
	"testing"
	"time"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/message"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

// fakeTransport records outgoing envelopes instead of routing them.
type fakeTransport struct {
	mu         sync.Mutex
	sent       []message.Envelope
	broadcasts []message.Envelope
	refuse     bool
}

func (f *fakeTransport) Send(env message.Envelope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return false
	}
	f.sent = append(f.sent, env)
	return true
}

func (f *fakeTransport) Broadcast(from int, env message.Envelope) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, env)
	return 1
}

func (f *fakeTransport) sentEnvelopes() []message.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message.Envelope(nil), f.sent...)
}

func (f *fakeTransport) broadcastEnvelopes() []message.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message.Envelope(nil), f.broadcasts...)
}

type sample struct {
	load      int
	processed int64
}

// recordingSink keeps everything a node reports.
type recordingSink struct {
	mu          sync.Mutex
	events      []string
	samples     []sample
	completions int
}

func (s *recordingSink) RecordEvent(_ int, event string) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) RecordMetrics(_ int, load int, processed int64) {
	s.mu.Lock()
	s.samples = append(s.samples, sample{load: load, processed: processed})
	s.mu.Unlock()
}

func (s *recordingSink) RecordCompletion(int, *task.Task) {
	s.mu.Lock()
	s.completions++
	s.mu.Unlock()
}

func (s *recordingSink) sampleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func (s *recordingSink) hasEvent(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e == event {
			return true
		}
	}
	return false
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func submitN(t *testing.T, n *Node, count int, cost time.Duration) {
	t.Helper()
	for i := 0; i < count; i++ {
		if err := n.Submit(task.New(uint64(i), cost)); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
}

// report makes peer a known peer of n with the given gossiped load.
func report(n *Node, peer, load int) {
	n.AddPeer(peer)
	n.view.Apply(peer, load)
}
