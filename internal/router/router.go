package router

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/message"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/metrics"
)

// Handle is the capability a node hands to the router. Deliver enqueues the
// envelope and returns false when the node no longer accepts envelopes.
type Handle interface {
	Deliver(env message.Envelope) bool
}

// Router routes envelopes between registered nodes.
type Router struct {
	mu     sync.RWMutex
	nodes  map[int]Handle // node id -> handle
	logger *zap.Logger
}

// New creates an empty router.
func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		nodes:  make(map[int]Handle),
		logger: logger,
	}
}

// Register maps id to h. Registering an id again replaces its handle.
func (r *Router) Register(id int, h Handle) {
	r.mu.Lock()
	r.nodes[id] = h
	r.mu.Unlock()

	r.logger.Info("registered node", zap.Int("node", id))
}

// Deregister removes id. It reports whether id was registered.
func (r *Router) Deregister(id int) bool {
	r.mu.Lock()
	_, exists := r.nodes[id]
	delete(r.nodes, id)
	r.mu.Unlock()

	if exists {
		r.logger.Info("deregistered node", zap.Int("node", id))
	}
	return exists
}

// Send delivers env to its recipient. It reports whether the recipient
// accepted the envelope. Broadcast-addressed envelopes are fanned out.
func (r *Router) Send(env message.Envelope) bool {
	if env.IsBroadcast() {
		return r.Broadcast(env.From(), env) > 0
	}

	r.mu.RLock()
	h, exists := r.nodes[env.To()]
	r.mu.RUnlock()

	if !exists {
		metrics.Envelopes.WithLabelValues(env.Kind().String(), metrics.OutcomeDropped).Inc()
		r.logger.Warn("failed to send message: receiver not found", zap.Object("envelope", env))
		return false
	}

	if !r.deliver(h, env) {
		return false
	}
	if env.Kind() == message.TaskTransfer {
		metrics.Migrations.Inc()
	}
	r.logger.Debug("sent", zap.Object("envelope", env))
	return true
}

// Broadcast delivers env to every registered node except from and returns
// the number of nodes that accepted it. Nodes registered while the fan-out
// is in progress may or may not receive the envelope.
func (r *Router) Broadcast(from int, env message.Envelope) int {
	r.mu.RLock()
	receivers := make([]Handle, 0, len(r.nodes))
	for id, h := range r.nodes {
		if id != from {
			receivers = append(receivers, h)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, h := range receivers {
		if r.deliver(h, env) {
			delivered++
		}
	}

	if len(receivers) > 0 {
		r.logger.Debug("broadcast",
			zap.Int("from", from),
			zap.Int("peers", len(receivers)),
			zap.Int("delivered", delivered),
			zap.Stringer("kind", env.Kind()),
		)
	}
	return delivered
}

// deliver hands env to h and records the outcome.
func (r *Router) deliver(h Handle, env message.Envelope) bool {
	kind := env.Kind().String()
	if !h.Deliver(env) {
		metrics.Envelopes.WithLabelValues(kind, metrics.OutcomeRefused).Inc()
		r.logger.Debug("receiver refused message", zap.Object("envelope", env))
		return false
	}
	metrics.Envelopes.WithLabelValues(kind, metrics.OutcomeDelivered).Inc()
	return true
}

// NodeIDs returns the registered ids in ascending order.
func (r *Router) NodeIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of registered nodes.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
