package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/node"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/sim"
	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

// Cluster is the part of *sim.Cluster the admin API needs.
type Cluster interface {
	Stats() sim.Stats
	NodeStatus(id int) (node.Status, error)
	NewTask(cost time.Duration) *task.Task
	SubmitTo(id int, t *task.Task) error
}

// SubmitRequest is the body of POST /api/v1/nodes/{id}/tasks.
type SubmitRequest struct {
	CostMS int64 `json:"cost_ms"`
}

// SubmitResponse is returned with 202 Accepted.
type SubmitResponse struct {
	TaskID uint64 `json:"task_id"`
	Node   int    `json:"node"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type api struct {
	cluster Cluster
	logger  *zap.Logger
}

// NewHandler builds the admin router. A nil registry serves the default
// Prometheus gatherer.
func NewHandler(c Cluster, reg *prometheus.Registry, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &api{cluster: c, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/cluster", a.getCluster)
		v1.Get("/nodes/{nodeId}", a.getNode)
		v1.Post("/nodes/{nodeId}/tasks", a.submitTask)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Use a versioned path like /api/v1/...")
	})

	return r
}

// getCluster handles GET /api/v1/cluster
func (a *api) getCluster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cluster.Stats())
}

// getNode handles GET /api/v1/nodes/{nodeId}
func (a *api) getNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}

	st, err := a.cluster.NodeStatus(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_node", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// submitTask handles POST /api/v1/nodes/{nodeId}/tasks
func (a *api) submitTask(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.CostMS < 0 {
		writeError(w, http.StatusBadRequest, "invalid_body", "cost_ms cannot be negative")
		return
	}

	t := a.cluster.NewTask(time.Duration(req.CostMS) * time.Millisecond)
	if err := a.cluster.SubmitTo(id, t); err != nil {
		switch {
		case errors.Is(err, sim.ErrUnknownNode):
			writeError(w, http.StatusNotFound, "unknown_node", err.Error())
		case errors.Is(err, node.ErrStopped):
			writeError(w, http.StatusConflict, "node_stopped", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "submit_failed", err.Error())
		}
		return
	}

	a.logger.Info("task submitted via admin api", zap.Uint64("task", t.ID()), zap.Int("node", id))
	w.Header().Set("Location", fmt.Sprintf("/api/v1/nodes/%d", id))
	writeJSON(w, http.StatusAccepted, SubmitResponse{TaskID: t.ID(), Node: id})
}

func nodeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "nodeId")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_node_id", fmt.Sprintf("node id must be an integer, got %q", raw))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// ServeHTTP serves h on lis until ctx ends, then shuts down gracefully.
func ServeHTTP(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("admin http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin http: %w", err)
	}
	return nil
}
