package metrics

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

// Recorder is the process-wide event and metrics sink. It is safe for
// concurrent use; construct one and hand it to every node.
type Recorder struct {
	logger *zap.Logger
}

// NewRecorder creates a recorder writing to logger. A nil logger discards
// events but still updates the collectors.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

// RecordEvent logs a node event.
func (r *Recorder) RecordEvent(nodeID int, event string) {
	r.logger.Debug(event, zap.Int("node", nodeID))
}

// RecordMetrics logs a load sample and updates the node gauges.
func (r *Recorder) RecordMetrics(nodeID int, load int, processed int64) {
	label := strconv.Itoa(nodeID)
	QueueLength.WithLabelValues(label).Set(float64(load))
	TasksProcessed.WithLabelValues(label).Set(float64(processed))
	r.logger.Info("metrics",
		zap.Int("node", nodeID),
		zap.Int("load", load),
		zap.Int64("tasks_processed", processed),
	)
}

// RecordCompletion counts a finished task and observes its latency.
func (r *Recorder) RecordCompletion(nodeID int, t *task.Task) {
	TasksCompleted.WithLabelValues(strconv.Itoa(nodeID)).Inc()
	TaskLatency.Observe(t.Age().Seconds())
}
