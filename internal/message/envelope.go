package message

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/task"
)

// Broadcast is the recipient id of envelopes addressed to every peer.
const Broadcast = -1

// ErrNilTask is returned when a task transfer is built without a task.
var ErrNilTask = errors.New("message: task transfer requires a task")

// Kind identifies the message variant.
type Kind int

const (
	LoadUpdate Kind = iota
	TaskRequest
	TaskTransfer
	PeerDiscovery
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case LoadUpdate:
		return "LOAD_UPDATE"
	case TaskRequest:
		return "TASK_REQUEST"
	case TaskTransfer:
		return "TASK_TRANSFER"
	case PeerDiscovery:
		return "PEER_DISCOVERY"
	default:
		return "UNKNOWN"
	}
}

// Body is the kind-specific payload of an envelope. The set of
// implementations is closed to this package.
type Body interface {
	Kind() Kind
	isBody()
}

// Load carries the sender's queue length.
type Load struct {
	Value int
}

// Transfer carries a migrated task.
type Transfer struct {
	Task *task.Task
}

// Request asks a peer for work. Reserved.
type Request struct{}

// Discovery announces the sender as a peer.
type Discovery struct{}

func (Load) Kind() Kind      { return LoadUpdate }
func (Transfer) Kind() Kind  { return TaskTransfer }
func (Request) Kind() Kind   { return TaskRequest }
func (Discovery) Kind() Kind { return PeerDiscovery }

func (Load) isBody()      {}
func (Transfer) isBody()  {}
func (Request) isBody()   {}
func (Discovery) isBody() {}

// Envelope is an immutable routed message.
type Envelope struct {
	from int
	to   int
	body Body
}

// NewLoadUpdate builds a broadcast load update.
func NewLoadUpdate(from, load int) Envelope {
	return Envelope{from: from, to: Broadcast, body: Load{Value: load}}
}

// NewTaskTransfer builds a point-to-point task migration.
func NewTaskTransfer(from, to int, t *task.Task) (Envelope, error) {
	if t == nil {
		return Envelope{}, ErrNilTask
	}
	return Envelope{from: from, to: to, body: Transfer{Task: t}}, nil
}

// NewTaskRequest builds a work request addressed to one peer.
func NewTaskRequest(from, to int) Envelope {
	return Envelope{from: from, to: to, body: Request{}}
}

// NewPeerDiscovery builds a broadcast peer announcement.
func NewPeerDiscovery(from int) Envelope {
	return Envelope{from: from, to: Broadcast, body: Discovery{}}
}

// From returns the sender id.
func (e Envelope) From() int { return e.from }

// To returns the recipient id, or Broadcast.
func (e Envelope) To() int { return e.to }

// Body returns the payload. It is nil only for the zero Envelope.
func (e Envelope) Body() Body { return e.body }

// IsBroadcast reports whether the envelope is addressed to every peer.
func (e Envelope) IsBroadcast() bool { return e.to == Broadcast }

// Kind returns the kind of the payload.
func (e Envelope) Kind() Kind {
	if e.body == nil {
		return Kind(-1)
	}
	return e.body.Kind()
}

// String renders the envelope as Message[KIND from=X to=Y ...].
func (e Envelope) String() string {
	s := fmt.Sprintf("Message[%s from=%d to=%d", e.Kind(), e.from, e.to)
	switch b := e.body.(type) {
	case Load:
		s += fmt.Sprintf(" load=%d", b.Value)
	case Transfer:
		s += fmt.Sprintf(" task_id=%d", b.Task.ID())
	}
	return s + "]"
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e Envelope) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", e.Kind().String())
	enc.AddInt("from", e.from)
	enc.AddInt("to", e.to)
	switch b := e.body.(type) {
	case Load:
		enc.AddInt("load", b.Value)
	case Transfer:
		enc.AddUint64("task_id", b.Task.ID())
	}
	return nil
}
