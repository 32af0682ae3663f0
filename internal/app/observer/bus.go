// Package observer implements an in-process event bus: tenant-scoped,
// best-effort fan-out of recalculation, impact, risk, and simulation
// events to subscribed observers, dispatched on a goroutine per handler
// so one slow or panicking subscriber can never block another or the
// publisher.
package observer

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/riskgraph/pkg/logger"
)

// EventKind discriminates the events an Observer can receive.
type EventKind string

const (
	EventRecalculationStart    EventKind = "RECALCULATION_START"
	EventRecalculationProgress EventKind = "RECALCULATION_PROGRESS"
	EventRecalculationComplete EventKind = "RECALCULATION_COMPLETE"
	EventRecalculationError    EventKind = "RECALCULATION_ERROR"
	EventImpactUpdate          EventKind = "IMPACT_UPDATE"
	EventRiskUpdate            EventKind = "RISK_UPDATE"
	EventSimulationStart       EventKind = "SIMULATION_START"
	EventSimulationProgress    EventKind = "SIMULATION_PROGRESS"
	EventSimulationComplete    EventKind = "SIMULATION_COMPLETE"
	EventSimulationError       EventKind = "SIMULATION_ERROR"
)

// Payload carries the data fields relevant to a given EventKind. Not every
// field is populated for every kind.
type Payload struct {
	TenantID      string
	Progress      float64
	AffectedCount int
	Error         string
	Details       map[string]interface{}
}

// Event is one notification delivered to subscribers of a tenant.
type Event struct {
	Kind      EventKind
	TenantID  string
	TraceID   string
	Timestamp time.Time
	Payload   Payload
}

// Handler receives one Event. Handlers receive a context with a bounded
// deadline and their errors are logged, never propagated to the publisher.
type Handler func(ctx context.Context, event Event) error

// Publisher is the narrow interface callers in internal/app/risk depend on,
// so tests can substitute a recording stub without pulling in the full Bus.
type Publisher interface {
	Publish(tenantID string, event Event)
}

// handlerTimeout is the deadline set on the context passed to each handler
// invocation; a handler that ignores its context is not stopped. Each
// handler runs on its own goroutine, so a slow observer never blocks the
// publisher or its peers.
const handlerTimeout = 5 * time.Second

// Bus is an in-process, tenant-scoped, best-effort event bus. Subscribers
// are invoked concurrently, each in its own goroutine, and a panicking or
// erroring handler never affects delivery to other subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// New creates an empty Bus.
func New(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.NewDefault("observer")
	}
	return &Bus{handlers: make(map[string][]Handler), log: log}
}

// Subscribe registers handler for every event published for tenantID. It
// returns an unsubscribe function.
func (b *Bus) Subscribe(tenantID string, handler Handler) func() {
	b.mu.Lock()
	b.handlers[tenantID] = append(b.handlers[tenantID], handler)
	idx := len(b.handlers[tenantID]) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := b.handlers[tenantID]
		if idx < 0 || idx >= len(hs) {
			return
		}
		b.handlers[tenantID] = append(hs[:idx], hs[idx+1:]...)
	}
}

// Publish fans event out to every subscriber of tenantID. Delivery is
// asynchronous and best-effort: Publish never blocks on a slow or failing
// handler.
func (b *Bus) Publish(tenantID string, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[tenantID]))
	copy(handlers, b.handlers[tenantID])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, event)
	}
}

func (b *Bus) dispatch(handler Handler, event Event) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.log.WithField("event_kind", string(event.Kind)).Errorf("observer handler panicked: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		if err := handler(ctx, event); err != nil {
			b.log.WithField("event_kind", string(event.Kind)).WithError(err).Warn("observer handler returned an error")
		}
	}()
}

var _ Publisher = (*Bus)(nil)
