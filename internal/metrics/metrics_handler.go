package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"cryptoguide/logger"
)

// Metric is one emitted measurement, as seen by handlers.
type Metric struct {
	Timestamp time.Time
	Component string
	Name      string
	Value     interface{}
	Type      string
	Fields    logger.Fields
}

// Unit returns the "unit" field, if the emitter set one.
func (m Metric) Unit() string {
	unit, _ := m.Fields["unit"].(string)
	return unit
}

// MetricHandler receives every emitted metric on the emitting goroutine.
type MetricHandler func(Metric)

// MetricHandlerID identifies a registration; zero is never issued.
type MetricHandlerID uint64

type registration struct {
	id MetricHandlerID
	fn MetricHandler
}

// Registrations are replaced, never mutated, so dispatch reads them
// without locking.
var (
	handlers      atomic.Pointer[[]registration]
	handlersMu    sync.Mutex
	lastHandlerID atomic.Uint64
)

// RegisterMetricHandler adds handler and returns its ID, or zero for nil.
func RegisterMetricHandler(handler MetricHandler) MetricHandlerID {
	if handler == nil {
		return 0
	}
	id := MetricHandlerID(lastHandlerID.Add(1))

	handlersMu.Lock()
	defer handlersMu.Unlock()
	current := loadHandlers()
	next := make([]registration, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, registration{id: id, fn: handler})
	handlers.Store(&next)
	return id
}

// UnregisterMetricHandler removes the handler registered under id.
func UnregisterMetricHandler(id MetricHandlerID) {
	if id == 0 {
		return
	}

	handlersMu.Lock()
	defer handlersMu.Unlock()
	current := loadHandlers()
	next := make([]registration, 0, len(current))
	for _, r := range current {
		if r.id != id {
			next = append(next, r)
		}
	}
	handlers.Store(&next)
}

func loadHandlers() []registration {
	if p := handlers.Load(); p != nil {
		return *p
	}
	return nil
}

// newMetric stamps an event. An empty type means counter; fields are copied
// so later changes by the emitter are not seen by handlers.
func newMetric(component, name string, value interface{}, metricType string, fields logger.Fields) Metric {
	if metricType == "" {
		metricType = "counter"
	}
	copied := make(logger.Fields, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Metric{
		Timestamp: timeNow(),
		Component: component,
		Name:      name,
		Value:     value,
		Type:      metricType,
		Fields:    copied,
	}
}

func dispatchMetric(metric Metric) {
	for _, r := range loadHandlers() {
		r.fn(metric)
	}
}
