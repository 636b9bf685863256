// Package enumerator implements C4: periodic (or hotplug-driven) discovery
// of attached KeepKey devices, normalized to a stable unique_id and diffed
// against the previous pass to emit connect/disconnect events.
package enumerator

import (
	"context"
	"time"

	"github.com/keepkey/device-gateway/internal/constants"
	"github.com/keepkey/device-gateway/internal/interfaces"
	"github.com/keepkey/device-gateway/internal/transport"
)

// Scanner produces the current set of KeepKey candidate devices. Platform
// files provide the concrete implementation; the diffing logic below never
// cares how the set was obtained.
type Scanner interface {
	Scan() ([]transport.DeviceInfo, error)
}

// EventKind distinguishes a connect from a disconnect notification.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
)

// Event is emitted once per unique_id transition between passes.
type Event struct {
	Kind   EventKind
	Device transport.DeviceInfo // on EventDisconnected, as recorded by the last pass that saw the device
}

// Enumerator owns the previous-pass snapshot and a subscriber channel. Only
// the Run goroutine ever mutates the snapshot; it is not safe to call Run
// concurrently from two goroutines on the same Enumerator.
type Enumerator struct {
	scan         Scanner
	pollInterval time.Duration
	logger       interfaces.Logger
	events       chan Event
	known        map[string]transport.DeviceInfo
}

// New constructs an Enumerator. pollInterval<=0 defaults to
// constants.DefaultEnumerationPollInterval.
func New(scan Scanner, pollInterval time.Duration, logger interfaces.Logger) *Enumerator {
	if pollInterval <= 0 {
		pollInterval = constants.DefaultEnumerationPollInterval
	}
	return &Enumerator{
		scan:         scan,
		pollInterval: pollInterval,
		logger:       logger,
		events:       make(chan Event, 32),
		known:        make(map[string]transport.DeviceInfo),
	}
}

// Events returns the channel Run publishes connect/disconnect events to.
// Callers (the Gateway's wiring) are expected to drain it continuously;
// Run drops events under sustained backpressure rather than block forever.
func (e *Enumerator) Events() <-chan Event { return e.events }

// Run polls on a ticker until ctx is cancelled. A platform Scanner that
// itself blocks for a hotplug notification (rather than returning instantly)
// is equally valid — Run's ticker only bounds how often Scan is called, it
// does not assume Scan is cheap.
func (e *Enumerator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	e.poll()
	for {
		select {
		case <-ctx.Done():
			close(e.events)
			return
		case <-ticker.C:
			e.poll()
		}
	}
}

func (e *Enumerator) poll() {
	devices, err := e.scan.Scan()
	if err != nil {
		if e.logger != nil {
			e.logger.Debugf("enumerator: scan failed: %v", err)
		}
		return
	}

	seen := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		seen[dev.UniqueID] = struct{}{}
		if _, ok := e.known[dev.UniqueID]; !ok {
			e.known[dev.UniqueID] = dev
			e.publish(Event{Kind: EventConnected, Device: dev})
		}
	}

	for id, dev := range e.known {
		if _, ok := seen[id]; !ok {
			delete(e.known, id)
			e.publish(Event{Kind: EventDisconnected, Device: dev})
		}
	}
}

func (e *Enumerator) publish(evt Event) {
	select {
	case e.events <- evt:
	default:
		if e.logger != nil {
			e.logger.Debugf("enumerator: event channel full, dropping %v for %s", evt.Kind, evt.Device.UniqueID)
		}
	}
}
