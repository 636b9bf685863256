// Package queuemanager implements C6: the process-wide registry mapping a
// device's unique_id to its live DeviceWorker, handling spawn-on-connect and
// poison-pill teardown-on-disconnect.
package queuemanager

import (
	"context"
	"sync"

	"github.com/keepkey/device-gateway/internal/bus"
	"github.com/keepkey/device-gateway/internal/gwerrors"
	"github.com/keepkey/device-gateway/internal/interfaces"
	"github.com/keepkey/device-gateway/internal/requestapi"
	"github.com/keepkey/device-gateway/internal/session"
	"github.com/keepkey/device-gateway/internal/worker"
)

// entry bundles one device's running Worker with the means to stop it.
type entry struct {
	w      *worker.Worker
	cancel context.CancelFunc
}

// Manager owns the map[unique_id]->Worker lifecycle. One Manager per
// process; every enumerator connect/disconnect event flows through Add/
// Disconnect, and every DeviceRequest flows through Submit.
type Manager struct {
	mu      sync.RWMutex
	workers map[string]*entry

	sessions *session.Registry
	bus      *bus.Bus
	observer interfaces.Observer
	logger   interfaces.Logger
}

// New constructs an empty Manager. sessions/b must outlive the Manager;
// observer/logger may be nil.
func New(sessions *session.Registry, b *bus.Bus, observer interfaces.Observer, logger interfaces.Logger) *Manager {
	return &Manager{
		workers:  make(map[string]*entry),
		sessions: sessions,
		bus:      b,
		observer: observer,
		logger:   logger,
	}
}

// Add spawns a DeviceWorker for a newly connected device. If a session for
// uniqueID is sitting in WaitingForReconnect (left there by a prior
// Disconnect), this is spec §4.5's reconnect path: the existing session is
// reused and driven into Reinitializing instead of replaced, and a
// proactive GetFeatures is submitted through the new worker to carry it the
// rest of the way back to Idle. Any other prior entry (a stale worker left
// by a crash that skipped a clean Remove/Disconnect) is simply replaced.
func (m *Manager) Add(uniqueID string, transport interfaces.Transport) {
	m.mu.Lock()

	if old, ok := m.workers[uniqueID]; ok {
		old.cancel()
		delete(m.workers, uniqueID)
	}

	sess, reconnecting := m.sessions.Get(uniqueID)
	if !reconnecting || !sess.OnReconnected() {
		sess = m.sessions.Create(uniqueID)
	}

	w := worker.New(worker.Config{
		UniqueID:  uniqueID,
		Transport: transport,
		Session:   sess,
		Bus:       m.bus,
		Observer:  m.observer,
		Logger:    m.logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.workers[uniqueID] = &entry{w: w, cancel: cancel}
	go w.Run(ctx)

	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.Event{Kind: bus.EventDeviceConnected, UniqueID: uniqueID})
	}

	if sess.Interaction == session.Reinitializing {
		go m.reinitialize(uniqueID, w)
	}

	m.logDebugf("queuemanager: added worker for %s", uniqueID)
}

// reinitialize drives a freshly reconnected session from Reinitializing back
// to Idle: it submits a real GetFeatures through the new worker and, on
// success, clears pin_cached/passphrase_cached and records the refreshed
// Features (spec §4.5, §8 reconnect scenario). A failed refresh leaves the
// session in Reinitializing; the next GetFeatures admitted through the
// worker will retry the same real exchange rather than serving a stale
// cache, since admit() no longer short-circuits non-Idle GetFeatures calls.
func (m *Manager) reinitialize(uniqueID string, w *worker.Worker) {
	req, reply := requestapi.NewGetFeaturesRequest(uniqueID)
	select {
	case w.Mailbox() <- req:
	default:
		m.logDebugf("queuemanager: reinitialize %s: mailbox full, will retry on next GetFeatures", uniqueID)
		return
	}

	result := <-reply
	if result.Err != nil {
		m.logDebugf("queuemanager: reinitialize %s: refresh failed: %v", uniqueID, result.Err)
		return
	}

	sess, ok := m.sessions.Get(uniqueID)
	if !ok || result.Features == nil {
		return
	}
	if err := sess.FinishReinitializing(*result.Features); err != nil {
		m.logDebugf("queuemanager: reinitialize %s: %v", uniqueID, err)
		return
	}

	if m.bus != nil {
		m.bus.Publish(bus.Event{Kind: bus.EventFeaturesUpdated, UniqueID: uniqueID})
	}
	m.logDebugf("queuemanager: %s reinitialized, back to idle", uniqueID)
}

// Remove tears down the worker for uniqueID unconditionally, if any:
// cancels its context (the poison pill), which makes Run drain and fail
// every queued request with ErrCodeDeviceDisconnected, then deletes the
// session. This is the teardown path for a device that is gone for good —
// Disconnect is the one to use for an ordinary hotplug disconnect, since it
// preserves a session that is waiting on a reconnect.
func (m *Manager) Remove(uniqueID string) {
	m.mu.Lock()
	e, ok := m.workers[uniqueID]
	if ok {
		delete(m.workers, uniqueID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	e.cancel()
	m.sessions.Remove(uniqueID)

	if m.bus != nil {
		m.bus.Publish(bus.Event{Kind: bus.EventDeviceDisconnected, UniqueID: uniqueID})
	}
	m.logDebugf("queuemanager: removed worker for %s", uniqueID)
}

// Disconnect handles a hotplug disconnect for uniqueID. A session left in
// NeedsReconnect (spec §4.5: a Success that required a reset, e.g.
// ApplySettings toggling passphrase protection) is preserved and advanced
// to WaitingForReconnect instead of deleted, so a subsequent Add for the
// same unique_id can resume it through Reinitializing rather than starting
// over at Idle with no memory of pin_cached/passphrase_cached history. Any
// other session is torn down exactly as Remove does; deletion is the
// fallback, not the default.
func (m *Manager) Disconnect(uniqueID string) {
	m.mu.Lock()
	e, ok := m.workers[uniqueID]
	if ok {
		delete(m.workers, uniqueID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	e.cancel()

	sess, exists := m.sessions.Get(uniqueID)
	if !exists || sess.Interaction != session.NeedsReconnect {
		m.sessions.Remove(uniqueID)
	} else {
		sess.OnDisconnected()
	}

	if m.bus != nil {
		m.bus.Publish(bus.Event{Kind: bus.EventDeviceDisconnected, UniqueID: uniqueID})
	}
	m.logDebugf("queuemanager: disconnected %s", uniqueID)
}

// Submit routes req to the worker registered for req.UniqueID. It reports
// false (and fails req.Reply itself) if no worker is currently registered —
// the device disconnected between the caller building the request and this
// call, or it was never connected.
func (m *Manager) Submit(req *requestapi.Request) bool {
	m.mu.RLock()
	e, ok := m.workers[req.UniqueID]
	m.mu.RUnlock()
	if !ok {
		req.Reply <- requestapi.Result{Err: gwerrors.NewDevice(req.Kind.String(), req.UniqueID, gwerrors.ErrCodeDeviceNotFound, "no device registered for this unique_id")}
		return false
	}

	select {
	case e.w.Mailbox() <- req:
		return true
	default:
		req.Reply <- requestapi.Result{Err: gwerrors.NewDevice(req.Kind.String(), req.UniqueID, gwerrors.ErrCodeBusy, "device mailbox is full")}
		return false
	}
}

// Has reports whether a worker is currently registered for uniqueID.
func (m *Manager) Has(uniqueID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.workers[uniqueID]
	return ok
}

// UniqueIDs returns every currently registered device's unique_id.
func (m *Manager) UniqueIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown tears every worker down, for process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Remove(id)
	}
}

func (m *Manager) logDebugf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Debugf(format, args...)
	}
}
