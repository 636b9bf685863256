// Package policy implements C9: the cached-Features and is_busy read-side
// external status pollers consult without touching a device's transport.
package policy

import (
	"github.com/keepkey/device-gateway/internal/session"
	"github.com/keepkey/device-gateway/internal/wire"
)

// Gate answers read-only questions about a device's current state, backed
// directly by the session registry the owning DeviceWorker writes into.
// Gate never mutates a Session; it only ever calls Registry.Snapshot.
type Gate struct {
	sessions *session.Registry
}

// New constructs a Gate reading from sessions.
func New(sessions *session.Registry) *Gate {
	return &Gate{sessions: sessions}
}

// Features returns the last successful Features response cached for
// uniqueID. ok is false if the device is not currently registered or has
// never completed a GetFeatures exchange.
func (g *Gate) Features(uniqueID string) (features *wire.Features, ok bool) {
	snap, found := g.sessions.Snapshot(uniqueID)
	if !found || snap.LastFeatures == nil {
		return nil, false
	}
	return snap.LastFeatures, true
}

// IsBusy reports whether uniqueID is anywhere other than Idle — suspended on
// a prompt, needing a reconnect, or reinitializing. A device with no
// registered session is not busy (it is simply not connected); callers that
// care about that distinction should check device presence separately.
func (g *Gate) IsBusy(uniqueID string) bool {
	snap, ok := g.sessions.Snapshot(uniqueID)
	if !ok {
		return false
	}
	return snap.Interaction != session.Idle
}

// State returns a full point-in-time snapshot for status-polling UIs that
// want more than the busy bit.
func (g *Gate) State(uniqueID string) (session.Snapshot, bool) {
	return g.sessions.Snapshot(uniqueID)
}
