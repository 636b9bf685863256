// Package session implements the process-wide Session & Interaction State
// registry (C7): one record per connected device's unique_id, tracking
// transport state, interactive-prompt suspension, pending UI correlation,
// and the cached Features/settings state the policy gate (C9) reads.
//
// Writers are device workers only, one worker per unique_id, so within a
// single Session there is never write contention — the registry's own lock
// only protects the map of unique_id -> *Session itself, not the fields of
// any one Session. Readers outside the owning worker (C9, status pollers)
// take a short critical section and copy out a Snapshot rather than holding
// a reference into live state.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keepkey/device-gateway/internal/wire"
)

// TransportState mirrors the device's physical connection state as the
// worker currently understands it.
type TransportState int

const (
	TransportConnected TransportState = iota
	TransportDisconnected
	TransportReinitializing
)

func (s TransportState) String() string {
	switch s {
	case TransportConnected:
		return "connected"
	case TransportDisconnected:
		return "disconnected"
	case TransportReinitializing:
		return "reinitializing"
	default:
		return "unknown"
	}
}

// Interaction is the device's interactive-prompt state machine.
type Interaction int

const (
	Idle Interaction = iota
	AwaitingPin
	AwaitingButton
	AwaitingPassphrase
	NeedsReconnect
	WaitingForReconnect
	Reinitializing
)

func (i Interaction) String() string {
	switch i {
	case Idle:
		return "idle"
	case AwaitingPin:
		return "awaiting_pin"
	case AwaitingButton:
		return "awaiting_button"
	case AwaitingPassphrase:
		return "awaiting_passphrase"
	case NeedsReconnect:
		return "needs_reconnect"
	case WaitingForReconnect:
		return "waiting_for_reconnect"
	case Reinitializing:
		return "reinitializing"
	default:
		return "unknown"
	}
}

// PendingKind identifies what a Pending correlation is waiting on.
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingPin
	PendingButton
	PendingPassphrase
)

// Pending correlates an in-flight interactive prompt with the UI command
// that will resolve it.
type Pending struct {
	RequestID string
	Kind      PendingKind
	CreatedAt time.Time
	Op        string
}

// ErrInvalidTransition is returned when a worker attempts a transition the
// state machine in spec §4.5 does not permit. It is a programming error in
// the worker, not a runtime condition callers should recover from silently.
var ErrInvalidTransition = errors.New("session: invalid interaction transition")

// validNext enumerates the permitted next states for each Interaction,
// excluding the two "any ->" escapes (NeedsReconnect, Idle-via-cancel) which
// are reachable from every state and handled by dedicated methods instead of
// this table.
var validNext = map[Interaction][]Interaction{
	Idle:                {AwaitingPin, AwaitingButton, AwaitingPassphrase},
	AwaitingPin:         {Idle},
	AwaitingButton:      {Idle, AwaitingPin, AwaitingPassphrase},
	AwaitingPassphrase:  {Idle},
	NeedsReconnect:      {WaitingForReconnect},
	WaitingForReconnect: {Reinitializing},
	Reinitializing:      {Idle},
}

func isValidNext(from, to Interaction) bool {
	for _, candidate := range validNext[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Session is the per-device bookkeeping record owned by exactly one
// DeviceWorker. All fields are exported for the owning worker's convenience;
// external readers must go through Registry.Snapshot instead of reaching
// into a live Session, since nothing here is itself synchronized.
type Session struct {
	UniqueID        string
	TransportState  TransportState
	Interaction     Interaction
	InteractionNote string // button label, or NeedsReconnect reason
	CacheAllowed    bool   // passphrase-prompt cache_allowed
	Pending          *Pending
	LastFeatures     *wire.Features
	PinCached        bool
	PassphraseCached bool

	// PendingUsePassphrase mirrors pending_settings_change.use_passphrase:
	// an ApplySettings value not yet confirmed observable by a reconnect.
	PendingUsePassphrase *bool
}

// NewSession constructs a fresh Idle session for a newly enumerated device.
func NewSession(uniqueID string) *Session {
	return &Session{
		UniqueID:       uniqueID,
		TransportState: TransportConnected,
		Interaction:    Idle,
	}
}

// BeginPrompt transitions into one of the three Awaiting* states, creating a
// fresh v4-UUID pending correlation. It enforces the invariant that
// interaction != Idle implies a pending entry exists for every Awaiting*
// state (NeedsReconnect/WaitingForReconnect/Reinitializing are a distinct
// kind of busy with no UI-correlated pending).
func (s *Session) BeginPrompt(target Interaction, kind PendingKind, op string) (requestID string, err error) {
	if target != AwaitingPin && target != AwaitingButton && target != AwaitingPassphrase {
		return "", fmt.Errorf("session: BeginPrompt called with non-prompt target %s", target)
	}
	if !isValidNext(s.Interaction, target) {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Interaction, target)
	}
	requestID = uuid.NewString()
	s.Interaction = target
	s.Pending = &Pending{RequestID: requestID, Kind: kind, CreatedAt: time.Now(), Op: op}
	return requestID, nil
}

// ResolvePrompt clears an Awaiting* state back to Idle, on ack, cancel, or
// a terminal response arriving mid-prompt.
func (s *Session) ResolvePrompt() error {
	if !isValidNext(s.Interaction, Idle) {
		return fmt.Errorf("%w: %s -> idle", ErrInvalidTransition, s.Interaction)
	}
	s.Interaction = Idle
	s.Pending = nil
	return nil
}

// Cancel forces the session back to Idle from any state, per the "any ->
// Idle on explicit Cancel from caller" rule. It is intentionally exempt
// from the transition table.
func (s *Session) Cancel() {
	s.Interaction = Idle
	s.Pending = nil
	s.InteractionNote = ""
}

// RequireReconnect forces NeedsReconnect from any state, per the "any ->
// NeedsReconnect (only after Success that requires reset)" rule.
func (s *Session) RequireReconnect(reason string) {
	s.Interaction = NeedsReconnect
	s.InteractionNote = reason
	s.Pending = nil
}

// OnDisconnected advances NeedsReconnect -> WaitingForReconnect. Sessions
// not currently in NeedsReconnect are left untouched; the queue manager's
// Disconnect handles ordinary disconnects by removing the session entirely,
// not through this path.
func (s *Session) OnDisconnected() {
	if s.Interaction == NeedsReconnect {
		s.Interaction = WaitingForReconnect
	}
	s.TransportState = TransportDisconnected
}

// OnReconnected advances WaitingForReconnect -> Reinitializing. Returns
// false if the session was not waiting on a reconnect, in which case the
// caller should treat this as a fresh connect instead.
func (s *Session) OnReconnected() bool {
	s.TransportState = TransportReinitializing
	if s.Interaction != WaitingForReconnect {
		return false
	}
	s.Interaction = Reinitializing
	return true
}

// FinishReinitializing completes Reinitializing -> Idle, clearing the
// caches that a reconnect invalidates (pin_cached, passphrase_cached) and
// recording the freshly re-read Features.
func (s *Session) FinishReinitializing(features wire.Features) error {
	if !isValidNext(s.Interaction, Idle) {
		return fmt.Errorf("%w: %s -> idle", ErrInvalidTransition, s.Interaction)
	}
	s.Interaction = Idle
	s.TransportState = TransportConnected
	s.PinCached = false
	s.PassphraseCached = false
	s.LastFeatures = &features
	return nil
}

// IsInteractive reports whether the session is suspended on a user prompt —
// the condition the admission gate (C5 step 1) and the policy gate (C9)
// both need.
func (s *Session) IsInteractive() bool {
	switch s.Interaction {
	case AwaitingPin, AwaitingButton, AwaitingPassphrase:
		return true
	default:
		return false
	}
}

// Registry is the process-wide map of unique_id -> *Session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create installs a fresh session for uniqueID, replacing any prior entry.
// Called by the queue manager's Add when a device connects and no session
// for it is waiting on a reconnect.
func (r *Registry) Create(uniqueID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := NewSession(uniqueID)
	r.sessions[uniqueID] = s
	return s
}

// Get returns the live *Session for uniqueID. Only the owning worker should
// mutate through this pointer; everyone else should call Snapshot.
func (r *Registry) Get(uniqueID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[uniqueID]
	return s, ok
}

// Remove deletes uniqueID's entry. The queue manager calls it right after
// cancelling the device's worker; it does not wait for that worker to
// finish failing its queued requests.
func (r *Registry) Remove(uniqueID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, uniqueID)
}

// Snapshot is a point-in-time, race-free copy of a Session's fields for
// readers outside the owning worker.
type Snapshot struct {
	UniqueID         string
	TransportState   TransportState
	Interaction      Interaction
	InteractionNote  string
	LastFeatures     *wire.Features
	PinCached        bool
	PassphraseCached bool
}

// Snapshot copies out uniqueID's current state under a read lock on the
// registry and returns ok=false if no session exists for it.
func (r *Registry) Snapshot(uniqueID string) (Snapshot, bool) {
	r.mu.RLock()
	s, ok := r.sessions[uniqueID]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		UniqueID:         s.UniqueID,
		TransportState:   s.TransportState,
		Interaction:      s.Interaction,
		InteractionNote:  s.InteractionNote,
		LastFeatures:     s.LastFeatures,
		PinCached:        s.PinCached,
		PassphraseCached: s.PassphraseCached,
	}, true
}

// All returns a snapshot of every currently registered unique_id.
func (r *Registry) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
