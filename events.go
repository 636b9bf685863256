package keepkey

import "github.com/keepkey/device-gateway/internal/bus"

// EventKind is the closed set of outbound notifications the bus (C8)
// publishes toward the UI/HTTP layer. Defined in internal/bus so
// internal/worker can emit the exact same type without importing this
// package (which imports internal/worker).
type EventKind = bus.EventKind

const (
	EventDeviceConnected    = bus.EventDeviceConnected
	EventDeviceDisconnected = bus.EventDeviceDisconnected
	EventDeviceState        = bus.EventDeviceState
	EventAwaitingPin        = bus.EventAwaitingPin
	EventAwaitingButton     = bus.EventAwaitingButton
	EventAwaitingPassphrase = bus.EventAwaitingPassphrase
	EventNeedsReconnect     = bus.EventNeedsReconnect
	EventFeaturesUpdated    = bus.EventFeaturesUpdated
	EventError              = bus.EventError
	EventInvalidState       = bus.EventInvalidState
)

// PinKind distinguishes why a PIN is being requested, used only in the
// event payload — the admission/suspension logic does not branch on it.
type PinKind = bus.PinKind

const (
	PinKindSettings = bus.PinKindSettings
	PinKindTx       = bus.PinKindTx
	PinKindExport   = bus.PinKindExport
	PinKindUnlock   = bus.PinKindUnlock
)

// StateDTO is the external snapshot shape carried by EventDeviceState.
type StateDTO = bus.StateDTO

// Event is one outbound notification. Only the fields relevant to Kind are
// populated; the rest are zero.
type Event = bus.Event

// CommandKind is the closed set of inbound UI commands the bus accepts.
type CommandKind = bus.CommandKind

const (
	CommandPinSubmit        = bus.CommandPinSubmit
	CommandPinCancel        = bus.CommandPinCancel
	CommandPassphraseSubmit = bus.CommandPassphraseSubmit
	CommandPassphraseCancel = bus.CommandPassphraseCancel
)

// Command is one inbound UI instruction, correlated to a pending prompt by
// (UniqueID, RequestID).
type Command = bus.Command
