package bus

import (
	"github.com/keepkey/device-gateway/internal/gwerrors"
	"github.com/keepkey/device-gateway/internal/wire"
)

// EventKind is the closed set of outbound notifications the bus (C8)
// publishes toward the UI/HTTP layer.
type EventKind string

const (
	EventDeviceConnected    EventKind = "device:connected"
	EventDeviceDisconnected EventKind = "device:disconnected"
	EventDeviceState        EventKind = "device:state"
	EventAwaitingPin        EventKind = "device:awaiting_pin"
	EventAwaitingButton     EventKind = "device:awaiting_button"
	EventAwaitingPassphrase EventKind = "device:awaiting_passphrase"
	EventNeedsReconnect     EventKind = "device:needs_reconnect"
	EventFeaturesUpdated    EventKind = "device:features_updated"
	EventError              EventKind = "device:error"
	EventInvalidState       EventKind = "device:invalid_state"
)

// PinKind distinguishes why a PIN is being requested, used only in the
// event payload — the admission/suspension logic does not branch on it.
type PinKind string

const (
	PinKindSettings PinKind = "settings"
	PinKindTx       PinKind = "tx"
	PinKindExport   PinKind = "export"
	PinKindUnlock   PinKind = "unlock"
)

// StateDTO is the external snapshot shape carried by EventDeviceState,
// derived from a session.Snapshot but independent of the session package so
// external consumers never see internal types directly.
type StateDTO struct {
	UniqueID         string
	TransportState   string
	Interaction      string
	InteractionNote  string
	PinCached        bool
	PassphraseCached bool
}

// Event is one outbound notification. Only the fields relevant to Kind are
// populated; the rest are zero.
type Event struct {
	Kind         EventKind
	UniqueID     string
	RequestID    string
	Label        string
	Reason       string
	PinKind      PinKind
	CacheAllowed bool
	Code         gwerrors.ErrorCode
	Message      string
	Details      string
	Features     *wire.Features
	State        *StateDTO
}

// CommandKind is the closed set of inbound UI commands the bus accepts.
type CommandKind string

const (
	CommandPinSubmit        CommandKind = "pin_submit"
	CommandPinCancel        CommandKind = "pin_cancel"
	CommandPassphraseSubmit CommandKind = "passphrase_submit"
	CommandPassphraseCancel CommandKind = "passphrase_cancel"
)

// Command is one inbound UI instruction, correlated to a pending prompt by
// (UniqueID, RequestID).
type Command struct {
	Kind       CommandKind
	UniqueID   string
	RequestID  string
	Pin        string
	Passphrase string
}
