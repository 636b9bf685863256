// Package keepkey is the main API for talking to KeepKey hardware wallets
// over USB, abstracting away the bulk/HID transport split, device
// enumeration, and the interactive PIN/passphrase/button prompt flow behind
// a single request/response surface.
package keepkey

import (
	"context"
	"time"

	"github.com/keepkey/device-gateway/internal/bus"
	"github.com/keepkey/device-gateway/internal/enumerator"
	"github.com/keepkey/device-gateway/internal/interfaces"
	"github.com/keepkey/device-gateway/internal/logging"
	"github.com/keepkey/device-gateway/internal/policy"
	"github.com/keepkey/device-gateway/internal/queuemanager"
	"github.com/keepkey/device-gateway/internal/session"
	"github.com/keepkey/device-gateway/internal/transport"
	"github.com/keepkey/device-gateway/internal/wire"
)

// Logger is the narrow logging contract a Gateway's collaborators depend on.
type Logger = interfaces.Logger

// Observer is the narrow metrics contract a Gateway's collaborators depend on.
type Observer = interfaces.Observer

// Features is a device's capability/state snapshot, returned by GetFeatures
// and cached for the policy gate's read-only queries.
type Features = wire.Features

// Options carries the collaborators Open doesn't construct itself.
type Options struct {
	// Context governs the Gateway's background goroutines (enumeration loop,
	// worker lifecycles). If nil, context.Background() is used.
	Context context.Context

	// Logger receives debug-level wiring and worker traffic. If nil, Open
	// builds one from Config's LogLevel and LogFormat, writing to stderr.
	Logger Logger

	// Observer receives request/prompt/timeout/busy counters. Nil defaults to
	// a NoOpObserver.
	Observer Observer

	// Scanner overrides device discovery, for tests. Nil uses the platform
	// default (NewSysfsScanner on linux).
	Scanner enumerator.Scanner

	// HIDMandatory forces every device to open over HID even when a bulk
	// interface is present, matching platforms whose HID class driver can't
	// be detached (darwin).
	HIDMandatory bool
}

// Gateway is the process-wide facade over every collaborator: the
// enumerator discovers devices, the queue manager spawns and tears down one
// DeviceWorker per unique_id, the event bus carries prompts and state
// changes out, and the policy gate answers read-only Features/Busy queries.
type Gateway struct {
	cfg      Config
	logger   Logger
	observer Observer

	sessions *session.Registry
	bus      *bus.Bus
	queue    *queuemanager.Manager
	policy   *policy.Gate
	enum     *enumerator.Enumerator

	hidMandatory bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Open constructs a Gateway, starts its enumeration loop, and returns
// immediately — devices are discovered and wired up asynchronously as the
// enumerator's first poll completes. Close tears everything down.
func Open(cfg Config, opts *Options) (*Gateway, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(cfg.loggingConfig())
	}

	var observer Observer = NoOpObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	}

	scan := opts.Scanner
	if scan == nil {
		scan = enumerator.NewSysfsScanner()
	}

	sessions := session.NewRegistry()
	b := bus.New()
	qm := queuemanager.New(sessions, b, observer, logger)
	pol := policy.New(sessions)
	enum := enumerator.New(scan, cfg.EnumerationPollInterval, logger)

	gwCtx, cancel := context.WithCancel(ctx)
	g := &Gateway{
		cfg:          cfg,
		logger:       logger,
		observer:     observer,
		sessions:     sessions,
		bus:          b,
		queue:        qm,
		policy:       pol,
		enum:         enum,
		hidMandatory: opts.HIDMandatory,
		ctx:          gwCtx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go enum.Run(gwCtx)
	go g.watchEnumerator()

	return g, nil
}

// Close stops the enumeration loop, waiting for it to finish, then tells
// every live DeviceWorker to stop. It does not wait for the workers'
// goroutines to exit.
func (g *Gateway) Close() error {
	g.cancel()
	<-g.done
	g.queue.Shutdown()
	return nil
}

// watchEnumerator drains the enumerator's connect/disconnect events for the
// life of the Gateway, opening a transport and spawning a DeviceWorker on
// connect, and handing disconnect events to the queue manager, which keeps
// a session awaiting reconnect alive instead of always tearing it down.
func (g *Gateway) watchEnumerator() {
	defer close(g.done)
	for evt := range g.enum.Events() {
		switch evt.Kind {
		case enumerator.EventConnected:
			g.onConnected(evt.Device)
		case enumerator.EventDisconnected:
			g.queue.Disconnect(evt.Device.UniqueID)
		}
	}
}

func (g *Gateway) onConnected(info transport.DeviceInfo) {
	t, kind, err := transport.Open(info, g.hidMandatory)
	if err != nil {
		g.logDebugf("gateway: failed to open %s: %v", info.UniqueID, err)
		return
	}
	g.logDebugf("gateway: opened %s over %s", info.UniqueID, kind)
	g.queue.Add(info.UniqueID, t)
}

func (g *Gateway) logDebugf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Debugf(format, args...)
	}
}

// Subscribe registers a listener for outbound Events (device connect/
// disconnect, state changes, interactive prompts). The returned function
// unsubscribes; callers should defer it.
func (g *Gateway) Subscribe(bufferSize int) (<-chan Event, func()) {
	return g.bus.Subscribe(bufferSize)
}

// ListDevices returns the unique_id of every currently connected device.
func (g *Gateway) ListDevices() []string {
	return g.queue.UniqueIDs()
}

// IsBusy reports whether uniqueID's session is in any state other than Idle
// (awaiting a PIN, button press or passphrase, or somewhere in the
// reconnect cycle). Returns false for an unknown unique_id.
func (g *Gateway) IsBusy(uniqueID string) bool {
	return g.policy.IsBusy(uniqueID)
}

// Features returns the last Features response cached for uniqueID, if any
// has been fetched yet.
func (g *Gateway) Features(uniqueID string) (*Features, bool) {
	return g.policy.Features(uniqueID)
}

// State returns a point-in-time snapshot of uniqueID's session state.
func (g *Gateway) State(uniqueID string) (session.Snapshot, bool) {
	return g.policy.State(uniqueID)
}

// submit routes req through the queue manager and blocks on its reply,
// honoring ctx for cancellation — the request itself has already been
// admitted to the worker's mailbox by the time ctx is checked, so a
// cancelled ctx here only affects the caller's wait, not the device.
func (g *Gateway) submit(ctx context.Context, req *DeviceRequest, reply chan Result) (Result, error) {
	if !g.queue.Submit(req) {
		res := <-reply
		return res, res.Err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// GetFeatures fetches (or returns cached) device Features.
func (g *Gateway) GetFeatures(ctx context.Context, uniqueID string) (*Features, error) {
	req, reply := NewGetFeaturesRequest(uniqueID)
	res, err := g.submit(ctx, req, reply)
	if err != nil {
		return nil, err
	}
	return res.Features, nil
}

// GetAddress derives and returns an address for the given path/coin/script
// type, optionally requiring on-device display confirmation.
func (g *Gateway) GetAddress(ctx context.Context, uniqueID string, params GetAddressParams) (string, error) {
	req, reply := NewGetAddressRequest(uniqueID, params)
	res, err := g.submit(ctx, req, reply)
	if err != nil {
		return "", err
	}
	return res.Address, nil
}

// GetXpub derives and returns an extended public key for the given path.
func (g *Gateway) GetXpub(ctx context.Context, uniqueID string, params GetAddressParams) (string, error) {
	req, reply := NewGetXpubRequest(uniqueID, params)
	res, err := g.submit(ctx, req, reply)
	if err != nil {
		return "", err
	}
	return res.Xpub, nil
}

// SignTransaction drives a SignTx exchange to completion, including the
// device-driven TxRequest/TxAck round trips.
func (g *Gateway) SignTransaction(ctx context.Context, uniqueID string, params SignTransactionParams) (Result, error) {
	req, reply := NewSignTransactionRequest(uniqueID, params)
	return g.submit(ctx, req, reply)
}

// ApplySettings changes device settings (label, passphrase protection,
// language). A successful apply forces the session into NeedsReconnect.
func (g *Gateway) ApplySettings(ctx context.Context, uniqueID string, params ApplySettingsParams) error {
	req, reply := NewApplySettingsRequest(uniqueID, params)
	_, err := g.submit(ctx, req, reply)
	return err
}

// FirmwareErase erases the device's current firmware ahead of an upload.
func (g *Gateway) FirmwareErase(ctx context.Context, uniqueID string) error {
	req, reply := NewFirmwareEraseRequest(uniqueID)
	_, err := g.submit(ctx, req, reply)
	return err
}

// FirmwareUpload streams firmware bytes to the device.
func (g *Gateway) FirmwareUpload(ctx context.Context, uniqueID string, firmware []byte) error {
	req, reply := NewFirmwareUploadRequest(uniqueID, firmware)
	_, err := g.submit(ctx, req, reply)
	return err
}

// Cancel is queued on uniqueID's worker like any other request. If the
// session is then in a PIN, button or passphrase prompt, the worker writes
// the device Cancel message, resets the session to Idle and fails this
// call with ErrCodeCancelled; otherwise it is a no-op. A request whose
// prompt is suspended waiting for a UI command keeps the worker busy, so a
// Cancel queued behind it runs only after that request has finished.
func (g *Gateway) Cancel(ctx context.Context, uniqueID string) error {
	req, reply := NewCancelRequest(uniqueID)
	_, err := g.submit(ctx, req, reply)
	return err
}

// pendingMatches reports whether requestID is uniqueID's pending prompt.
func (g *Gateway) pendingMatches(uniqueID, requestID string) bool {
	s, ok := g.sessions.Get(uniqueID)
	return ok && s.Pending != nil && s.Pending.RequestID == requestID
}

// PinSubmit answers an AwaitingPin prompt correlated by requestID. It returns
// false, dispatching nothing, when requestID is not uniqueID's pending prompt
// or the command cannot be routed to the device's worker.
func (g *Gateway) PinSubmit(uniqueID, requestID, pin string) bool {
	return g.pendingMatches(uniqueID, requestID) && g.bus.Dispatch(Command{Kind: CommandPinSubmit, UniqueID: uniqueID, RequestID: requestID, Pin: pin})
}

// PinCancel aborts an AwaitingPin prompt correlated by requestID. It returns
// false under the same conditions as PinSubmit.
func (g *Gateway) PinCancel(uniqueID, requestID string) bool {
	return g.pendingMatches(uniqueID, requestID) && g.bus.Dispatch(Command{Kind: CommandPinCancel, UniqueID: uniqueID, RequestID: requestID})
}

// PassphraseSubmit answers an AwaitingPassphrase prompt correlated by
// requestID. It returns false under the same conditions as PinSubmit.
func (g *Gateway) PassphraseSubmit(uniqueID, requestID, passphrase string) bool {
	return g.pendingMatches(uniqueID, requestID) && g.bus.Dispatch(Command{Kind: CommandPassphraseSubmit, UniqueID: uniqueID, RequestID: requestID, Passphrase: passphrase})
}

// PassphraseCancel aborts an AwaitingPassphrase prompt correlated by
// requestID. It returns false under the same conditions as PinSubmit.
func (g *Gateway) PassphraseCancel(uniqueID, requestID string) bool {
	return g.pendingMatches(uniqueID, requestID) && g.bus.Dispatch(Command{Kind: CommandPassphraseCancel, UniqueID: uniqueID, RequestID: requestID})
}

// defaultTimeout is used by callers that want a bounded submit without
// threading their own context through.
const defaultTimeout = 30 * time.Second

// SubmitWithTimeout is a convenience wrapper bounding a raw DeviceRequest
// submission to defaultTimeout, for callers (tests, the CLI) that don't
// already carry a context.
func (g *Gateway) SubmitWithTimeout(req *DeviceRequest, reply chan Result) (Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return g.submit(ctx, req, reply)
}
