// Package worker implements C5, the heart of the core: one DeviceWorker per
// connected KeepKey, owning its Transport and Session exclusively and
// processing DeviceRequests off a single mailbox, one at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keepkey/device-gateway/internal/bus"
	"github.com/keepkey/device-gateway/internal/constants"
	"github.com/keepkey/device-gateway/internal/gwerrors"
	"github.com/keepkey/device-gateway/internal/interfaces"
	"github.com/keepkey/device-gateway/internal/requestapi"
	"github.com/keepkey/device-gateway/internal/session"
	"github.com/keepkey/device-gateway/internal/wire"
)

// Config wires one DeviceWorker's dependencies. UniqueID, Transport and
// Session are required. Bus, Logger and Observer may be nil, which disables
// them; a zero ReportTimeout, MaxContinuationReports or
// ConsecutiveTimeoutsBeforeInvalidState takes the internal/constants default.
type Config struct {
	UniqueID  string
	Transport interfaces.Transport
	Session   *session.Session
	Bus       *bus.Bus
	Logger    interfaces.Logger
	Observer  interfaces.Observer

	ReportTimeout                         time.Duration
	MaxContinuationReports                 int
	ConsecutiveTimeoutsBeforeInvalidState int
}

func (c *Config) setDefaults() {
	if c.ReportTimeout <= 0 {
		c.ReportTimeout = constants.DefaultReportReadTimeout
	}
	if c.MaxContinuationReports <= 0 {
		c.MaxContinuationReports = constants.DefaultMaxContinuationReports
	}
	if c.ConsecutiveTimeoutsBeforeInvalidState <= 0 {
		c.ConsecutiveTimeoutsBeforeInvalidState = constants.DefaultConsecutiveTimeoutsBeforeInvalidState
	}
}

// Worker is a single device's owned task. Mailbox is the only way to submit
// work; Commands carries UI responses to interactive prompts, routed here by
// the Bus via RegisterDevice.
type Worker struct {
	cfg      Config
	mailbox  chan *requestapi.Request
	commands chan bus.Command
	stop     chan struct{}
	done     chan struct{}
	ctxDone  <-chan struct{} // Run's ctx.Done(), watched by awaitCommand

	consecutiveTimeouts int
}

// New constructs a Worker. The caller must call Run in its own goroutine and
// feed it through Mailbox(); UI commands reach it over the Bus route New
// registers for UniqueID.
func New(cfg Config) *Worker {
	cfg.setDefaults()
	w := &Worker{
		cfg:      cfg,
		mailbox:  make(chan *requestapi.Request, 8),
		commands: make(chan bus.Command, 4),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if w.cfg.Bus != nil {
		w.cfg.Bus.RegisterDevice(w.cfg.UniqueID, w.commands)
	}
	return w
}

// Mailbox returns the channel on which DeviceRequests are submitted.
func (w *Worker) Mailbox() chan<- *requestapi.Request { return w.mailbox }

// Shutdown sends the poison pill described in spec §4.6: Run drains its
// mailbox, failing every pending request with ErrCodeDeviceDisconnected,
// then exits. Shutdown blocks until Run has returned.
func (w *Worker) Shutdown() {
	close(w.stop)
	<-w.done
}

// Run is the worker's main loop. It returns when Shutdown is called or ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.ctxDone = ctx.Done()
	defer close(w.done)
	defer func() {
		if w.cfg.Bus != nil {
			w.cfg.Bus.UnregisterDevice(w.cfg.UniqueID)
		}
		w.cfg.Transport.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			w.drainWithError(gwerrors.NewDevice("worker_shutdown", w.cfg.UniqueID, gwerrors.ErrCodeDeviceDisconnected, "context cancelled"))
			return
		case <-w.stop:
			w.drainWithError(gwerrors.NewDevice("worker_shutdown", w.cfg.UniqueID, gwerrors.ErrCodeDeviceDisconnected, "device disconnected"))
			return
		case cmd := <-w.commands:
			// A UI command arriving with nothing awaiting it (stale, or the
			// prompt already resolved) is simply logged and dropped.
			w.logDebugf("worker: stray command %s ignored (no prompt in flight)", cmd.Kind)
		case req := <-w.mailbox:
			w.handle(req)
		}
	}
}

// drainWithError fails every request still queued in the mailbox at
// shutdown time; it does not block waiting for more to arrive.
func (w *Worker) drainWithError(err error) {
	for {
		select {
		case req := <-w.mailbox:
			req.Reply <- requestapi.Result{Err: err}
		default:
			return
		}
	}
}

func (w *Worker) handle(req *requestapi.Request) {
	start := time.Now()
	result, handled := w.admit(req)
	if handled {
		w.observeRequest(req.Kind, start, result.Err == nil)
		req.Reply <- result
		return
	}

	result = w.exchange(req)
	w.observeRequest(req.Kind, start, result.Err == nil)
	req.Reply <- result
}

// admit implements spec §4.5's admission control. handled=true means the
// caller should reply with result immediately, without running the exchange
// loop.
func (w *Worker) admit(req *requestapi.Request) (result requestapi.Result, handled bool) {
	s := w.cfg.Session

	if req.Kind == requestapi.Cancel {
		return w.handleCancelAdmitted(), true
	}

	if s.IsInteractive() {
		if req.Kind == requestapi.GetFeatures {
			return requestapi.Result{Features: s.LastFeatures}, true
		}
		w.observeBusy()
		return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeBusy, "device is in interactive prompt")}, true
	}

	if s.Interaction == session.NeedsReconnect {
		if req.Kind == requestapi.GetFeatures {
			return requestapi.Result{Features: s.LastFeatures}, true
		}
		w.observeBusy()
		return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeBusy, "device needs a physical reconnect")}, true
	}

	if s.Interaction != session.Idle && req.Kind.NonEssential() {
		w.observeBusy()
		return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeBusy, "device is busy")}, true
	}

	// A GetFeatures arriving while Reinitializing falls through to a real
	// exchange rather than returning the stale cache: it is exactly the
	// proactive refresh the reconnect flow is waiting on (spec §4.5).
	return requestapi.Result{}, false
}

// handleCancelAdmitted handles a Cancel taken from the mailbox: if the
// session is in an interactive prompt it writes the device Cancel message,
// resets the session to Idle and fails the Cancel request itself with
// ErrCodeCancelled; with no prompt it is a no-op. It does not reach a
// request whose prompt is suspended in awaitCommand, since the worker reads
// no mailbox entries until that request has finished.
func (w *Worker) handleCancelAdmitted() requestapi.Result {
	s := w.cfg.Session
	if !s.IsInteractive() {
		return requestapi.Result{Message: "no request in flight"}
	}
	w.writeMessage(wire.Cancel{})
	s.Cancel()
	return requestapi.Result{Err: gwerrors.NewDevice("cancel", w.cfg.UniqueID, gwerrors.ErrCodeCancelled, "cancelled by caller")}
}

// exchange runs the core loop from spec §4.5 steps 1-4 for an admitted,
// non-cached request.
func (w *Worker) exchange(req *requestapi.Request) requestapi.Result {
	s := w.cfg.Session

	if req.Kind == requestapi.FirmwareUpload {
		s.Interaction = session.Idle
		return w.exchangeFirmwareUpload(req)
	}

	msg, err := w.buildOutbound(req)
	if err != nil {
		return requestapi.Result{Err: err}
	}
	// A Reinitializing session stays there: the reconnect flow's
	// FinishReinitializing moves it to Idle once this refresh has succeeded.
	if s.Interaction != session.Reinitializing {
		s.Interaction = session.Idle
	}

	if err := w.writeMessage(msg); err != nil {
		return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
	}

	for {
		resp, err := w.readMessageRetrying(req)
		if err != nil {
			return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
		}

		switch m := resp.(type) {
		case wire.ButtonRequest:
			requestID, err := s.BeginPrompt(session.AwaitingButton, session.PendingButton, opForKind(req.Kind))
			if err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			w.publish(bus.Event{Kind: bus.EventAwaitingButton, UniqueID: w.cfg.UniqueID, RequestID: requestID, Label: m.Code})
			w.observePrompt("button")
			if err := w.writeMessage(wire.ButtonAck{}); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			if err := s.ResolvePrompt(); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			continue

		case wire.PinMatrixRequest:
			return w.sufferPinPrompt(req, m)

		case wire.PassphraseRequest:
			return w.sufferPassphrasePrompt(req)

		case wire.Failure:
			return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeIO, fmt.Sprintf("%s: %s", m.Code, m.Message))}

		default:
			return w.completeTerminal(req, resp)
		}
	}
}

// exchangeFirmwareUpload drives a full firmware image to completion as a
// sequence of FirmwareUpload messages (SPEC_FULL.md §13.2): each chunk
// awaits its own Success/ButtonRequest round trip before the next chunk is
// written, keeping every single wire message comfortably under the
// continuation-report ceiling that bounds a message's size.
func (w *Worker) exchangeFirmwareUpload(req *requestapi.Request) requestapi.Result {
	payload := req.FirmwareUpload
	offset := 0

	for {
		end := offset + constants.FirmwareUploadChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[offset:end]

		if err := w.writeMessage(wire.FirmwareUpload{Payload: chunk, Offset: uint32(offset)}); err != nil {
			return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
		}

		done, result := w.readFirmwareChunkResponse(req)
		offset = end
		if done || offset >= len(payload) {
			return result
		}
	}
}

// readFirmwareChunkResponse reads the device's reaction to one already-
// written FirmwareUpload chunk. done=false means the chunk was accepted
// (Success) and the caller should write the next one; done=true means the
// upload ended here (terminal response, suspended prompt, or error) and
// result is the final answer for the whole request.
func (w *Worker) readFirmwareChunkResponse(req *requestapi.Request) (done bool, result requestapi.Result) {
	s := w.cfg.Session
	for {
		resp, err := w.readMessageRetrying(req)
		if err != nil {
			return true, requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
		}

		switch m := resp.(type) {
		case wire.ButtonRequest:
			requestID, err := s.BeginPrompt(session.AwaitingButton, session.PendingButton, opForKind(req.Kind))
			if err != nil {
				return true, requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			w.publish(bus.Event{Kind: bus.EventAwaitingButton, UniqueID: w.cfg.UniqueID, RequestID: requestID, Label: m.Code})
			w.observePrompt("button")
			if err := w.writeMessage(wire.ButtonAck{}); err != nil {
				return true, requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			if err := s.ResolvePrompt(); err != nil {
				return true, requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			continue
		case wire.PinMatrixRequest:
			return true, w.sufferPinPrompt(req, m)
		case wire.PassphraseRequest:
			return true, w.sufferPassphrasePrompt(req)
		case wire.Failure:
			return true, requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeIO, fmt.Sprintf("%s: %s", m.Code, m.Message))}
		case wire.Success:
			return false, requestapi.Result{Message: m.Message}
		default:
			return true, w.completeTerminal(req, resp)
		}
	}
}

// sufferPinPrompt suspends the exchange loop on the bus's command channel
// until a matching pin_submit/pin_cancel arrives (spec §4.5 PinMatrixRequest
// handling).
func (w *Worker) sufferPinPrompt(req *requestapi.Request, m wire.PinMatrixRequest) requestapi.Result {
	s := w.cfg.Session
	requestID, err := s.BeginPrompt(session.AwaitingPin, session.PendingPin, opForKind(req.Kind))
	if err != nil {
		return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
	}
	w.publish(bus.Event{Kind: bus.EventAwaitingPin, UniqueID: w.cfg.UniqueID, RequestID: requestID, PinKind: pinKindForOp(opForKind(req.Kind))})
	w.observePrompt("pin")

	for {
		cmd, ok := w.awaitCommand(requestID)
		if !ok {
			return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeDeviceDisconnected, "device disconnected mid-prompt")}
		}
		switch cmd.Kind {
		case bus.CommandPinCancel:
			w.writeMessage(wire.Cancel{})
			s.Cancel()
			return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeCancelled, "pin cancelled")}
		case bus.CommandPinSubmit:
			if cmd.Pin == "" {
				w.publish(bus.Event{Kind: bus.EventError, UniqueID: w.cfg.UniqueID, RequestID: requestID, Code: gwerrors.ErrCodeInvalidPin, Message: "empty pin"})
				continue // re-suspend; same requestID still pending
			}
			if err := w.writeMessage(wire.PinMatrixAck{Pin: cmd.Pin}); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			if err := s.ResolvePrompt(); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			return w.continueExchange(req)
		default:
			continue // stray command for a different kind, ignore and re-suspend
		}
	}
}

func (w *Worker) sufferPassphrasePrompt(req *requestapi.Request) requestapi.Result {
	s := w.cfg.Session
	requestID, err := s.BeginPrompt(session.AwaitingPassphrase, session.PendingPassphrase, opForKind(req.Kind))
	if err != nil {
		return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
	}
	w.publish(bus.Event{Kind: bus.EventAwaitingPassphrase, UniqueID: w.cfg.UniqueID, RequestID: requestID, CacheAllowed: s.CacheAllowed})
	w.observePrompt("passphrase")

	for {
		cmd, ok := w.awaitCommand(requestID)
		if !ok {
			return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeDeviceDisconnected, "device disconnected mid-prompt")}
		}
		switch cmd.Kind {
		case bus.CommandPassphraseCancel:
			w.writeMessage(wire.Cancel{})
			s.Cancel()
			return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeCancelled, "passphrase cancelled")}
		case bus.CommandPassphraseSubmit:
			if cmd.Passphrase == "" {
				w.publish(bus.Event{Kind: bus.EventError, UniqueID: w.cfg.UniqueID, RequestID: requestID, Code: gwerrors.ErrCodeInvalidPassphrase, Message: "empty passphrase"})
				continue
			}
			if err := w.writeMessage(wire.PassphraseAck{Passphrase: cmd.Passphrase}); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			if err := s.ResolvePrompt(); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			return w.continueExchange(req)
		default:
			continue
		}
	}
}

// awaitCommand blocks on w.commands, discarding stray entries that don't
// correlate to requestID, until ctx-level shutdown is signalled.
func (w *Worker) awaitCommand(requestID string) (bus.Command, bool) {
	for {
		select {
		case <-w.stop:
			return bus.Command{}, false
		case <-w.ctxDone:
			return bus.Command{}, false
		case cmd := <-w.commands:
			if cmd.UniqueID != w.cfg.UniqueID || cmd.RequestID != requestID {
				w.logDebugf("worker: stale command request_id=%s (awaiting %s), rejecting", cmd.RequestID, requestID)
				continue
			}
			return cmd, true
		}
	}
}

// continueExchange resumes the read loop after an Ack has been written,
// without re-running admission control or re-encoding the original request.
func (w *Worker) continueExchange(req *requestapi.Request) requestapi.Result {
	for {
		resp, err := w.readMessageRetrying(req)
		if err != nil {
			return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
		}

		switch m := resp.(type) {
		case wire.ButtonRequest:
			s := w.cfg.Session
			requestID, err := s.BeginPrompt(session.AwaitingButton, session.PendingButton, opForKind(req.Kind))
			if err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			w.publish(bus.Event{Kind: bus.EventAwaitingButton, UniqueID: w.cfg.UniqueID, RequestID: requestID, Label: m.Code})
			w.observePrompt("button")
			if err := w.writeMessage(wire.ButtonAck{}); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			if err := s.ResolvePrompt(); err != nil {
				return requestapi.Result{Err: gwerrors.Wrap(opForKind(req.Kind), err)}
			}
			continue
		case wire.PinMatrixRequest:
			return w.sufferPinPrompt(req, m)
		case wire.PassphraseRequest:
			return w.sufferPassphrasePrompt(req)
		case wire.Failure:
			return requestapi.Result{Err: gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeIO, fmt.Sprintf("%s: %s", m.Code, m.Message))}
		default:
			return w.completeTerminal(req, resp)
		}
	}
}

// completeTerminal updates caches and, where the request requires a physical
// reconnect to take effect, transitions the session into NeedsReconnect
// (spec §4.5 Reconnect semantics) before returning the result.
func (w *Worker) completeTerminal(req *requestapi.Request, resp wire.Message) requestapi.Result {
	s := w.cfg.Session
	result := requestapi.Result{Raw: resp}

	switch m := resp.(type) {
	case wire.Success:
		result.Message = m.Message
	case wire.Features:
		s.LastFeatures = &m
		result.Features = &m
	case wire.Address:
		result.Address = m.Address
	case wire.PublicKey:
		result.Xpub = m.Xpub
	default:
		// Any other terminal-looking variant (e.g. a raw SendRaw reply) is
		// returned as-is via Raw for the caller to interpret.
	}

	if req.Kind == requestapi.ApplySettings {
		s.RequireReconnect("settings change requires a physical reconnect")
		w.publish(bus.Event{Kind: bus.EventNeedsReconnect, UniqueID: w.cfg.UniqueID, Reason: s.InteractionNote})
		return result
	}

	if s.IsInteractive() {
		if err := s.ResolvePrompt(); err != nil {
			// A terminal response arriving without a live prompt (GetFeatures,
			// GetAddress, ...) never needs ResolvePrompt; only log if it was
			// actually expected to succeed.
			w.logDebugf("worker: %v", err)
		}
	}
	return result
}

// readMessageRetrying reads one message, retrying a report-read timeout in
// place rather than failing the request on it: spec §5 "a single timeout is
// not fatal." Only a run of ConsecutiveTimeoutsBeforeInvalidState timeouts
// with no intervening bytes promotes the device into invalid_state and
// fails the request, matching spec §8 scenario 5.
func (w *Worker) readMessageRetrying(req *requestapi.Request) (wire.Message, error) {
	for {
		resp, err := w.readMessage()
		if err == nil {
			w.consecutiveTimeouts = 0
			return resp, nil
		}
		var coded interface{ TransportCode() string }
		isTimeout := gwerrors.IsCode(err, gwerrors.ErrCodeTimeout) ||
			(errors.As(err, &coded) && coded.TransportCode() == "timeout")
		if !isTimeout {
			return nil, err
		}
		w.consecutiveTimeouts++
		w.observeTimeout()
		if w.consecutiveTimeouts >= w.cfg.ConsecutiveTimeoutsBeforeInvalidState {
			w.publish(bus.Event{Kind: bus.EventInvalidState, UniqueID: w.cfg.UniqueID, Details: "consecutive report-read timeouts exceeded threshold"})
			return nil, gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeInvalidState, "consecutive report-read timeouts exceeded threshold")
		}
	}
}

func (w *Worker) buildOutbound(req *requestapi.Request) (wire.Message, error) {
	switch req.Kind {
	case requestapi.GetFeatures:
		return wire.Initialize{}, nil
	case requestapi.GetAddress:
		p := req.GetAddress
		return wire.GetAddress{AddressN: p.AddressN, CoinName: p.CoinName, ScriptType: p.ScriptType, ShowDisplay: p.ShowDisplay}, nil
	case requestapi.GetXpub:
		p := req.GetAddress
		return wire.GetPublicKey{AddressN: p.AddressN, CoinName: p.CoinName, ScriptType: p.ScriptType}, nil
	case requestapi.SignTransaction:
		p := req.SignTransaction
		return wire.SignTx{InputsCount: p.InputsCount, OutputsCount: p.OutputsCount, CoinName: p.CoinName}, nil
	case requestapi.ApplySettings:
		p := req.ApplySettings
		return wire.ApplySettings{UsePassphrase: p.UsePassphrase, Label: p.Label, Language: p.Language}, nil
	case requestapi.FirmwareErase:
		return wire.FirmwareErase{}, nil
	// requestapi.FirmwareUpload is handled by exchangeFirmwareUpload before
	// buildOutbound is ever reached; it has no single-message encoding.
	case requestapi.SendRaw:
		if req.SendRaw == nil {
			return nil, gwerrors.NewDevice("send_raw", w.cfg.UniqueID, gwerrors.ErrCodeUnexpectedMessage, "SendRaw request carries a nil message")
		}
		return req.SendRaw, nil
	default:
		return nil, gwerrors.NewDevice(opForKind(req.Kind), w.cfg.UniqueID, gwerrors.ErrCodeUnexpectedMessage, "unsupported request kind")
	}
}

func (w *Worker) writeMessage(msg wire.Message) error {
	for _, report := range wire.Encode(msg) {
		if err := w.cfg.Transport.WriteReport(report); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) readMessage() (wire.Message, error) {
	return wire.DecodeMessage(w.cfg.Transport.ReadReport, w.cfg.ReportTimeout, w.cfg.MaxContinuationReports)
}

func (w *Worker) publish(evt bus.Event) {
	if w.cfg.Bus != nil {
		w.cfg.Bus.Publish(evt)
	}
}

func (w *Worker) observeRequest(kind requestapi.Kind, start time.Time, success bool) {
	if w.cfg.Observer != nil {
		w.cfg.Observer.ObserveRequest(kind.String(), uint64(time.Since(start).Nanoseconds()), success)
	}
}

func (w *Worker) observePrompt(kind string) {
	if w.cfg.Observer != nil {
		w.cfg.Observer.ObservePrompt(kind)
	}
}

func (w *Worker) observeTimeout() {
	if w.cfg.Observer != nil {
		w.cfg.Observer.ObserveTimeout()
	}
}

func (w *Worker) observeBusy() {
	if w.cfg.Observer != nil {
		w.cfg.Observer.ObserveBusy()
	}
}

func (w *Worker) logDebugf(format string, args ...any) {
	if w.cfg.Logger != nil {
		w.cfg.Logger.Debugf(format, args...)
	}
}

func opForKind(kind requestapi.Kind) string { return kind.String() }

func pinKindForOp(op string) bus.PinKind {
	switch op {
	case "apply_settings":
		return bus.PinKindSettings
	case "sign_transaction":
		return bus.PinKindTx
	case "get_xpub", "get_address":
		return bus.PinKindExport
	default:
		return bus.PinKindUnlock
	}
}
