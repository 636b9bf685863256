package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/keepkey/device-gateway/internal/bus"
	"github.com/keepkey/device-gateway/internal/constants"
	"github.com/keepkey/device-gateway/internal/gwerrors"
	"github.com/keepkey/device-gateway/internal/requestapi"
	"github.com/keepkey/device-gateway/internal/session"
	"github.com/keepkey/device-gateway/internal/wire"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a scripted in-memory interfaces.Transport: writes are
// recorded, reads are served from a queue of pre-framed device replies built
// with wire.EncodeDeviceReply, one report at a time.
type fakeTransport struct {
	mu              sync.Mutex
	written         [][]byte
	reports         [][]byte
	closed          bool
	pendingTimeouts int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

// queueReply frames msg the way the device would and appends its reports to
// the read queue.
func (f *fakeTransport) queueReply(msg wire.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, wire.EncodeDeviceReply(msg)...)
}

func (f *fakeTransport) WriteReport(report []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), report...)
	f.written = append(f.written, cp)
	return nil
}

// queueTimeouts makes the next n ReadReport calls return ErrCodeTimeout
// before falling through to the normal queued-reports behavior, simulating
// a flaky device that eventually answers.
func (f *fakeTransport) queueTimeouts(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingTimeouts += n
}

func (f *fakeTransport) ReadReport(timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingTimeouts > 0 {
		f.pendingTimeouts--
		return nil, gwerrors.New("read_report", gwerrors.ErrCodeTimeout, "no report queued")
	}
	if len(f.reports) == 0 {
		return nil, gwerrors.New("read_report", gwerrors.ErrCodeTimeout, "no report queued")
	}
	r := f.reports[0]
	f.reports = f.reports[1:]
	return r, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func newTestWorker(t *testing.T, transport *fakeTransport) (*Worker, *session.Session, *bus.Bus) {
	t.Helper()
	sess := session.NewSession("dev-1")
	b := bus.New()
	w := New(Config{
		UniqueID:  "dev-1",
		Transport: transport,
		Session:   sess,
		Bus:       b,
	})
	return w, sess, b
}

func TestGetFeatures_HappyPath(t *testing.T) {
	transport := newFakeTransport()
	transport.queueReply(wire.Features{Label: "mykeepkey", Initialized: true})
	w, _, _ := newTestWorker(t, transport)

	req, reply := requestapi.NewGetFeaturesRequest("dev-1")
	w.handle(req)
	result := <-reply

	require.NoError(t, result.Err)
	require.NotNil(t, result.Features)
	require.Equal(t, "mykeepkey", result.Features.Label)
}

func TestGetAddress_FailureResponse(t *testing.T) {
	transport := newFakeTransport()
	transport.queueReply(wire.Failure{Code: "Failure_ActionCancelled", Message: "user cancelled"})
	w, _, _ := newTestWorker(t, transport)

	req, reply := requestapi.NewGetAddressRequest("dev-1", requestapi.GetAddressParams{CoinName: "Bitcoin"})
	w.handle(req)
	result := <-reply

	require.Error(t, result.Err)
	require.True(t, gwerrors.IsCode(result.Err, gwerrors.ErrCodeIO))
}

func TestGetAddress_ButtonRequestThenAddress(t *testing.T) {
	transport := newFakeTransport()
	transport.queueReply(wire.ButtonRequest{Code: "ButtonRequest_Address"})
	transport.queueReply(wire.Address{Address: "1abc"})
	w, _, b := newTestWorker(t, transport)

	events, unsub := b.Subscribe(4)
	defer unsub()

	req, reply := requestapi.NewGetAddressRequest("dev-1", requestapi.GetAddressParams{CoinName: "Bitcoin"})
	w.handle(req)
	result := <-reply

	require.NoError(t, result.Err)
	require.Equal(t, "1abc", result.Address)

	select {
	case evt := <-events:
		require.Equal(t, bus.EventAwaitingButton, evt.Kind)
	default:
		t.Fatal("expected an awaiting_button event")
	}
}

func TestGetAddress_PinPromptRoundTrip(t *testing.T) {
	transport := newFakeTransport()
	transport.queueReply(wire.PinMatrixRequest{MatrixType: "Current"})
	w, _, b := newTestWorker(t, transport)

	events, unsub := b.Subscribe(4)
	defer unsub()

	req, reply := requestapi.NewGetAddressRequest("dev-1", requestapi.GetAddressParams{CoinName: "Bitcoin"})
	go w.handle(req)

	var evt bus.Event
	select {
	case evt = <-events:
	case <-time.After(time.Second):
		t.Fatal("expected awaiting_pin event")
	}
	require.Equal(t, bus.EventAwaitingPin, evt.Kind)
	require.NotEmpty(t, evt.RequestID)

	transport.queueReply(wire.Address{Address: "1pin"})
	ok := b.Dispatch(bus.Command{Kind: bus.CommandPinSubmit, UniqueID: "dev-1", RequestID: evt.RequestID, Pin: "1234"})
	require.True(t, ok)

	select {
	case result := <-reply:
		require.NoError(t, result.Err)
		require.Equal(t, "1pin", result.Address)
	case <-time.After(time.Second):
		t.Fatal("worker never replied")
	}
}

func TestGetAddress_EmptyPinReSuspendsPrompt(t *testing.T) {
	transport := newFakeTransport()
	transport.queueReply(wire.PinMatrixRequest{MatrixType: "Current"})
	w, _, b := newTestWorker(t, transport)

	events, unsub := b.Subscribe(4)
	defer unsub()

	req, reply := requestapi.NewGetAddressRequest("dev-1", requestapi.GetAddressParams{CoinName: "Bitcoin"})
	go w.handle(req)

	var evt bus.Event
	select {
	case evt = <-events:
	case <-time.After(time.Second):
		t.Fatal("expected awaiting_pin event")
	}

	b.Dispatch(bus.Command{Kind: bus.CommandPinSubmit, UniqueID: "dev-1", RequestID: evt.RequestID, Pin: ""})

	select {
	case errEvt := <-events:
		require.Equal(t, bus.EventError, errEvt.Kind)
		require.Equal(t, gwerrors.ErrCodeInvalidPin, errEvt.Code)
	case <-time.After(time.Second):
		t.Fatal("expected an invalid_pin error event")
	}

	transport.queueReply(wire.Address{Address: "1retry"})
	b.Dispatch(bus.Command{Kind: bus.CommandPinSubmit, UniqueID: "dev-1", RequestID: evt.RequestID, Pin: "5678"})

	select {
	case result := <-reply:
		require.NoError(t, result.Err)
		require.Equal(t, "1retry", result.Address)
	case <-time.After(time.Second):
		t.Fatal("worker never replied")
	}
}

func TestAdmission_RejectsNonEssentialWhileInteractive(t *testing.T) {
	transport := newFakeTransport()
	sess := session.NewSession("dev-1")
	_, err := sess.BeginPrompt(session.AwaitingPin, session.PendingPin, "get_address")
	require.NoError(t, err)

	w := New(Config{UniqueID: "dev-1", Transport: transport, Session: sess, Bus: bus.New()})

	req, reply := requestapi.NewGetXpubRequest("dev-1", requestapi.GetAddressParams{CoinName: "Bitcoin"})
	w.handle(req)
	result := <-reply

	require.Error(t, result.Err)
	require.True(t, gwerrors.IsCode(result.Err, gwerrors.ErrCodeBusy))
}

func TestAdmission_GetFeaturesServedFromCacheWhileInteractive(t *testing.T) {
	transport := newFakeTransport()
	sess := session.NewSession("dev-1")
	sess.LastFeatures = &wire.Features{Label: "cached"}
	_, err := sess.BeginPrompt(session.AwaitingButton, session.PendingButton, "sign_transaction")
	require.NoError(t, err)

	w := New(Config{UniqueID: "dev-1", Transport: transport, Session: sess, Bus: bus.New()})

	req, reply := requestapi.NewGetFeaturesRequest("dev-1")
	w.handle(req)
	result := <-reply

	require.NoError(t, result.Err)
	require.Equal(t, "cached", result.Features.Label)
	require.Empty(t, transport.written, "cached GetFeatures must not touch the wire")
}

func TestAdmission_GetFeaturesDuringReinitializingHitsTheWire(t *testing.T) {
	transport := newFakeTransport()
	transport.queueReply(wire.Features{Label: "fresh-after-reconnect"})
	sess := session.NewSession("dev-1")
	sess.LastFeatures = &wire.Features{Label: "stale"}
	sess.RequireReconnect("settings changed")
	sess.OnDisconnected()
	require.True(t, sess.OnReconnected())
	require.Equal(t, session.Reinitializing, sess.Interaction)

	w := New(Config{UniqueID: "dev-1", Transport: transport, Session: sess, Bus: bus.New()})

	req, reply := requestapi.NewGetFeaturesRequest("dev-1")
	w.handle(req)
	result := <-reply

	require.NoError(t, result.Err)
	require.Equal(t, "fresh-after-reconnect", result.Features.Label, "a GetFeatures while Reinitializing must perform a real exchange, not serve the stale cache")
	require.NotEmpty(t, transport.written)
}

func TestAdmission_CancelWithNothingInFlightIsNoOp(t *testing.T) {
	transport := newFakeTransport()
	w, _, _ := newTestWorker(t, transport)

	req, reply := requestapi.NewCancelRequest("dev-1")
	w.handle(req)
	result := <-reply

	require.NoError(t, result.Err)
	require.Empty(t, transport.written)
}

func TestAdmission_CancelDuringPromptWritesCancelAndFailsInFlight(t *testing.T) {
	transport := newFakeTransport()
	sess := session.NewSession("dev-1")
	_, err := sess.BeginPrompt(session.AwaitingPin, session.PendingPin, "get_address")
	require.NoError(t, err)

	w := New(Config{UniqueID: "dev-1", Transport: transport, Session: sess, Bus: bus.New()})

	req, reply := requestapi.NewCancelRequest("dev-1")
	w.handle(req)
	result := <-reply

	require.Error(t, result.Err)
	require.True(t, gwerrors.IsCode(result.Err, gwerrors.ErrCodeCancelled))
	require.Equal(t, session.Idle, sess.Interaction)
	require.NotEmpty(t, transport.written)
}

func TestApplySettings_ForcesNeedsReconnect(t *testing.T) {
	transport := newFakeTransport()
	transport.queueReply(wire.Success{Message: "applied"})
	w, sess, b := newTestWorker(t, transport)

	events, unsub := b.Subscribe(4)
	defer unsub()

	use := true
	req, reply := requestapi.NewApplySettingsRequest("dev-1", requestapi.ApplySettingsParams{UsePassphrase: &use})
	w.handle(req)
	result := <-reply

	require.NoError(t, result.Err)
	require.Equal(t, session.NeedsReconnect, sess.Interaction)

	select {
	case evt := <-events:
		require.Equal(t, bus.EventNeedsReconnect, evt.Kind)
	default:
		t.Fatal("expected a needs_reconnect event")
	}
}

func TestGetFeatures_SurvivesTimeoutsUnderThreshold(t *testing.T) {
	transport := newFakeTransport()
	transport.queueTimeouts(2) // below the default threshold of 3
	transport.queueReply(wire.Features{Label: "mykeepkey", Initialized: true})
	w, _, _ := newTestWorker(t, transport)

	req, reply := requestapi.NewGetFeaturesRequest("dev-1")
	w.handle(req)
	result := <-reply

	require.NoError(t, result.Err)
	require.NotNil(t, result.Features)
	require.Equal(t, "mykeepkey", result.Features.Label)
}

func TestGetFeatures_ConsecutiveTimeoutsFailWithInvalidState(t *testing.T) {
	transport := newFakeTransport()
	transport.queueTimeouts(3) // meets the default threshold of 3, nothing queued after
	w, _, b := newTestWorker(t, transport)

	events, unsub := b.Subscribe(4)
	defer unsub()

	req, reply := requestapi.NewGetFeaturesRequest("dev-1")
	w.handle(req)
	result := <-reply

	require.Error(t, result.Err)
	require.True(t, gwerrors.IsCode(result.Err, gwerrors.ErrCodeInvalidState))

	select {
	case evt := <-events:
		require.Equal(t, bus.EventInvalidState, evt.Kind)
	default:
		t.Fatal("expected an invalid_state event")
	}
}

func TestRunExitsAndClosesTransportOnShutdown(t *testing.T) {
	transport := newFakeTransport()
	w, _, _ := newTestWorker(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	w.Shutdown()
	<-done

	require.True(t, transport.closed)
}

func TestFirmwareUpload_ChunksLargePayload(t *testing.T) {
	transport := newFakeTransport()
	chunkSize := constants.FirmwareUploadChunkSize
	payload := make([]byte, chunkSize*2+10) // three unequal chunks
	for i := range payload {
		payload[i] = byte(i)
	}
	for i := 0; i < 3; i++ {
		transport.queueReply(wire.Success{Message: "ok"})
	}
	w, _, _ := newTestWorker(t, transport)

	req, reply := requestapi.NewFirmwareUploadRequest("dev-1", payload)
	w.handle(req)
	result := <-reply
	require.NoError(t, result.Err)

	written := transport.written
	require.NotEmpty(t, written)

	idx := 0
	reader := wire.ReportReader(func(timeout time.Duration) ([]byte, error) {
		if idx >= len(written) {
			return nil, gwerrors.New("read", gwerrors.ErrCodeTimeout, "exhausted")
		}
		r := written[idx]
		idx++
		return r, nil
	})

	var offsets []uint32
	var sizes []int
	for i := 0; i < 3; i++ {
		msg, err := wire.DecodeMessage(reader, time.Second, constants.DefaultMaxContinuationReports)
		require.NoError(t, err)
		fu, ok := msg.(wire.FirmwareUpload)
		require.True(t, ok)
		offsets = append(offsets, fu.Offset)
		sizes = append(sizes, len(fu.Payload))
	}
	require.Equal(t, []uint32{0, uint32(chunkSize), uint32(chunkSize * 2)}, offsets)
	require.Equal(t, []int{chunkSize, chunkSize, 10}, sizes)
}

func TestDrainWithError_FailsQueuedRequests(t *testing.T) {
	transport := newFakeTransport()
	w, _, _ := newTestWorker(t, transport)

	req, reply := requestapi.NewGetFeaturesRequest("dev-1")
	w.mailbox <- req

	w.drainWithError(gwerrors.NewDevice("worker_shutdown", "dev-1", gwerrors.ErrCodeDeviceDisconnected, "device disconnected"))

	result := <-reply
	require.True(t, gwerrors.IsCode(result.Err, gwerrors.ErrCodeDeviceDisconnected))
}
