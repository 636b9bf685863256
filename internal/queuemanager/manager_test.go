package queuemanager

import (
	"testing"
	"time"

	"github.com/keepkey/device-gateway/internal/bus"
	"github.com/keepkey/device-gateway/internal/gwerrors"
	"github.com/keepkey/device-gateway/internal/requestapi"
	"github.com/keepkey/device-gateway/internal/session"
	"github.com/keepkey/device-gateway/internal/wire"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	reports [][]byte
}

func (f *fakeTransport) queueReply(msg wire.Message) {
	f.reports = append(f.reports, wire.EncodeDeviceReply(msg)...)
}

func (f *fakeTransport) WriteReport(report []byte) error { return nil }

func (f *fakeTransport) ReadReport(timeout time.Duration) ([]byte, error) {
	if len(f.reports) == 0 {
		return nil, gwerrors.New("read_report", gwerrors.ErrCodeTimeout, "no report queued")
	}
	r := f.reports[0]
	f.reports = f.reports[1:]
	return r, nil
}

func (f *fakeTransport) Close() error { return nil }

func TestSubmit_RoutesToRegisteredWorker(t *testing.T) {
	sessions := session.NewRegistry()
	b := bus.New()
	mgr := New(sessions, b, nil, nil)

	transport := &fakeTransport{}
	transport.queueReply(wire.Features{Label: "dev-1-label"})
	mgr.Add("dev-1", transport)
	defer mgr.Shutdown()

	req, reply := requestapi.NewGetFeaturesRequest("dev-1")
	ok := mgr.Submit(req)
	require.True(t, ok)

	select {
	case result := <-reply:
		require.NoError(t, result.Err)
		require.Equal(t, "dev-1-label", result.Features.Label)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never replied")
	}
}

func TestSubmit_FailsForUnknownDevice(t *testing.T) {
	sessions := session.NewRegistry()
	mgr := New(sessions, bus.New(), nil, nil)

	req, reply := requestapi.NewGetFeaturesRequest("ghost")
	ok := mgr.Submit(req)
	require.False(t, ok)

	result := <-reply
	require.True(t, gwerrors.IsCode(result.Err, gwerrors.ErrCodeDeviceNotFound))
}

func TestRemove_TearsDownWorkerAndSession(t *testing.T) {
	sessions := session.NewRegistry()
	mgr := New(sessions, bus.New(), nil, nil)

	mgr.Add("dev-1", &fakeTransport{})
	require.True(t, mgr.Has("dev-1"))

	mgr.Remove("dev-1")
	require.False(t, mgr.Has("dev-1"))

	_, ok := sessions.Get("dev-1")
	require.False(t, ok)
}

func TestAdd_ReplacesStaleEntryForSameUniqueID(t *testing.T) {
	sessions := session.NewRegistry()
	mgr := New(sessions, bus.New(), nil, nil)

	mgr.Add("dev-1", &fakeTransport{})
	first, _ := sessions.Get("dev-1")

	mgr.Add("dev-1", &fakeTransport{})
	second, _ := sessions.Get("dev-1")

	require.NotSame(t, first, second)
	require.Equal(t, 1, len(mgr.UniqueIDs()))
}

func TestShutdown_RemovesEveryWorker(t *testing.T) {
	sessions := session.NewRegistry()
	mgr := New(sessions, bus.New(), nil, nil)

	mgr.Add("dev-1", &fakeTransport{})
	mgr.Add("dev-2", &fakeTransport{})
	require.Equal(t, 2, len(mgr.UniqueIDs()))

	mgr.Shutdown()
	require.Equal(t, 0, len(mgr.UniqueIDs()))
}

func TestDisconnect_TearsDownOrdinarySessionLikeRemove(t *testing.T) {
	sessions := session.NewRegistry()
	mgr := New(sessions, bus.New(), nil, nil)

	mgr.Add("dev-1", &fakeTransport{})
	require.True(t, mgr.Has("dev-1"))

	mgr.Disconnect("dev-1")
	require.False(t, mgr.Has("dev-1"))

	_, ok := sessions.Get("dev-1")
	require.False(t, ok, "a session not awaiting reconnect is deleted outright")
}

func TestDisconnect_PreservesSessionAwaitingReconnect(t *testing.T) {
	sessions := session.NewRegistry()
	mgr := New(sessions, bus.New(), nil, nil)

	mgr.Add("dev-1", &fakeTransport{})
	sess, ok := sessions.Get("dev-1")
	require.True(t, ok)
	sess.RequireReconnect("settings changed")

	mgr.Disconnect("dev-1")
	require.False(t, mgr.Has("dev-1"), "the worker itself is still torn down")

	sess, ok = sessions.Get("dev-1")
	require.True(t, ok, "a NeedsReconnect session survives Disconnect")
	require.Equal(t, session.WaitingForReconnect, sess.Interaction)
}

func TestAdd_ResumesSessionWaitingForReconnectAndRefreshesFeatures(t *testing.T) {
	sessions := session.NewRegistry()
	b := bus.New()
	mgr := New(sessions, b, nil, nil)

	mgr.Add("dev-1", &fakeTransport{})
	sess, _ := sessions.Get("dev-1")
	sess.PinCached = true
	sess.PassphraseCached = true
	sess.RequireReconnect("settings changed")
	mgr.Disconnect("dev-1")

	events, unsub := b.Subscribe(8)
	defer unsub()

	transport := &fakeTransport{}
	transport.queueReply(wire.Features{Label: "dev-1-reconnected", Initialized: true})
	mgr.Add("dev-1", transport)
	defer mgr.Shutdown()

	require.Eventually(t, func() bool {
		resumed, ok := sessions.Get("dev-1")
		return ok && resumed.Interaction == session.Idle
	}, 2*time.Second, 10*time.Millisecond)

	resumed, ok := sessions.Get("dev-1")
	require.True(t, ok)
	require.Same(t, sess, resumed, "the same session is reused across the reconnect, not replaced")
	require.False(t, resumed.PinCached)
	require.False(t, resumed.PassphraseCached)
	require.Equal(t, "dev-1-reconnected", resumed.LastFeatures.Label)

	var sawFeaturesUpdated bool
	for {
		select {
		case evt := <-events:
			if evt.Kind == bus.EventFeaturesUpdated {
				sawFeaturesUpdated = true
			}
		default:
			require.True(t, sawFeaturesUpdated, "expected a features_updated event")
			return
		}
	}
}
