package keepkey

import (
	"sync"
	"time"

	"github.com/keepkey/device-gateway/internal/gwerrors"
	"github.com/keepkey/device-gateway/internal/interfaces"
	"github.com/keepkey/device-gateway/internal/wire"
)

// MockTransport is a scripted stand-in for interfaces.Transport, for tests
// that exercise a DeviceWorker or Gateway without real USB hardware. Queue
// responses with QueueReply before submitting a request; WriteReport calls
// are recorded for assertion.
type MockTransport struct {
	mu      sync.Mutex
	reports [][]byte // pending inbound reports, consumed FIFO by ReadReport
	writes  [][]byte // every report handed to WriteReport, in order
	closed  bool
}

// NewMockTransport returns an empty MockTransport with nothing queued.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// QueueReply frames msg the way a real device would (via
// wire.EncodeDeviceReply) and appends its reports to the read queue, so the
// next ReadReport calls serve it one report at a time.
func (m *MockTransport) QueueReply(msg wire.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, wire.EncodeDeviceReply(msg)...)
}

// WriteReport records the report for later inspection via Writes.
func (m *MockTransport) WriteReport(report []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return gwerrors.New("mock_write", gwerrors.ErrCodeDisconnected, "mock transport closed")
	}
	cp := append([]byte(nil), report...)
	m.writes = append(m.writes, cp)
	return nil
}

// ReadReport serves the next queued report, or times out if none remain —
// a worker's read loop sees this identically to a real device going quiet.
func (m *MockTransport) ReadReport(timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, gwerrors.New("mock_read", gwerrors.ErrCodeDisconnected, "mock transport closed")
	}
	if len(m.reports) == 0 {
		return nil, gwerrors.New("mock_read", gwerrors.ErrCodeTimeout, "no reports queued")
	}
	report := m.reports[0]
	m.reports = m.reports[1:]
	return report, nil
}

// Close marks the transport closed; subsequent WriteReport/ReadReport calls
// fail as if the device had disconnected.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Writes returns a copy of every report handed to WriteReport so far.
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// PendingReplies reports how many queued reports remain unread.
func (m *MockTransport) PendingReplies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// Reset clears every queued reply and recorded write, for reuse across
// subtests.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = nil
	m.writes = nil
	m.closed = false
}

var _ interfaces.Transport = (*MockTransport)(nil)
