package keepkey

import (
	"sync/atomic"
	"time"

	"github.com/keepkey/device-gateway/internal/interfaces"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering 1us to 10s with logarithmic spacing — the same ladder the
// teacher's I/O metrics used, reused here for request latency instead of
// block I/O latency.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for the gateway process as a whole
// (shared across every DeviceWorker, not per-device).
type Metrics struct {
	GetFeaturesOps     atomic.Uint64
	GetAddressOps      atomic.Uint64
	SignTransactionOps atomic.Uint64
	GetXpubOps         atomic.Uint64
	ApplySettingsOps   atomic.Uint64
	FirmwareOps        atomic.Uint64
	SendRawOps         atomic.Uint64
	CancelOps          atomic.Uint64

	RequestErrors atomic.Uint64

	PinPrompts        atomic.Uint64
	ButtonPrompts     atomic.Uint64
	PassphrasePrompts atomic.Uint64

	Timeouts       atomic.Uint64
	BusyRejections atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRequest records one completed DeviceRequest of the given kind.
func (m *Metrics) RecordRequest(kind RequestKind, latencyNs uint64, success bool) {
	switch kind {
	case RequestGetFeatures:
		m.GetFeaturesOps.Add(1)
	case RequestGetAddress:
		m.GetAddressOps.Add(1)
	case RequestSignTransaction:
		m.SignTransactionOps.Add(1)
	case RequestGetXpub:
		m.GetXpubOps.Add(1)
	case RequestApplySettings:
		m.ApplySettingsOps.Add(1)
	case RequestFirmwareErase, RequestFirmwareUpload:
		m.FirmwareOps.Add(1)
	case RequestSendRaw:
		m.SendRawOps.Add(1)
	case RequestCancel:
		m.CancelOps.Add(1)
	}
	if !success {
		m.RequestErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordPrompt increments the counter for one interactive-prompt kind.
func (m *Metrics) RecordPrompt(kind string) {
	switch kind {
	case "pin":
		m.PinPrompts.Add(1)
	case "button":
		m.ButtonPrompts.Add(1)
	case "passphrase":
		m.PassphrasePrompts.Add(1)
	}
}

// RecordTimeout increments the report-read timeout counter.
func (m *Metrics) RecordTimeout() {
	m.Timeouts.Add(1)
}

// RecordBusy increments the admission-control busy-rejection counter.
func (m *Metrics) RecordBusy() {
	m.BusyRejections.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics' counters plus derived
// statistics (percentiles, uptime, rates).
type MetricsSnapshot struct {
	GetFeaturesOps     uint64
	GetAddressOps      uint64
	SignTransactionOps uint64
	GetXpubOps         uint64
	ApplySettingsOps   uint64
	FirmwareOps        uint64
	SendRawOps         uint64
	CancelOps          uint64
	RequestErrors      uint64

	PinPrompts        uint64
	ButtonPrompts     uint64
	PassphrasePrompts uint64

	Timeouts       uint64
	BusyRejections uint64

	TotalOps     uint64
	ErrorRate    float64
	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot returns a point-in-time snapshot of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		GetFeaturesOps:     m.GetFeaturesOps.Load(),
		GetAddressOps:      m.GetAddressOps.Load(),
		SignTransactionOps: m.SignTransactionOps.Load(),
		GetXpubOps:         m.GetXpubOps.Load(),
		ApplySettingsOps:   m.ApplySettingsOps.Load(),
		FirmwareOps:        m.FirmwareOps.Load(),
		SendRawOps:         m.SendRawOps.Load(),
		CancelOps:          m.CancelOps.Load(),
		RequestErrors:      m.RequestErrors.Load(),
		PinPrompts:         m.PinPrompts.Load(),
		ButtonPrompts:      m.ButtonPrompts.Load(),
		PassphrasePrompts:  m.PassphrasePrompts.Load(),
		Timeouts:           m.Timeouts.Load(),
		BusyRejections:     m.BusyRejections.Load(),
	}

	snap.TotalOps = snap.GetFeaturesOps + snap.GetAddressOps + snap.SignTransactionOps +
		snap.GetXpubOps + snap.ApplySettingsOps + snap.FirmwareOps + snap.SendRawOps + snap.CancelOps

	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(snap.RequestErrors) / float64(snap.TotalOps) * 100.0
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	snap.UptimeNs = uint64(time.Now().UnixNano() - m.StartTime.Load())

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// via linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}
	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter; used by tests.
func (m *Metrics) Reset() {
	m.GetFeaturesOps.Store(0)
	m.GetAddressOps.Store(0)
	m.SignTransactionOps.Store(0)
	m.GetXpubOps.Store(0)
	m.ApplySettingsOps.Store(0)
	m.FirmwareOps.Store(0)
	m.SendRawOps.Store(0)
	m.CancelOps.Store(0)
	m.RequestErrors.Store(0)
	m.PinPrompts.Store(0)
	m.ButtonPrompts.Store(0)
	m.PassphrasePrompts.Store(0)
	m.Timeouts.Store(0)
	m.BusyRejections.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
}

// MetricsObserver adapts Metrics to interfaces.Observer, the narrow
// contract internal packages depend on.
type MetricsObserver struct {
	metrics     *Metrics
	kindByLabel map[string]RequestKind
}

// NewMetricsObserver creates an Observer recording into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{
		metrics: m,
		kindByLabel: map[string]RequestKind{
			"get_features":     RequestGetFeatures,
			"get_address":      RequestGetAddress,
			"sign_transaction": RequestSignTransaction,
			"get_xpub":         RequestGetXpub,
			"apply_settings":   RequestApplySettings,
			"firmware_erase":   RequestFirmwareErase,
			"firmware_upload":  RequestFirmwareUpload,
			"send_raw":         RequestSendRaw,
			"cancel":           RequestCancel,
		},
	}
}

func (o *MetricsObserver) ObserveRequest(kind string, latencyNs uint64, success bool) {
	rk, ok := o.kindByLabel[kind]
	if !ok {
		return
	}
	o.metrics.RecordRequest(rk, latencyNs, success)
}

func (o *MetricsObserver) ObservePrompt(kind string) {
	o.metrics.RecordPrompt(kind)
}

func (o *MetricsObserver) ObserveTimeout() {
	o.metrics.RecordTimeout()
}

func (o *MetricsObserver) ObserveBusy() {
	o.metrics.RecordBusy()
}

// NoOpObserver discards every observation; used where metrics wiring is
// unwanted (tests, short-lived CLI invocations).
type NoOpObserver struct{}

func (NoOpObserver) ObserveRequest(string, uint64, bool) {}
func (NoOpObserver) ObservePrompt(string)                {}
func (NoOpObserver) ObserveTimeout()                     {}
func (NoOpObserver) ObserveBusy()                        {}

var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = (*NoOpObserver)(nil)
