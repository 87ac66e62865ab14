package sender

import (
	"sync/atomic"
)

// Metrics contains atomic metrics for a run.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc, and
// are safe to read while Run is in progress.
type Metrics struct {
	// ExchangeCount indicates the number of command/response exchanges.
	ExchangeCount atomic.Uint64
	// AckCount indicates the number of acknowledged responses.
	AckCount atomic.Uint64
	// RejectCount indicates the number of rejected responses.
	RejectCount atomic.Uint64
	// ResendCount indicates the number of commands scheduled for resend.
	ResendCount atomic.Uint64
	// BytesWritten indicates the number of bytes written, handshake included.
	BytesWritten atomic.Uint64

	// CursorGauge mirrors the engine cursor.
	CursorGauge atomic.Int64
}

func (m *Metrics) incExchangeCount() {
	m.ExchangeCount.Add(1)
}

func (m *Metrics) incAckCount() {
	m.AckCount.Add(1)
}

func (m *Metrics) incRejectCount() {
	m.RejectCount.Add(1)
}

func (m *Metrics) incResendCount() {
	m.ResendCount.Add(1)
}

func (m *Metrics) addBytesWritten(n int) {
	m.BytesWritten.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) setCursor(cursor int) {
	m.CursorGauge.Store(int64(cursor))
}
