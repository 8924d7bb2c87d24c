package kxgossip

// MetricsRecorder is the narrow set of observations the engine reports as it
// runs. internal/metrics implements this against prometheus collectors; the
// engine itself only depends on this interface so it stays testable without
// a registry. A nil MetricsRecorder is never passed to callers — Engine
// substitutes a no-op implementation when none is supplied.
type MetricsRecorder interface {
	ObserveSent(msgType string)
	ObserveReceived(msgType string)
	ObserveDropped(reason string)
	ObserveEnvelopeEvicted()
	ObservePeerEvicted()
	ObserveDataLogAppend()
	SetMemberCount(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSent(string)      {}
func (noopMetrics) ObserveReceived(string)  {}
func (noopMetrics) ObserveDropped(string)   {}
func (noopMetrics) ObserveEnvelopeEvicted() {}
func (noopMetrics) ObservePeerEvicted()     {}
func (noopMetrics) ObserveDataLogAppend()   {}
func (noopMetrics) SetMemberCount(int)      {}
