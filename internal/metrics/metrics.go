// Package metrics wires kxgossipd's Prometheus collectors, grounded on the
// lineage repo's metrics.go: package-level collectors built with
// prometheus.New*, registered once, exposed at /metrics via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements kxgossip.MetricsRecorder against a caller-supplied
// prometheus.Registerer, so a test or an embedding process can use its own
// registry instead of the global default.
type Metrics struct {
	reg              *prometheus.Registry
	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	envelopesEvicted prometheus.Counter
	peersEvicted     prometheus.Counter
	dataLogAppends   prometheus.Counter
	members          prometheus.Gauge
}

// New constructs and registers every kxgossip collector against reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kxgossip_messages_sent_total",
			Help: "Total gossip messages sent, by wire type.",
		}, []string{"type"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kxgossip_messages_received_total",
			Help: "Total gossip messages received, by wire type.",
		}, []string{"type"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kxgossip_messages_dropped_total",
			Help: "Total inbound messages discarded, by reason.",
		}, []string{"reason"}),
		envelopesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kxgossip_envelopes_evicted_total",
			Help: "Total outbound envelopes evicted after exhausting retries or for buffer-pool pressure.",
		}),
		peersEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kxgossip_peers_evicted_total",
			Help: "Total peers removed from the member set after exhausting acknowledgeable retries.",
		}),
		dataLogAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kxgossip_data_log_appends_total",
			Help: "Total records written into the bounded data log.",
		}),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kxgossip_members",
			Help: "Current known peer count.",
		}),
	}

	reg.MustRegister(
		m.messagesSent,
		m.messagesReceived,
		m.messagesDropped,
		m.envelopesEvicted,
		m.peersEvicted,
		m.dataLogAppends,
		m.members,
	)
	return m
}

func (m *Metrics) ObserveSent(msgType string)     { m.messagesSent.WithLabelValues(msgType).Inc() }
func (m *Metrics) ObserveReceived(msgType string) { m.messagesReceived.WithLabelValues(msgType).Inc() }
func (m *Metrics) ObserveDropped(reason string)   { m.messagesDropped.WithLabelValues(reason).Inc() }
func (m *Metrics) ObserveEnvelopeEvicted()        { m.envelopesEvicted.Inc() }
func (m *Metrics) ObservePeerEvicted()            { m.peersEvicted.Inc() }
func (m *Metrics) ObserveDataLogAppend()          { m.dataLogAppends.Inc() }
func (m *Metrics) SetMemberCount(n int)           { m.members.Set(float64(n)) }

// Handler returns the HTTP handler that serves this instance's registered
// collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
