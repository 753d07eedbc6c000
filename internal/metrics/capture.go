// Package metrics provides Prometheus instrumentation for the capture
// engine. Metrics are registered via promauto at init and exported on the
// daemon's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fieldsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chameleond",
		Subsystem: "video",
		Name:      "fields_captured_total",
		Help:      "Fields dumped and hashed per port",
	}, []string{"port"})

	captureTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chameleond",
		Subsystem: "video",
		Name:      "capture_timeouts_total",
		Help:      "Expired field-count waits per port",
	}, []string{"port"})

	busRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chameleond",
		Subsystem: "fpga",
		Name:      "bus_retries_total",
		Help:      "Register bus transfers that needed a retry",
	})

	linkLocked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chameleond",
		Subsystem: "link",
		Name:      "locked",
		Help:      "Whether the port's receiver is locked (1) or not (0)",
	}, []string{"port"})

	pixelClock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chameleond",
		Subsystem: "link",
		Name:      "pixel_clock_mhz",
		Help:      "Last measured pixel clock per port",
	}, []string{"port"})

	audioOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chameleond",
		Subsystem: "audio",
		Name:      "ring_overflows_total",
		Help:      "Audio ring drains aborted by imminent overflow",
	})

	audioPagesDrained = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chameleond",
		Subsystem: "audio",
		Name:      "pages_drained_total",
		Help:      "Audio ring pages drained to file",
	})
)

// FieldsCaptured adds n captured fields for a port.
func FieldsCaptured(port string, n int) {
	fieldsCaptured.WithLabelValues(port).Add(float64(n))
}

// CaptureTimeout counts an expired field-count wait for a port.
func CaptureTimeout(port string) {
	captureTimeouts.WithLabelValues(port).Inc()
}

// BusRetry counts a register bus retry.
func BusRetry() {
	busRetries.Inc()
}

// SetLinkLocked records a port's lock state.
func SetLinkLocked(port string, locked bool) {
	v := 0.0
	if locked {
		v = 1.0
	}
	linkLocked.WithLabelValues(port).Set(v)
}

// SetPixelClock records a port's last measured pixel clock in MHz.
func SetPixelClock(port string, mhz float64) {
	pixelClock.WithLabelValues(port).Set(mhz)
}

// AudioOverflow counts an aborted audio drain.
func AudioOverflow() {
	audioOverflows.Inc()
}

// AudioPagesDrained adds n drained pages.
func AudioPagesDrained(n int) {
	audioPagesDrained.Add(float64(n))
}
