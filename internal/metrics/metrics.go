// SPDX-License-Identifier: MIT

// Package metrics exposes capture and sealing counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsAppendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hsparc_events_appended_total",
		Help: "Total input events appended to the store by kind",
	}, []string{"kind"})

	eventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hsparc_events_dropped_total",
		Help: "Total input events dropped before persistence by reason",
	}, []string{"reason"})

	readerErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hsparc_reader_errors_total",
		Help: "Total device reader failures",
	})

	activeReaders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hsparc_active_readers",
		Help: "Device readers currently running",
	})

	sealsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hsparc_video_seals_total",
		Help: "Video sealing operations by result",
	}, []string{"result"})
)

// IncEventAppended records one persisted event.
// kind ∈ {axis,button}; anything else is folded into "other" to cap
// cardinality.
func IncEventAppended(kind string) {
	switch kind {
	case "axis", "button":
	default:
		kind = "other"
	}
	eventsAppendedTotal.WithLabelValues(kind).Inc()
}

// IncEventDropped records one event dropped before persistence.
// reason ∈ {filtered,sync}; anything else folds into "other".
func IncEventDropped(reason string) {
	switch reason {
	case "filtered", "sync":
	default:
		reason = "other"
	}
	eventsDroppedTotal.WithLabelValues(reason).Inc()
}

// IncReaderError records one reader failure.
func IncReaderError() { readerErrorsTotal.Inc() }

// ReaderStarted / ReaderStopped track the active-reader gauge.
func ReaderStarted() { activeReaders.Inc() }
func ReaderStopped() { activeReaders.Dec() }

// IncSeal records a sealing attempt. result ∈ {ok,error}.
func IncSeal(result string) {
	if result != "ok" {
		result = "error"
	}
	sealsTotal.WithLabelValues(result).Inc()
}
