// Package metrics counts library events with Prometheus collectors.
//
// A Recorder owns its registry so several managers (and tests) can run in
// one process without colliding on the default registerer.
package metrics

import (
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"library-lending/library"
)

// Recorder is a library.EventSink backed by Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	// EventsTotal counts every event by type.
	EventsTotal *prometheus.CounterVec

	// CheckoutsTotal counts checkout attempts by outcome.
	CheckoutsTotal *prometheus.CounterVec

	// CopiesAvailable tracks the shelf count per item key.
	CopiesAvailable *prometheus.GaugeVec

	// AnomaliesTotal counts returns without a matching borrow.
	AnomaliesTotal prometheus.Counter
}

// NewRecorder registers the library collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		EventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_events_total",
				Help: "Total number of library events by type",
			},
			[]string{"type"},
		),
		CheckoutsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_checkouts_total",
				Help: "Total number of checkout attempts by status",
			},
			[]string{"status"},
		),
		CopiesAvailable: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "library_copies_available",
				Help: "Copies currently on the shelf per item",
			},
			[]string{"key"},
		),
		AnomaliesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "library_return_anomalies_total",
				Help: "Total number of returns without an open borrow record",
			},
		),
	}
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Emit implements library.EventSink.
func (r *Recorder) Emit(e library.Event) {
	r.EventsTotal.WithLabelValues(string(e.Type)).Inc()

	switch e.Type {
	case library.EventCheckout:
		r.CheckoutsTotal.WithLabelValues(e.Status).Inc()
	case library.EventReturnAnomaly:
		r.AnomaliesTotal.Inc()
	case library.EventItemAdded, library.EventCopyCheckedOut, library.EventCopyReturned:
		r.CopiesAvailable.WithLabelValues(e.Key).Set(float64(e.Available))
	case library.EventItemRemoved:
		r.CopiesAvailable.DeleteLabelValues(e.Key)
	}
}

// Sample is one gathered series.
type Sample struct {
	Name   string
	Labels string // k=v pairs joined by commas
	Value  float64
}

func (s Sample) String() string {
	if s.Labels == "" {
		return fmt.Sprintf("%s %g", s.Name, s.Value)
	}
	return fmt.Sprintf("%s{%s} %g", s.Name, s.Labels, s.Value)
}

// Snapshot gathers every series, sorted by name and labels.
func (r *Recorder) Snapshot() ([]Sample, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			out = append(out, Sample{
				Name:   mf.GetName(),
				Labels: joinLabels(m.GetLabel()),
				Value:  value(mf.GetType(), m),
			})
		}
	}
	slices.SortFunc(out, func(a, b Sample) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Labels, b.Labels)
	})
	return out, nil
}

func joinLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, len(pairs))
	for i, lp := range pairs {
		parts[i] = lp.GetName() + "=" + lp.GetValue()
	}
	return strings.Join(parts, ",")
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}
