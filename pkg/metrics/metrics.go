package metrics

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/itohio/picolog/pkg/engine"
	"github.com/itohio/picolog/pkg/sample"
	"github.com/itohio/picolog/pkg/store"
)

const namespace = "picolog"

// Registry registers the collectors and gathers them for Report.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Metrics counts sampling loop events.
type Metrics struct {
	gatherer prometheus.Gatherer

	samples     prometheus.Counter
	flushes     prometheus.Counter
	flushErrors *prometheus.CounterVec
	written     prometheus.Counter
	wakeups     prometheus.Counter
	fill        prometheus.Gauge
	reading     prometheus.Gauge
	offset      prometheus.Gauge
}

var _ engine.Observer = (*Metrics)(nil)

// New creates the collectors and registers them on reg.
func New(reg Registry) (*Metrics, error) {
	m := &Metrics{
		gatherer: reg,
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples taken.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Batches written to flash.",
		}),
		flushErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_errors_total",
			Help:      "Batches lost because the write failed, by error kind.",
		}, []string{"kind"}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes appended to the log file.",
		}),
		wakeups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wakeups_total",
			Help:      "Alarm wakeups.",
		}),
		fill: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_fill",
			Help:      "Samples waiting for the next write.",
		}),
		reading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reading",
			Help:      "Last raw ADC reading.",
		}),
		offset: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_offset_seconds",
			Help:      "Offset of the last alarm from midnight.",
		}),
	}

	for _, c := range []prometheus.Collector{m.samples, m.flushes, m.flushErrors, m.written, m.wakeups, m.fill, m.reading, m.offset} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) OnSample(r sample.Record, fill, capacity int) {
	m.samples.Inc()
	m.reading.Set(float64(r))
	m.fill.Set(float64(fill))
}

func (m *Metrics) OnFlush(records int, err error) {
	if err != nil {
		m.flushErrors.WithLabelValues(store.KindOf(err).String()).Inc()
		return
	}
	m.flushes.Inc()
	m.written.Add(float64(records * sample.Width))
}

func (m *Metrics) OnWake(offset uint32) {
	m.wakeups.Inc()
	m.offset.Set(float64(offset))
}

// Report writes the current values as a single line of name=value pairs.
// Labelled series are written as name:label=value.
func (m *Metrics) Report(w io.Writer) error {
	families, err := m.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var pairs []string
	for _, mf := range families {
		name, ok := strings.CutPrefix(mf.GetName(), namespace+"_")
		if !ok {
			continue
		}
		for _, metric := range mf.GetMetric() {
			pairs = append(pairs, seriesName(name, metric)+"="+strconv.FormatFloat(value(mf.GetType(), metric), 'f', -1, 64))
		}
	}
	sort.Strings(pairs)

	_, err = fmt.Fprintln(w, strings.Join(pairs, " "))
	return err
}

func seriesName(name string, metric *dto.Metric) string {
	for _, l := range metric.GetLabel() {
		name += ":" + l.GetValue()
	}
	return name
}

func value(t dto.MetricType, metric *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue()
	default:
		return metric.GetUntyped().GetValue()
	}
}
