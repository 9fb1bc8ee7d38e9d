// Package metrics records per-operation measurements (capture latency, caption
// latency, enrichment outcome) as single structured log events, so a run can
// be analysed from its logs alone.
//
// A Recorder accumulates dimensions, metric values and free-form properties,
// then writes them as one zerolog event on Flush.
package metrics

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Unit  string
	Value float64
}

// Recorder accumulates dimensions, metrics, and properties for a single flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per operation.
type Recorder struct {
	namespace  string
	logger     *zerolog.Logger
	dimensions map[string]string
	metrics    map[string]metricDef
	properties map[string]interface{}
}

// New creates a new Recorder for the given namespace. Events go to the global
// logger unless WithLogger is used.
func New(namespace string) *Recorder {
	return &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		properties: make(map[string]interface{}),
	}
}

// WithLogger directs the flushed event to l.
func (r *Recorder) WithLogger(l zerolog.Logger) *Recorder {
	r.logger = &l
	return r
}

// Dimension adds a dimension key-value pair, e.g. the filter or caption outcome.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a unit.
// Use the Unit* constants (UnitMilliseconds, UnitCount, UnitBytes, UnitNone).
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Unit: unit, Value: value}
	return r
}

// Count is a convenience for recording a count metric (value = 1).
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a non-metric field to the event.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the accumulated record as one Info event. Nothing is written
// when no metric was recorded. After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	l := log.Logger
	if r.logger != nil {
		l = *r.logger
	}

	evt := l.Info().Str("namespace", r.namespace)

	if len(r.dimensions) > 0 {
		d := zerolog.Dict()
		for _, k := range sortedKeys(r.dimensions) {
			d = d.Str(k, r.dimensions[k])
		}
		evt = evt.Dict("dimensions", d)
	}

	values := zerolog.Dict()
	units := zerolog.Dict()
	for _, k := range sortedKeys(r.metrics) {
		values = values.Float64(k, r.metrics[k].Value)
		units = units.Str(k, r.metrics[k].Unit)
	}
	evt = evt.Dict("metrics", values).Dict("units", units)

	for _, k := range sortedKeys(r.properties) {
		evt = evt.Interface(k, r.properties[k])
	}

	evt.Msg("metrics")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
