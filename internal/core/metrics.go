package core

import "github.com/prometheus/client_golang/prometheus"

type importOutcome string

const (
	outcomeApplied   importOutcome = "applied"
	outcomeSkipped   importOutcome = "skipped"
	outcomeDiscarded importOutcome = "discarded"
	outcomeUnchanged importOutcome = "unchanged"
	outcomeConflict  importOutcome = "conflict"
)

// Metrics holds the Prometheus collectors for glossary operations. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	records *prometheus.CounterVec
	uploads *prometheus.CounterVec
	edits   prometheus.Counter
	creates prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glossary",
			Name:      "import_records_total",
			Help:      "Records seen by import passes, by outcome.",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glossary",
			Name:      "uploads_total",
			Help:      "Completed uploads, by file format and whether the CSV fallback ran.",
		}, []string{"format", "retried"}),
		edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glossary",
			Name:      "edits_total",
			Help:      "Audited single-entry edits.",
		}),
		creates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glossary",
			Name:      "creates_total",
			Help:      "Audited single-entry creations.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.records, m.uploads, m.edits, m.creates)
	}
	return m
}

func (m *Metrics) record(o importOutcome) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) upload(format string, retried bool) {
	if m == nil {
		return
	}
	r := "false"
	if retried {
		r = "true"
	}
	m.uploads.WithLabelValues(format, r).Inc()
}

func (m *Metrics) edit() {
	if m == nil {
		return
	}
	m.edits.Inc()
}

func (m *Metrics) create() {
	if m == nil {
		return
	}
	m.creates.Inc()
}
