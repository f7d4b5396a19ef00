// Package metrics counts rounds and reaction times on a private Prometheus
// registry. Nothing is served over the network; the host process logs a
// summary from Gather on shutdown.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reflex"

type Recorder struct {
	reg *prometheus.Registry

	Rounds    prometheus.Counter
	Outcomes  *prometheus.CounterVec
	Reactions prometheus.Histogram
	Best      prometheus.Gauge
	SaveFails prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Rounds begun, including the first after power-up.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_outcomes_total",
			Help:      "Finished rounds by outcome.",
		}, []string{"outcome"}),
		Reactions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reaction_time_milliseconds",
			Help:      "Measured reaction times.",
			Buckets:   []float64{100, 150, 200, 250, 300, 400, 500, 750, 1000, 2000},
		}),
		Best: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_time_milliseconds",
			Help:      "Fastest reaction time on record.",
		}),
		SaveFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_time_save_failures_total",
			Help:      "Failed writes to the best-time store.",
		}),
	}
	r.reg.MustRegister(r.Rounds, r.Outcomes, r.Reactions, r.Best, r.SaveFails)
	return r
}

func (r *Recorder) RoundStarted() {
	r.Rounds.Inc()
}

// Outcome counts a finished round. reaction is only observed for "result".
func (r *Recorder) Outcome(outcome string, reaction uint16) {
	r.Outcomes.WithLabelValues(outcome).Inc()
	if outcome == "result" {
		r.Reactions.Observe(float64(reaction))
	}
}

func (r *Recorder) BestTime(ms uint16) {
	r.Best.Set(float64(ms))
}

func (r *Recorder) SaveFailed() {
	r.SaveFails.Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Summary flattens counters and gauges into name{labels} -> value pairs,
// sorted by name, for logging.
func (r *Recorder) Summary() ([]string, []float64, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	var names []string
	var values []float64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += "{" + lp.GetName() + "=" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				values = append(values, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				values = append(values, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				name += "_count"
				values = append(values, float64(m.GetHistogram().GetSampleCount()))
			default:
				continue
			}
			names = append(names, name)
		}
	}
	return names, values, nil
}
