package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exports sweep and promotional-code telemetry to Prometheus.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	sweepRuns       *prometheus.CounterVec
	sweepRows       *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	codeValidations *prometheus.CounterVec
	codeRedemptions *prometheus.CounterVec
}

// New registers the collectors on reg (prometheus.DefaultRegisterer when nil).
func New(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	if namespace == "" {
		namespace = "talentmarket"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Expiry sweep runs by outcome.",
		}, []string{"outcome"}),
		sweepRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "rows_expired_total",
			Help:      "Rows flipped to inactive by the expiry sweep.",
		}, []string{"collection"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Wall time of one expiry sweep run.",
			Buckets:   prometheus.DefBuckets,
		}),
		codeValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "validations_total",
			Help:      "Promotional code validations by result.",
		}, []string{"result"}),
		codeRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "redemptions_total",
			Help:      "Promotional code redemptions by result.",
		}, []string{"result"}),
	}

	var err error
	if r.sweepRuns, err = register(reg, r.sweepRuns); err != nil {
		return nil, err
	}
	if r.sweepRows, err = register(reg, r.sweepRows); err != nil {
		return nil, err
	}
	if r.sweepDuration, err = register(reg, r.sweepDuration); err != nil {
		return nil, err
	}
	if r.codeValidations, err = register(reg, r.codeValidations); err != nil {
		return nil, err
	}
	if r.codeRedemptions, err = register(reg, r.codeRedemptions); err != nil {
		return nil, err
	}
	return r, nil
}

// register reuses an identical collector that is already registered, so two
// recorders on one registry share series.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("register metric: %w", err)
}

func (r *Recorder) SweepFinished(duration time.Duration, rows map[string]int64, err error) {
	if r == nil {
		return
	}
	r.sweepDuration.Observe(duration.Seconds())
	for collection, n := range rows {
		r.sweepRows.WithLabelValues(collection).Add(float64(n))
	}
	if err != nil {
		r.sweepRuns.WithLabelValues("error").Inc()
		return
	}
	r.sweepRuns.WithLabelValues("ok").Inc()
}

func (r *Recorder) SweepSkipped() {
	if r == nil {
		return
	}
	r.sweepRuns.WithLabelValues("skipped").Inc()
}

// CodeValidated counts a validation by a short result label.
func (r *Recorder) CodeValidated(result string) {
	if r == nil {
		return
	}
	r.codeValidations.WithLabelValues(result).Inc()
}

func (r *Recorder) CodeRedeemed(result string) {
	if r == nil {
		return
	}
	r.codeRedemptions.WithLabelValues(result).Inc()
}
