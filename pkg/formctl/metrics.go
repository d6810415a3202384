package formctl

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "formctl"

type metrics struct {
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rejections  *prometheus.CounterVec
}

// newMetrics registers the collectors on registerer, reusing collectors a
// previous controller already registered there. A nil registerer disables
// metrics.
func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	if registerer == nil {
		return nil, nil
	}

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "submissions_total",
		Help:      "Form submissions by outcome.",
	}, []string{"form", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "submission_duration_seconds",
		Help:      "Round trip time of form submissions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"form"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "upload_rejections_total",
		Help:      "Files rejected before attachment, by reason.",
	}, []string{"form", "reason"})

	m := &metrics{}
	var err error
	if m.submissions, err = register(registerer, submissions); err != nil {
		return nil, err
	}
	if m.duration, err = register(registerer, duration); err != nil {
		return nil, err
	}
	if m.rejections, err = register(registerer, rejections); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, error) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return collector, nil
}

func (m *metrics) submission(form, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(form, outcome).Inc()
}

// roundTrip records the time spent waiting on the backend.
func (m *metrics) roundTrip(form string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(form).Observe(elapsed.Seconds())
}

func (m *metrics) rejection(form, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(form, reason).Inc()
}
