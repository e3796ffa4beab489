package wrappers

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gaitrl/environment"
	ts "github.com/samuelfneumann/gaitrl/timestep"
)

const (
	metricsNamespace = "gaitrl"
	metricsSubsystem = "env"
)

// Metrics holds the Prometheus metrics recorded by Instrumented
// environments. Metrics may be shared between environments.
type Metrics struct {
	// StepsTotal counts steps taken, excluding failed steps
	StepsTotal prometheus.Counter

	// ResetsTotal counts successful resets
	ResetsTotal prometheus.Counter

	// EpisodesTotal counts finished episodes by how they ended.
	// Labels: end (TerminalStateReached, Timeout, Failure)
	EpisodesTotal *prometheus.CounterVec

	// ErrorsTotal counts errors returned by the environment.
	// Labels: kind (invalid_action, numeric_instability,
	// initialization, other)
	ErrorsTotal *prometheus.CounterVec

	// EpisodeReturn observes the sum of rewards of each finished episode
	EpisodeReturn prometheus.Histogram

	// EpisodeLength observes the number of steps of each finished
	// episode
	EpisodeLength prometheus.Histogram
}

// NewMetrics creates the environment metrics and registers them with
// reg. If reg is nil, the default Prometheus registerer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		StepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "steps_total",
			Help:      "Total number of environment steps",
		}),
		ResetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "resets_total",
			Help:      "Total number of successful environment resets",
		}),
		EpisodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "episodes_total",
			Help:      "Total number of finished episodes by end type",
		}, []string{"end"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "errors_total",
			Help:      "Total number of environment errors by kind",
		}, []string{"kind"}),
		EpisodeReturn: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "episode_return",
			Help:      "Sum of rewards of finished episodes",
			Buckets:   prometheus.LinearBuckets(-500, 100, 21),
		}),
		EpisodeLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "episode_length",
			Help:      "Number of steps of finished episodes",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}),
	}
}

// errorKind returns the label of err for ErrorsTotal
func errorKind(err error) string {
	switch {
	case errors.Is(err, environment.ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, environment.ErrNumericInstability):
		return "numeric_instability"
	case errors.Is(err, environment.ErrInitialization):
		return "initialization"
	}
	return "other"
}

// Instrumented wraps an environment and records Prometheus metrics of
// the interaction with it.
//
// Instrumented itself implements the environment.Environment
// interface, and is therefore itself an Environment.
type Instrumented struct {
	environment.Environment
	metrics *Metrics

	episodeReturn float64
}

// NewInstrumented returns a new Instrumented environment wrapping env
func NewInstrumented(env environment.Environment,
	metrics *Metrics) *Instrumented {
	return &Instrumented{
		Environment: env,
		metrics:     metrics,
	}
}

// Reset resets the environment to a new episode
func (i *Instrumented) Reset() (ts.TimeStep, error) {
	step, err := i.Environment.Reset()
	if err != nil {
		i.metrics.ErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		return step, err
	}

	i.episodeReturn = 0.0
	i.metrics.ResetsTotal.Inc()
	return step, nil
}

// Step takes one step in the environment
func (i *Instrumented) Step(action *mat.VecDense) (ts.TimeStep, bool,
	error) {
	step, done, err := i.Environment.Step(action)
	if err != nil {
		i.metrics.ErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		if errors.Is(err, environment.ErrNumericInstability) {
			i.endEpisode(step)
		}
		return step, done, err
	}

	i.metrics.StepsTotal.Inc()
	i.episodeReturn += step.Reward
	if done {
		i.endEpisode(step)
	}
	return step, done, nil
}

func (i *Instrumented) endEpisode(last ts.TimeStep) {
	i.metrics.EpisodesTotal.WithLabelValues(last.End().String()).Inc()
	i.metrics.EpisodeReturn.Observe(i.episodeReturn)
	i.metrics.EpisodeLength.Observe(float64(last.Number))
}
