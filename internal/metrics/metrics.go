// Package metrics exports shape query statistics to Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/soypat/csg"
)

const (
	shapeLabel   = "shape"
	errTypeLabel = "error_type"
	domainLabel  = "domain"
)

// Collector counts intercept searches and point classifications. It
// implements csg.Observer.
type Collector struct {
	searches    *prometheus.CounterVec
	searchError *prometheus.CounterVec
	steps       *prometheus.HistogramVec
	locates     *prometheus.CounterVec
}

var _ csg.Observer = (*Collector)(nil)

// NewCollector registers the collector metrics in reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "csg_intercept_searches",
			Help: "The number of composite operand intercept searches.",
		}, []string{shapeLabel}),
		searchError: f.NewCounterVec(prometheus.CounterOpts{
			Name: "csg_intercept_search_errors",
			Help: "The intercept searches that ended in error.",
		}, []string{shapeLabel, errTypeLabel}),
		steps: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "csg_intercept_rejected_candidates",
			Help:    "The number of rejected candidates per intercept search.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 64, 256, 1024},
		}, []string{shapeLabel}),
		locates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "csg_locate_total",
			Help: "Located points by resulting domain.",
		}, []string{domainLabel}),
	}
}

func (c *Collector) ObserveIntercept(shape string, steps int, err error) {
	c.searches.With(prometheus.Labels{shapeLabel: shape}).Inc()
	c.steps.With(prometheus.Labels{shapeLabel: shape}).Observe(float64(steps))
	if err != nil {
		c.searchError.With(prometheus.Labels{
			shapeLabel:   shape,
			errTypeLabel: errorType(err),
		}).Inc()
	}
}

// ObserveLocate counts a located point by domain.
func (c *Collector) ObserveLocate(d csg.Domain) {
	c.locates.With(prometheus.Labels{domainLabel: d.String()}).Inc()
}

func errorType(err error) string {
	var ie *csg.InterceptError
	if errors.As(err, &ie) {
		return "step_cap"
	}
	return "other"
}
