package metrics

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service counters. A nil *Collector records nothing.
type Collector struct {
	registry       *prometheus.Registry
	loansCreated   prometheus.Counter
	loansEnded     prometheus.Counter
	loanRejections *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New registers the library counters on a fresh registry together with the
// Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		loansCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "library_loans_created_total",
			Help: "Loans successfully created.",
		}),
		loansEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "library_loans_ended_total",
			Help: "Loans successfully ended.",
		}),
		loanRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "library_loan_rejections_total",
			Help: "Loan operations rejected by a business rule, by reason code.",
		}, []string{"reason"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "library_http_requests_total",
			Help: "HTTP requests by method, route template and status.",
		}, []string{"method", "route", "status"}),
	}
}

// Registry returns the registry the counters are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// LoanCreated counts a created loan.
func (c *Collector) LoanCreated() {
	if c == nil {
		return
	}
	c.loansCreated.Inc()
}

// LoanEnded counts an ended loan.
func (c *Collector) LoanEnded() {
	if c == nil {
		return
	}
	c.loansEnded.Inc()
}

// LoanRejected counts a rejected loan operation.
func (c *Collector) LoanRejected(reason string) {
	if c == nil {
		return
	}
	c.loanRejections.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}

// Middleware counts every request by its route template.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)
			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !ctx.Response().Committed {
					status = 500
				}
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			c.httpRequests.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
