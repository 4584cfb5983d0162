package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus registry and the application's collectors.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	plansGenerated   prometheus.Counter
	mealSwaps        *prometheus.CounterVec
	recipesMutated   *prometheus.CounterVec
	chatRequests     *prometheus.CounterVec
	generatorLatency prometheus.Histogram
	generatorTokens  *prometheus.CounterVec
	logins           *prometheus.CounterVec
}

// NewCollector registers every collector on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		plansGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "meal_plans_generated_total",
			Help: "Total number of generated weekly meal plans",
		}),
		mealSwaps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meal_swaps_total",
			Help: "Meal swaps by meal type and outcome",
		}, []string{"meal_type", "outcome"}),
		recipesMutated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recipe_mutations_total",
			Help: "Recipe create, update and delete operations",
		}, []string{"operation"}),
		chatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat requests by response source",
		}, []string{"source"}),
		generatorLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "text_generator_duration_seconds",
			Help:    "Latency of external text generator calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		generatorTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "text_generator_tokens_total",
			Help: "Tokens consumed by the external text generator",
		}, []string{"kind"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Login and signup attempts by outcome",
		}, []string{"action", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and custom collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// GinMiddleware records request counts and latencies by route template.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) PlanGenerated() {
	c.plansGenerated.Inc()
}

func (c *Collector) MealSwapped(mealType, outcome string) {
	c.mealSwaps.WithLabelValues(mealType, outcome).Inc()
}

func (c *Collector) RecipeMutated(operation string) {
	c.recipesMutated.WithLabelValues(operation).Inc()
}

// ChatAnswered counts a chat reply. source is canned, generated or fallback.
func (c *Collector) ChatAnswered(source string) {
	c.chatRequests.WithLabelValues(source).Inc()
}

func (c *Collector) GeneratorCall(latency time.Duration, promptTokens, completionTokens int) {
	c.generatorLatency.Observe(latency.Seconds())
	c.generatorTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	c.generatorTokens.WithLabelValues("completion").Add(float64(completionTokens))
}

func (c *Collector) AuthAttempt(action, outcome string) {
	c.logins.WithLabelValues(action, outcome).Inc()
}
