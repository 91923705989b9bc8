package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMiddleware регистрирует базовые HTTP-метрики для Gin.
// Маршрут /metrics добавляется отдельно с помощью метода RegisterMetricsEndpoint.
// Использование:
//
//	mw := middleware.NewPrometheusMiddleware("hexy_web")
//	r.Use(mw.Handler())
//	mw.RegisterMetricsEndpoint(r)
//
// Метрики:
//   - http_request_duration_seconds{method,path,status}: histogram
//   - http_requests_inflight: gauge
//   - http_request_errors_total{method,path,status}: counter (4xx/5xx)
type PrometheusMiddleware struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
}

// NewPrometheusMiddleware создаёт middleware и регистрирует метрики в дефолтном регистре.
func NewPrometheusMiddleware(service string) *PrometheusMiddleware {
	pm := &PrometheusMiddleware{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Текущее количество обрабатываемых HTTP-запросов.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Общее число запросов, завершившихся ошибкой (4xx/5xx).",
		}, []string{"method", "path", "status"}),
	}

	prometheus.MustRegister(pm.reqDuration, pm.reqInflight, pm.reqErrors)
	return pm
}

// Handler возвращает gin.HandlerFunc, которую нужно добавить через router.Use().
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		pm.reqInflight.Inc()
		c.Next()
		pm.reqInflight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			// все не-матченные маршруты в одну метку
			path = "unmatched"
		}
		method := c.Request.Method

		pm.reqDuration.WithLabelValues(method, path, status).Observe(duration)

		if c.Writer.Status() >= 400 {
			pm.reqErrors.WithLabelValues(method, path, status).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics в указанный router.
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// BoardMetrics: прикладные метрики построения досок.
//
// Метрики:
//   - board_builds_total{source}: counter, source = render|cache
//   - board_build_duration_seconds: histogram (только построение без кеша)
//   - board_rejected_total: counter, отклонённые размеры
//   - board_hexes: gauge, число гексов последней построенной доски
type BoardMetrics struct {
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	rejected      prometheus.Counter
	lastHexes     prometheus.Gauge
}

// NewBoardMetrics регистрирует метрики досок в дефолтном регистре.
func NewBoardMetrics(service string) *BoardMetrics {
	bm := &BoardMetrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "board_builds_total",
			Help:      "Число выданных досок по источнику.",
		}, []string{"source"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "board_build_duration_seconds",
			Help:      "Время построения и отрисовки доски.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: service,
			Name:      "board_rejected_total",
			Help:      "Число запросов доски с недопустимым размером.",
		}),
		lastHexes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "board_hexes",
			Help:      "Число гексов последней построенной доски.",
		}),
	}

	prometheus.MustRegister(bm.builds, bm.buildDuration, bm.rejected, bm.lastHexes)
	return bm
}

// ObserveRender фиксирует построение доски без кеша
func (bm *BoardMetrics) ObserveRender(hexes int, elapsed time.Duration) {
	bm.builds.WithLabelValues("render").Inc()
	bm.buildDuration.Observe(elapsed.Seconds())
	bm.lastHexes.Set(float64(hexes))
}

// ObserveCacheHit фиксирует выдачу доски из кеша
func (bm *BoardMetrics) ObserveCacheHit() {
	bm.builds.WithLabelValues("cache").Inc()
}

// ObserveRejected фиксирует отклонённый размер
func (bm *BoardMetrics) ObserveRejected() {
	bm.rejected.Inc()
}
