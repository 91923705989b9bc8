package api

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/annel0/hexy-web/internal/cache"
	"github.com/annel0/hexy-web/internal/config"
	"github.com/annel0/hexy-web/internal/csvmfr"
	"github.com/annel0/hexy-web/internal/logging"
	"github.com/annel0/hexy-web/internal/middleware"
	"github.com/annel0/hexy-web/internal/render"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет HTTP сервер веб-инструментов
type RestServer struct {
	router       *gin.Engine
	settings     *config.Config
	renderer     *render.Renderer
	stages       *csvmfr.Builder
	cache        cache.CacheRepo
	boardMetrics *middleware.BoardMetrics
	metrics      *ServerMetrics
	healthy      func() bool
	logger       *logging.Logger
}

// Config содержит зависимости REST сервера
type Config struct {
	Settings *config.Config   // конфигурация приложения, nil: значения по умолчанию
	Renderer *render.Renderer // общий рендерер фрагментов
	Cache    cache.CacheRepo  // кеш HTML досок, nil: кеш в памяти
	Healthy  func() bool      // состояние жизненного цикла для /health, nil: всегда здоров
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST сервер
func NewRestServer(cfg Config) *RestServer {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	repo := cfg.Cache
	if repo == nil {
		repo = cache.NewMemoryCache(settings.Cache.MaxEntries)
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	service := settings.Telemetry.ServiceName
	router.Use(otelgin.Middleware(service))
	router.Use(middleware.NewRequestLogger().Handler())

	namespace := metricNamespace(service)
	promMw := middleware.NewPrometheusMiddleware(namespace)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	if settings.Web.Gzip {
		router.Use(middleware.NewGzip(gzip.DefaultCompression, "/metrics").Handler())
	}

	server := &RestServer{
		router:       router,
		settings:     settings,
		renderer:     cfg.Renderer,
		stages:       csvmfr.NewBuilder(cfg.Renderer),
		cache:        repo,
		boardMetrics: middleware.NewBoardMetrics(namespace),
		metrics:      NewServerMetrics(),
		healthy:      cfg.Healthy,
		logger:       logging.GetAPILogger(),
	}

	server.setupRoutes()

	return server
}

// metricNamespace приводит имя сервиса к допустимому имени метрики
func metricNamespace(service string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(service)
}

// setupRoutes настраивает маршруты
func (rs *RestServer) setupRoutes() {
	publicDir := rs.settings.Web.PublicDir

	rs.router.GET("/", rs.servePage(filepath.Join(publicDir, "index.html")))
	rs.router.GET("/favicon.ico", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/public/favicon.ico")
	})
	rs.router.GET("/navbar/:active", rs.handleNavbar)
	rs.router.Static("/public", publicDir)

	csv := rs.router.Group("/csv_mfr")
	{
		csv.GET("/", rs.servePage(filepath.Join(publicDir, "csv_mfr", "csv_mfr.html")))
		csv.GET("/get_pipeline_stage", rs.handlePipelineStage)
		csv.POST("/add_stage", rs.handleAddStage)
	}

	hexyGroup := rs.router.Group("/hexy")
	{
		hexyGroup.GET("/", rs.servePage(filepath.Join(publicDir, "hexy", "hexy.html")))
		hexyGroup.GET("/get_board", rs.handleGetBoard)
	}

	// JSON API
	api := rs.router.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
	{
		// preflight обрабатывается middleware выше
		api.OPTIONS("/*path", func(c *gin.Context) {})
		api.GET("/hexy/board", rs.handleAPIBoard)
		api.GET("/hexy/count", rs.handleAPICount)
		api.GET("/hexy/hex", rs.handleAPIHex)
		api.GET("/stats", rs.handleStats)
	}

	rs.router.GET("/health", rs.handleHealth)
}

// Router возвращает http.Handler сервера
func (rs *RestServer) Router() http.Handler {
	return rs.router
}

// servePage отдаёт статическую страницу; отсутствующий файл: 404
func (rs *RestServer) servePage(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.File(path)
	}
}

// handleNavbar отдаёт панель навигации с выделенным пунктом
func (rs *RestServer) handleNavbar(c *gin.Context) {
	html, err := rs.renderer.RenderNavbar(c.Param("active"))
	if err != nil {
		rs.logger.Error("Navbar render failed: %v", err)
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

// handleStats возвращает метрики процесса и кеша досок
func (rs *RestServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"server":      rs.metrics.Snapshot(),
			"board_cache": rs.cache.GetMetrics(),
			"max_size":    rs.settings.Hexy.MaxSize,
		},
	})
}

// handleHealth проверка состояния сервера. После начала остановки отвечает 503.
func (rs *RestServer) handleHealth(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if rs.healthy != nil && !rs.healthy() {
		status, code = "stopping", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().Unix(),
		"cache":  rs.cache.Backend(),
	})
}

const htmlContentType = "text/html; charset=utf-8"
