package httpsvc

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/api"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// Пути, под которыми монтируются два варианта API.
const (
	BlockingPath = "/orders"
	ReactivePath = "/reactive/orders"
)

// RouterConfig: зависимости HTTP-роутера.
type RouterConfig struct {
	Blocking orders.Operations
	Reactive orders.Operations
	Metrics  *metrics.OrderMetrics
	Logger   *log.Entry
}

// NewRouter собирает chi-роутер с обоими вариантами API.
// Reactive может быть nil, тогда /reactive/orders не монтируется.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Mount(BlockingPath, NewHandler(cfg.Blocking, BlockingPath, logger.WithField("api", "blocking")).Routes())
	if cfg.Reactive != nil {
		r.Mount(ReactivePath, NewHandler(cfg.Reactive, ReactivePath, logger.WithField("api", "reactive")).Routes())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, api.NotFound("Resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, api.Response{
			Code:    http.StatusMethodNotAllowed,
			Status:  "METHOD_NOT_ALLOWED",
			Message: "Method not allowed",
		})
	})
	return r
}

// accessLog пишет строку лога на каждый запрос и обновляет HTTP-метрики.
// Маршрут берётся из шаблона chi, чтобы не раздувать кардинальность меток.
func accessLog(logger *log.Entry, m *metrics.OrderMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				duration := time.Since(start)
				route := ""
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					route = rctx.RoutePattern()
				}
				m.RecordHTTPRequest(r.Method, route, status, duration)

				entry := logger.WithFields(log.Fields{
					"request_id":  middleware.GetReqID(r.Context()),
					"method":      r.Method,
					"path":        r.URL.Path,
					"route":       route,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": duration.Milliseconds(),
				})
				if status >= http.StatusInternalServerError {
					entry.Warn("http request")
					return
				}
				entry.Debug("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
