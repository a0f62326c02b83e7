package dashboard

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietdata/tourism-pipeline/internal/domain"
	"github.com/vietdata/tourism-pipeline/internal/observability"
)

// Server is the dashboard HTTP server.
type Server struct {
	echo    *echo.Echo
	store   *Store
	logger  *slog.Logger
	metrics *observability.Metrics
	addr    string
}

// NewServer wires the dashboard routes onto an echo instance.
func NewServer(addr string, store *Store, logger *slog.Logger, metrics *observability.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request", "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s := &Server{echo: e, store: store, logger: logger, metrics: metrics, addr: addr}

	e.GET("/", s.handleIndex)
	e.GET("/api/overview", s.handleOverview)
	e.GET("/api/traffic", s.handleTraffic)
	e.GET("/api/provinces/top", s.handleTopProvinces)
	e.GET("/api/seasonal", s.handleSeasonal)
	e.GET("/api/predictions", s.handlePredictions)
	e.GET("/healthz", s.handleHealth)
	e.GET("/readyz", s.handleReady)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard starting", "addr", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP delegates to echo, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) hit(endpoint string) {
	s.metrics.DashboardHits.WithLabelValues(endpoint).Inc()
}

func (s *Server) handleOverview(c echo.Context) error {
	s.hit("overview")
	return c.JSON(http.StatusOK, s.store.GetOverview())
}

func (s *Server) handleTraffic(c echo.Context) error {
	s.hit("traffic")
	return c.JSON(http.StatusOK, s.store.GetTraffic(c.QueryParam("destination")))
}

func (s *Server) handleTopProvinces(c echo.Context) error {
	s.hit("provinces_top")
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, s.store.GetTopProvinces(limit))
}

func (s *Server) handleSeasonal(c echo.Context) error {
	s.hit("seasonal")
	return c.JSON(http.StatusOK, s.store.GetSeasonal(c.QueryParam("province")))
}

func (s *Server) handlePredictions(c echo.Context) error {
	s.hit("predictions")
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, s.store.GetPredictions(limit))
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(c echo.Context) error {
	if err := s.store.CheckReadiness(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="vi">
<head>
<meta charset="utf-8">
<title>Du lịch Việt Nam</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
.summary span { margin-right: 2rem; }
</style>
</head>
<body>
<h1>Du lịch Việt Nam</h1>
<div class="summary">
<span>Điểm đến: <strong>{{.Overview.Destinations}}</strong></span>
<span>Tỉnh thành: <strong>{{.Overview.Provinces}}</strong></span>
<span>Dữ liệu: <strong>{{.Overview.FirstMonth}} → {{.Overview.LastMonth}}</strong></span>
</div>
<h2>Tỉnh thành dẫn đầu</h2>
<table>
<tr><th>Tỉnh</th><th>Vùng</th><th>Điểm quan tâm TB</th><th>Điểm đến</th></tr>
{{range .Top}}<tr><td>{{.Province}}</td><td>{{.Region}}</td><td>{{.MeanTraffic}}</td><td>{{.Destinations}}</td></tr>
{{end}}</table>
<h2>Dự báo tăng trưởng</h2>
<table>
<tr><th>Điểm đến</th><th>Tỉnh</th><th>Hiện tại</th><th>Dự báo</th><th>Thay đổi (%)</th></tr>
{{range .Predictions}}<tr><td>{{.Destination}}</td><td>{{.Province}}</td><td>{{printf "%.1f" .Traffic}}</td><td>{{printf "%.1f" .PredictedTraffic}}</td><td>{{printf "%.1f" .PredictedChange}}</td></tr>
{{end}}</table>
</body>
</html>`))

func (s *Server) handleIndex(c echo.Context) error {
	s.hit("index")

	data := struct {
		Overview    Overview
		Top         []ProvinceRank
		Predictions []domain.Prediction
	}{
		Overview:    s.store.GetOverview(),
		Top:         s.store.GetTopProvinces(10),
		Predictions: s.store.GetPredictions(10),
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return indexTemplate.Execute(c.Response(), data)
}
