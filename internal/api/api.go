package api

import (
	"context"

	"github.com/joonhk-lab/kosis-agent/internal/api/controller"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/metrics"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store"
	"github.com/joonhk-lab/kosis-agent/internal/service/extract"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIService struct {
	router         *echo.Echo
	extractService *extract.Service
}

func (svc *APIService) Serve(addr string) error {
	return svc.router.Start(addr)
}

func (svc *APIService) Shutdown(ctx context.Context) error {
	return svc.router.Shutdown(ctx)
}

func NewAPIService(extractService *extract.Service, st store.Store, m *metrics.Metrics) (*APIService, error) {
	svc := &APIService{router: echo.New(), extractService: extractService}

	svc.router.HideBanner = true
	svc.router.Validator = NewValidator()
	svc.router.Binder = NewBinder()
	svc.router.Use(middleware.Logger())
	svc.router.HTTPErrorHandler = httpErrorHandler
	svc.router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{echo.GET, echo.POST},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	svc.router.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(200, map[string]string{"status": "ok"})
	})
	if m != nil {
		svc.router.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	api := svc.router.Group("/api/v1")
	cntrl := controller.NewController(extractService, st)

	extractGroup := api.Group("/extract")
	extractGroup.POST("/run", cntrl.RunExtraction, svc.AdminMiddleware)

	runs := api.Group("/runs")
	runs.GET("/list", cntrl.ListRuns)

	records := api.Group("/records")
	records.GET("/list", cntrl.ListRecords)

	return svc, nil
}
