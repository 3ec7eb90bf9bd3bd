package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iacscan/iacscan/internal/application"
	"github.com/iacscan/iacscan/internal/domain"
)

// Services are the application services behind the HTTP API. Projects and
// Results are nil when the corresponding feature is disabled.
type Services struct {
	Scans    *application.ScanService
	Checks   *application.CheckService
	Projects *application.ProjectService
	Results  *application.ResultService
	Renderer domain.ReportRenderer
}

type Server struct {
	log       logrus.FieldLogger
	cfg       domain.ServerConfig
	uploadDir string
	svc       Services
}

// NewServer builds the HTTP API. Uploaded archives are buffered in uploadDir.
func NewServer(log logrus.FieldLogger, cfg domain.ServerConfig, uploadDir string, svc Services) *Server {
	return &Server{
		log:       log.WithField("component", "http"),
		cfg:       cfg,
		uploadDir: uploadDir,
		svc:       svc,
	}
}

// Handler returns the echo instance with middleware and every route registered.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = false

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			}).Debug("request")
			return nil
		},
	}))
	if s.cfg.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(s.cfg.MaxUploadBytes, 10)))
	}
	if s.cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.cfg.RateLimit))))
	}

	e.GET("/healthz", func(c echo.Context) error {
		type res struct {
			Msg string `json:"msg"`
		}
		return c.JSON(http.StatusOK, res{Msg: "Ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.RegisterHandlers(e)
	return e
}

func (s *Server) RegisterHandlers(e *echo.Echo) {
	e.GET("/checks", s.listChecks)
	e.PUT("/checks/:name/enable", s.enableCheck)
	e.PUT("/checks/:name/disable", s.disableCheck)
	e.PUT("/checks/:name/configure", s.configureCheck)

	e.POST("/scan", s.scan)

	e.GET("/results", s.getResults)
	e.DELETE("/results/:uuid", s.deleteResult)

	e.POST("/projects", s.createProject)
	e.GET("/projects", s.listProjects)
	e.GET("/projects/:id", s.getProject)
	e.DELETE("/projects/:id", s.deleteProject)
	e.POST("/projects/configuration", s.createConfiguration)
	e.POST("/projects/configuration/bind", s.bindConfiguration)
	e.POST("/projects/configuration/parameters", s.setParameters)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		s.log.Info("shutting down http server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.log.Error(err.Error())
		}
	}()
	s.log.Infof("running http server, addr=%s", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
