package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/spektr-org/choropleth/config"
)

// NewEcho builds the API router with its middleware stack.
func NewEcho(controller *ChoroplethController, conf *config.Config, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprintf("%v", he.Message)
			}
		}

		var ue *UserVisibleError
		if errors.As(err, &ue) {
			code = ue.HTTPCode
			msg = ue.Message
		}

		if !c.Response().Committed {
			if jsonErr := c.JSON(code, map[string]string{"error": msg}); jsonErr != nil {
				logger.Error("failed to write error response", "err", jsonErr)
			}
		}
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	var identifierExtractor middleware.Extractor
	if conf.BehindLoadBalancer {
		identifierExtractor = func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		}
	} else {
		identifierExtractor = func(ctx echo.Context) (string, error) {
			return ctx.Request().RemoteAddr, nil
		}
	}

	if conf.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: middleware.DefaultSkipper,
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(conf.RateLimit),
					Burst:     3 * conf.RateLimit,
					ExpiresIn: 3 * time.Minute,
				},
			),
			IdentifierExtractor: identifierExtractor,
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too Many Requests"})
			},
		}))
	}

	if conf.GzipLevel != 0 {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{Level: conf.GzipLevel, MinLength: 512}))
	}

	if conf.TimeoutSeconds != 0 {
		e.Use(middleware.ContextTimeout(conf.Timeout()))
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogLatency:   conf.LogLatency,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				logger.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()),
					slog.String("remote_ip", v.RemoteIP),
					slog.String("request_id", v.RequestID),
				)
			} else {
				logger.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.String("err", v.Error.Error()),
					slog.String("remote_ip", v.RemoteIP),
					slog.Int64("latency_ms", v.Latency.Milliseconds()),
					slog.String("request_id", v.RequestID),
				)
			}
			return nil
		},
	}))

	e.GET("/health", controller.GetHealth)
	api := e.Group("/api")
	api.GET("/datasets", controller.GetDatasets)
	api.GET("/regions", controller.GetRegions)
	api.GET("/datasets/:dataType/filters", controller.GetFilterOptions)
	api.GET("/datasets/:dataType/indicators", controller.GetIndicators)
	api.GET("/datasets/:dataType/indicators/:indicator", controller.GetRegionIndicators)
	api.POST("/datasets/:dataType/selection", controller.PostSelection)

	return e
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, e *echo.Echo, conf *config.Config) error {
	addr := conf.Addr()
	slog.Info("starting server", "instance", conf.InstanceName, "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down server")
	return e.Shutdown(shutdownCtx)
}
