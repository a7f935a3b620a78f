// Package web is the HTTP facade over the ingestion pipeline: library entry
// submission and listing, entry deletion, and YouTube URL checks. All heavy
// lifting happens in background workers; handlers only stage payloads and
// enqueue work.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"podforge.systems/podforge/internal/config"
	"podforge.systems/podforge/internal/db"
	"podforge.systems/podforge/internal/fetch"
	"podforge.systems/podforge/internal/ingest"
	"podforge.systems/podforge/internal/mediastore"
	"podforge.systems/podforge/internal/youtube"
	"podforge.systems/podforge/pkg/ytdlp"
)

type Webserver struct {
	*echo.Echo
	dbc    *db.DatabaseConnection
	files  *mediastore.Store
	ingest *ingest.Service
	oembed *youtube.InfoClient
}

func NewWebserver(ctx context.Context, dbc *db.DatabaseConnection, files *mediastore.Store, conf *config.Config) (*Webserver, error) {
	e := echo.New()

	client := ytdlp.New()
	client.Path = conf.YtdlpPath

	svc := ingest.NewService(
		dbc.Queries(ctx),
		files,
		fetch.NewDownloader(time.Duration(conf.DownloadTimeoutSeconds)*time.Second),
		client,
		ingest.Options{CleanupDelay: time.Duration(conf.CleanupDelayMinutes) * time.Minute},
	)

	webserver := &Webserver{
		Echo:   e,
		dbc:    dbc,
		files:  files,
		ingest: svc,
		oembed: youtube.NewInfoClient(),
	}

	webserver.registerRoutes()
	webserver.setupMiddleware()
	return webserver, nil
}

func (s *Webserver) registerRoutes() {
	s.GET("/healthz", s.health)

	api := s.Group("/api")
	api.POST("/library", s.createLibraryEntry)
	api.GET("/library", s.listLibraryEntries)
	api.GET("/library/:id", s.showLibraryEntry)
	api.GET("/library/:id/media", s.serveLibraryEntryMedia)
	api.DELETE("/library/:id", s.deleteLibraryEntry)
	api.GET("/youtube/check", s.checkYouTubeURL)
}

func (s *Webserver) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Validator = &requestValidator{validate: validator.New()}

	s.Use(middleware.BodyLimit("200M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
}

func (s *Webserver) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
