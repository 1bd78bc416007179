// Package server wires the HTTP API: transcription triggers, status polling,
// transcript download, user queries, and podcast directory search.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/heaversm/podquest/config"
	"github.com/heaversm/podquest/internal/directory"
	"github.com/heaversm/podquest/internal/pipeline"
	"github.com/heaversm/podquest/internal/query"
	"github.com/heaversm/podquest/internal/session"
	"github.com/heaversm/podquest/internal/store"
	"github.com/heaversm/podquest/provider"
)

func Run(cfgPath, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cfg := config.LoadConfig(cfgPath)

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		log.Printf("migrations: %v", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	// redis transcript cache is optional; the pipeline degrades to postgres
	var cache *store.TranscriptCache
	if cfg.Storage.Redis.Host != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password: cfg.Storage.Redis.Pass,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		cache = store.NewTranscriptCache(rdb, cfg.Storage.Redis.CacheTTL)
	}

	llm, err := provider.NewProvider(provider.OpenAI, cfg.OpenAI)
	if err != nil {
		return err
	}

	registry := session.NewRegistry()
	pipeLogger := log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	pipe := pipeline.New(cfg.Transcription, llm, st, cache, registry, cfg.General.WorkDir, pipeLogger)
	dispatcher := query.NewDispatcher(registry, st, log.New(log.Writer(), "[QUERY] ", log.LstdFlags))
	dir := directory.NewClient(cfg.PodcastIndex)

	api := e.Group("/api")
	ph := &PodcastHandler{
		Pipeline:   pipe,
		Dispatcher: dispatcher,
		Registry:   registry,
		Directory:  dir,
	}
	ph.Register(api)

	if addr == "" {
		addr = cfg.Server.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":3001"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
