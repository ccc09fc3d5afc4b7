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

	appconfig "github.com/careerlog/careerlog/config"
	"github.com/careerlog/careerlog/internal/checkin"
	"github.com/careerlog/careerlog/internal/matcher"
	"github.com/careerlog/careerlog/internal/review"
	"github.com/careerlog/careerlog/internal/runtime"
	"github.com/careerlog/careerlog/internal/search"
	"github.com/careerlog/careerlog/internal/store"
	"github.com/careerlog/careerlog/provider"
)

// Run wires dependencies and serves the HTTP API until the process exits.
func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(requestMetrics())

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

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		log.Printf("[MIGRATE] %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	if cfg.Providers.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key not configured (providers.openai.api_key)")
	}
	llm, err := provider.NewProvider(provider.OpenAI, provider.Options{
		APIKey:          cfg.Providers.OpenAI.APIKey,
		CompletionModel: cfg.Providers.OpenAI.CompletionModel,
		Temperature:     cfg.Providers.OpenAI.Temperature,
		MaxTokens:       cfg.Providers.OpenAI.MaxTokens,
		Timeout:         cfg.Providers.OpenAI.Timeout,
	})
	if err != nil {
		return err
	}

	idx, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}

	secret := cfg.General.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (general.jwt_secret)")
	}

	api := e.Group("/api")

	auth := &AuthHandler{Store: st, Secret: []byte(secret)}
	auth.Register(api.Group("/auth"))

	me := api.Group("/me")
	me.Use(runtime.EchoAuthMiddleware(auth.Secret))
	me.GET("", func(c echo.Context) error {
		return c.JSON(200, MeResponse{UserID: c.Get("user_id").(string)})
	})

	jh := &JobsHandler{Store: st}
	jh.Register(api.Group("/job"), auth.Secret)

	eh := &EntriesHandler{Store: st, Matcher: matcher.New(llm, nil), Index: idx}
	eh.Register(api.Group("/entries"), auth.Secret)

	ch := &CheckinsHandler{Store: st, Engine: checkin.NewEngine(st)}
	ch.Register(api.Group("/checkins"), auth.Secret)

	rh := &ReviewsHandler{Store: st, Generator: review.NewGenerator(st, llm, nil)}
	rh.Register(api.Group("/reviews"), auth.Secret)

	if cfg.Scheduler.Enabled {
		if cfg.Storage.Redis.Host == "" || cfg.Storage.Redis.Port == "" {
			return fmt.Errorf("redis not configured (storage.redis.host/port)")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password: cfg.Storage.Redis.Pass,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		sched := &Scheduler{
			Store:      st,
			Engine:     checkin.NewEngine(st),
			Reviews:    review.NewGenerator(st, llm, nil),
			Rdb:        rdb,
			ReviewCron: cfg.Scheduler.ReviewCron,
			Stop:       make(chan struct{}),
		}
		sched.Start()
	}

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10002"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
