// Command server runs the advocacy delivery API: it wires the SQLite store,
// the congressional recipient resolver, admission control (in-process or
// Redis-backed), the CWC submission client, and the async dispatcher behind
// a Gin HTTP server, then serves until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-advocacy-backend/docs"
	"github.com/tbourn/go-advocacy-backend/internal/admission"
	"github.com/tbourn/go-advocacy-backend/internal/config"
	"github.com/tbourn/go-advocacy-backend/internal/congress"
	"github.com/tbourn/go-advocacy-backend/internal/cwc"
	"github.com/tbourn/go-advocacy-backend/internal/dispatch"
	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/geo"
	httpapi "github.com/tbourn/go-advocacy-backend/internal/http"
	"github.com/tbourn/go-advocacy-backend/internal/observability"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
	"github.com/tbourn/go-advocacy-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title           Advocacy Delivery API
// @version         1.0
// @description     Accepts advocacy messages addressed via routing tokens, resolves the sender's congressional offices, and fans deliveries out to House and Senate intake endpoints as asynchronous jobs.
// @BasePath        /api/v1
func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Redis dedup keys expire on their own; rows in the local store do not.
	if n, err := repo.PurgeSubmissionDedup(ctx, db, domain.DedupDay(time.Now())); err != nil {
		log.Warn().Err(err).Msg("purge stale dedup claims")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("stale dedup claims purged")
	}

	if cfg.SeedOffices {
		n, err := congress.SeedDirectoryFile(ctx, db, cfg.OfficesPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.OfficesPath).Msg("seed office directory")
		}
		log.Info().Int("offices", n).Msg("office directory seeded")
	}
	if n, err := repo.CountOffices(ctx, db); err == nil && n == 0 {
		log.Warn().Msg("office directory is empty; deliveries will resolve zero recipients")
	}

	admit := admission.NewLocalController(db, cfg.OfficeRateRPS, cfg.OfficeRateBurst)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		client := redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = client.Ping(pctx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis unreachable, using in-process admission state")
			_ = client.Close()
		} else {
			log.Info().Str("addr", opts.Addr).Msg("admission state in redis")
			admit = admission.NewRedisController(client, cfg.OfficeRateRPS, cfg.OfficeRateBurst)
			defer client.Close()
		}
	}

	var geocoder geo.Geocoder
	if cfg.Geo.BaseURL != "" {
		geocoder = &geo.HTTPGeocoder{
			BaseURL: cfg.Geo.BaseURL,
			APIKey:  cfg.Geo.APIKey,
			Timeout: cfg.Geo.Timeout,
		}
	}
	geoResolver := geo.NewResolver(geo.NewCache(cfg.Geo.CacheTTL), geocoder, cfg.Geo.RateRPS)
	resolver := congress.NewResolver(db, geoResolver)

	submitter := &cwc.Client{
		HouseURL:  cfg.CWC.HouseURL,
		SenateURL: cfg.CWC.SenateURL,
		APIKey:    cfg.CWC.APIKey,
		Timeout:   cfg.CWC.Timeout,
	}
	dispatcher := dispatch.New(dispatch.Config{
		DB:            db,
		Admission:     admit,
		Submitter:     submitter,
		MaxConcurrent: cfg.DispatchMaxConcurrent,
	})

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, resolver, dispatcher, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	// Let in-flight fan-outs finish recording their attempts.
	dispatcher.Wait()
	log.Info().Msg("dispatcher drained, exiting")
}
