package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rodetes-party/rodetes/internal/config"
	"github.com/rodetes-party/rodetes/internal/database"
	"github.com/rodetes-party/rodetes/internal/handler"
	"github.com/rodetes-party/rodetes/internal/logging"
	"github.com/rodetes-party/rodetes/internal/merch"
	"github.com/rodetes-party/rodetes/internal/middleware"
	"github.com/rodetes-party/rodetes/internal/queue"
	"github.com/rodetes-party/rodetes/internal/repository"
	"github.com/rodetes-party/rodetes/internal/router"
	"github.com/rodetes-party/rodetes/internal/scan"
	"github.com/rodetes-party/rodetes/internal/store"
	"github.com/rodetes-party/rodetes/internal/store/memory"
	"github.com/rodetes-party/rodetes/internal/ticketing"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer st.Close()

	if err := bootstrapAdmin(ctx, st, cfg, log); err != nil {
		log.WithError(err).Fatal("bootstrap admin")
	}

	rdb := openRedis(log)
	if rdb != nil {
		defer rdb.Close()
	}

	var pub queue.Publisher = queue.Nop{}
	if cfg.RabbitEnabled {
		rp := queue.NewRabbitPublisher(cfg.RabbitURL, log)
		defer rp.Close()
		pub = rp
		consumer := &queue.ActivityConsumer{URL: cfg.RabbitURL, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("activity consumer stopped")
			}
		}()
	}

	var sessions scan.SessionStore = scan.NewMemorySessions()
	if rdb != nil {
		sessions = scan.NewRedisSessions(rdb)
	}

	tickets := ticketing.NewService(st, pub, log, cfg.AllowedEmailDomains)
	shop := merch.NewService(st, pub, log, cfg.AllowedEmailDomains)
	scanner := scan.NewScanner(st, sessions, pub, log, cfg.ScanSessionTTL)

	if rep, err := tickets.ResyncAll(ctx); err != nil {
		log.WithError(err).Warn("startup resync failed")
	} else {
		log.WithField("events", rep.Events).WithField("corrected", rep.Corrected).Info("sold counts resynced")
	}

	cacheCfg := config.LoadCacheConfig()
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	auth := handler.NewAuthHandler(cfg, st)
	router.RegisterRoutes(e, st)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(tickets, shop), middleware.NewRedisCache(cacheCfg, rdb, log))
	router.RegisterScanner(e, handler.NewScanHandler(scanner), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(tickets, shop, purger(cacheCfg, rdb)), auth, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.WithField("addr", addr).WithField("env", cfg.Env).WithField("store", cfg.StoreDriver).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (store.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repository.NewStore(db), nil
}

// openRedis returns nil when Redis is unreachable; rate limiting and
// caching are then off and scan sessions live in process memory.
func openRedis(log logrus.FieldLogger) *redis.Client {
	rc := config.LoadRedisConfig()
	rdb, err := config.NewRedisClient(rc)
	if err != nil {
		log.WithError(err).WithField("addr", rc.Addr).Warn("redis unavailable; continuing without it")
		return nil
	}
	return rdb
}

// purger keeps the handler's Purger interface nil when there is no cache.
func purger(cfg config.CacheConfig, rdb *redis.Client) handler.Purger {
	if p := middleware.NewCachePurger(cfg, rdb); p != nil {
		return p
	}
	return nil
}
