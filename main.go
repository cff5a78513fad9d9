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
	"github.com/gogotex/siteauth/handlers"
	"github.com/gogotex/siteauth/internal/config"
	"github.com/gogotex/siteauth/internal/database"
	"github.com/gogotex/siteauth/internal/oidc"
	"github.com/gogotex/siteauth/internal/sessions"
	"github.com/gogotex/siteauth/internal/site"
	"github.com/gogotex/siteauth/internal/storage"
	"github.com/gogotex/siteauth/internal/users"
	"github.com/gogotex/siteauth/pkg/logger"
	"github.com/gogotex/siteauth/pkg/metrics"
	"github.com/gogotex/siteauth/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoConnectAttempts = 5

// pingFunc adapts client-specific ping calls to sessions.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: env=%s store=%s redis=%v mongo=%v minio=%v",
		cfg.Server.Environment, cfg.Session.Store, cfg.Redis.Host != "", cfg.MongoDB.URI != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := handlers.NewHealth(2 * time.Second)

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			logger.Infof("connected to redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
		health.Check("redis", pingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }))
	}

	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts)
		if err != nil && cfg.Session.Store == "mongo" {
			logger.Fatalf("mongo session store unavailable: %v", err)
		}
		if err != nil {
			logger.Warnf("login directory disabled: %v", err)
		} else {
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
			health.Check("mongo", pingFunc(func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) }))
		}
	}

	repo, err := sessionRepository(ctx, cfg, rdb, mongoClient)
	if err != nil {
		logger.Fatalf("session store: %v", err)
	}
	sessionsSvc := sessions.NewService(repo, cfg.Session.Secret, cfg.Session.MaxAge)

	var usersSvc *users.Service
	if mongoClient != nil {
		urepo := users.NewMongoUserRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("users"))
		if err := urepo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("users index: %v", err)
		}
		usersSvc = users.NewService(urepo)
	}

	provider := oidc.NewGoogleProvider(ctx, oidc.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		HTTPTimeout:  cfg.OAuth.HTTPTimeout,
	})
	logger.Infof("oauth redirect uri: %s", cfg.OAuth.RedirectURL)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	authGroup := r.Group("/", authMiddleware(cfg, sessionsSvc, rdb)...)
	handlers.NewAuthHandler(cfg, provider, usersSvc).Register(authGroup)

	health.Register(r)
	handlers.RegisterSwagger(r)
	handlers.RegisterSiteConfig(r, cfg.Site)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	fallback, err := siteHandler(ctx, cfg, health)
	if err != nil {
		logger.Fatalf("site: %v", err)
	}
	r.NoRoute(fallback)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

// authMiddleware is the chain in front of /auth/*. Sessions runs first so
// the limiter can key signed-in users by subject.
func authMiddleware(cfg *config.Config, svc *sessions.Service, rdb *redis.Client) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{middleware.Sessions(svc, middleware.SessionOptions{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.IsProduction(),
	})}
	if !cfg.RateLimit.Enabled {
		return chain
	}
	if cfg.RateLimit.UseRedis && rdb != nil {
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		return append(chain, middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
	}
	return append(chain, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
}

// sessionRepository picks the store named by SESSION_STORE.
func sessionRepository(ctx context.Context, cfg *config.Config, rdb *redis.Client, mc *mongo.Client) (sessions.Repository, error) {
	switch cfg.Session.Store {
	case "redis":
		logger.Infof("sessions: redis")
		return sessions.NewRedisRepository(rdb, cfg.Session.KeyPrefix), nil
	case "mongo":
		mrepo := sessions.NewMongoRepository(mc.Database(cfg.MongoDB.Database).Collection("sessions"))
		if err := mrepo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		logger.Infof("sessions: mongo")
		return mrepo, nil
	default:
		mem := sessions.NewMemoryRepository()
		mem.StartJanitor(ctx, time.Minute)
		logger.Infof("sessions: memory (not shared between replicas)")
		return mem, nil
	}
}

// siteHandler serves the built site in production and proxies to the
// front-end dev server otherwise.
func siteHandler(ctx context.Context, cfg *config.Config, health *handlers.Health) (gin.HandlerFunc, error) {
	if !cfg.IsProduction() {
		logger.Infof("site: proxying to dev server %s", cfg.Site.DevServerURL)
		return site.DevProxy(cfg.Site.DevServerURL)
	}
	if cfg.MinIO.Endpoint != "" {
		src, err := storage.NewBucketSource(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		health.Check("minio", src)
		logger.Infof("site: serving bucket %s/%s", cfg.MinIO.Bucket, cfg.MinIO.Prefix)
		return site.Static(src), nil
	}
	logger.Infof("site: serving %s", cfg.Site.StaticDir)
	return site.Static(site.DirSource{Root: cfg.Site.StaticDir}), nil
}
