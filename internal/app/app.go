// Package app assembles the portal's runtime graph from configuration. The
// binaries under cmd/ share it so the gateway, importer and export tools
// talk to the backend the same way.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cis-portal/internal/auth"
	"cis-portal/internal/config"
	"cis-portal/internal/db"
	"cis-portal/internal/domain"
	"cis-portal/internal/download"
	"cis-portal/internal/httpclient"
	"cis-portal/internal/httpserver"
	"cis-portal/internal/migrate"
	"cis-portal/internal/notify"
	"cis-portal/internal/querycache"
	customerrepo "cis-portal/internal/repository/customer"
	officerrepo "cis-portal/internal/repository/officer"
	productrepo "cis-portal/internal/repository/product"
	"cis-portal/internal/repository/session"
	customersvc "cis-portal/internal/service/customer"
	officersvc "cis-portal/internal/service/officer"
	productsvc "cis-portal/internal/service/product"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App is the wired process. Close releases pools and stops background work.
type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	Registry      *prometheus.Registry
	Store         auth.Store
	Cache         *querycache.Cache
	Notifications *notify.Center
	Saver         download.Saver
	Products      productrepo.Repository

	CustomerService *customersvc.Service
	OfficerService  *officersvc.Service
	ProductService  *productsvc.Service

	pool   *pgxpool.Pool
	redis  *redis.Client
	cancel context.CancelFunc
	done   chan struct{}
}

// Build wires every component described by cfg.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{
		Config:        cfg,
		Logger:        log,
		Registry:      prometheus.NewRegistry(),
		Notifications: notify.NewCenter(100, log.Named("notify")),
		done:          make(chan struct{}),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	store, err := a.credentialStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	client, err := httpclient.New(cfg.API.BaseURL,
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithTokenSource(store),
		httpclient.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		httpclient.WithMetrics(httpclient.NewMetrics(a.Registry)),
		httpclient.WithLogger(log.Named("backend")),
		httpclient.WithUserAgent(cfg.API.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	cacheOpts := []querycache.Option{
		querycache.WithStaleTime(cfg.Cache.StaleTime),
		querycache.WithLogger(log.Named("cache")),
		querycache.WithContext(bgCtx),
		querycache.WithRetryBackoff(cfg.Redis.RetryBase, cfg.Redis.RetryMax),
	}
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		cacheOpts = append(cacheOpts, querycache.WithBus(querycache.NewRedisBus(a.redis, cfg.Redis.Channel, log.Named("bus"))))
	}
	a.Cache = querycache.New(cacheOpts...)
	go func() {
		defer close(a.done)
		if err := a.Cache.Listen(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("cache invalidation listener stopped", zap.Error(err))
		}
	}()

	saver, err := a.saver(ctx)
	if err != nil {
		return nil, err
	}
	a.Saver = saver

	customers := customerrepo.NewHTTP(client)
	officers := officerrepo.NewHTTP(client)
	a.Products = productrepo.NewHTTP(client)

	a.CustomerService = customersvc.New(customers, a.Cache, saver, a.Notifications, log.Named("customers"))
	a.OfficerService = officersvc.New(officers, store, a.Cache, a.Notifications, log.Named("officers"))
	a.ProductService = productsvc.New(a.Products, a.Cache, a.Notifications, log.Named("products"))

	ok = true
	return a, nil
}

// ServerDeps exposes the services to the gateway.
func (a *App) ServerDeps() httpserver.Deps {
	return httpserver.Deps{
		Customers:     a.CustomerService,
		Officers:      a.OfficerService,
		Products:      a.ProductService,
		Notifications: a.Notifications,
		Ready:         a.Ready,
		Gatherer:      a.Registry,
		CORSOrigins:   a.Config.HTTP.CORSAllowOrigins,
		Currency:      a.Config.App.Currency,
	}
}

// Ready pings the optional database and Redis connections and reports a
// cache invalidation bus that is not subscribed.
func (a *App) Ready(ctx context.Context) error {
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return errors.New("db not reachable")
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return errors.New("redis not reachable")
		}
		if err := a.Cache.BusErr(); err != nil {
			return fmt.Errorf("cache invalidation bus: %w", err)
		}
	}
	return nil
}

// Close stops background work and releases connections. It is safe to call
// on a partially built App.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	if a.Cache != nil {
		a.Cache.Wait()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *App) credentialStore(ctx context.Context) (auth.Store, error) {
	cfg := a.Config.Auth
	switch cfg.Store {
	case config.StoreFile:
		return auth.NewFileStore(cfg.FilePath), nil
	case config.StorePostgres:
		pool, err := db.Connect(ctx, a.Config.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		a.pool = pool
		if err := migrate.Apply(ctx, pool); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return auth.NewRepositoryStore(session.NewPostgres(pool, a.Logger.Named("sessions")), cfg.Key), nil
	default:
		return auth.NewMemoryStore(), nil
	}
}

func (a *App) saver(ctx context.Context) (download.Saver, error) {
	local := download.NewLocalSaver(a.Config.Download.Dir, a.Logger.Named("download"))
	if !a.Config.S3.Enabled {
		return local, nil
	}
	archive, err := download.NewS3Saver(ctx, a.Config.S3, a.Logger.Named("s3"))
	if err != nil {
		return nil, fmt.Errorf("init s3 archive: %w", err)
	}
	return download.Mirror{Primary: local, Secondary: archive, Logger: a.Logger}, nil
}

// SignIn logs in when a username is given, otherwise it requires the
// credential store to already hold a live token (e.g. from the gateway).
func (a *App) SignIn(ctx context.Context, username, password string) error {
	if username != "" {
		_, err := a.OfficerService.Login(ctx, domain.Credentials{Username: username, Password: password})
		return err
	}
	authed, err := a.OfficerService.Authenticated(ctx)
	if err != nil {
		return err
	}
	if !authed {
		return domain.ErrUnauthenticated
	}
	return nil
}

// IsServerClosed reports whether err is the normal result of Shutdown.
func IsServerClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed)
}
