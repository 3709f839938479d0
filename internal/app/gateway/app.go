package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gonmore/fprax-gateway/internal/backend"
	"github.com/Gonmore/fprax-gateway/internal/config"
	"github.com/Gonmore/fprax-gateway/internal/infra/httpclient"
	redrepo "github.com/Gonmore/fprax-gateway/internal/repo/redis"
	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	cvssvc "github.com/Gonmore/fprax-gateway/internal/services/cvs"
	offerssvc "github.com/Gonmore/fprax-gateway/internal/services/offers"
	onboardingsvc "github.com/Gonmore/fprax-gateway/internal/services/onboarding"
	ratesvc "github.com/Gonmore/fprax-gateway/internal/services/rate"
	watchersvc "github.com/Gonmore/fprax-gateway/internal/services/watcher"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	redis      *goredis.Client
	watcher    *watchersvc.Watcher
	httpRouter http.Handler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	ApplyMiddlewares(r, log, metrics)

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	apiClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.WSURL, httpclient.New(cfg.Backend.Timeout))

	authService := authsvc.NewService(sessionRepo, apiClient, cfg.Session.TTL)
	offersService := offerssvc.NewService(apiClient, log)
	onboardingService := onboardingsvc.NewService(apiClient, log)
	cvService := cvssvc.NewService(apiClient, log)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.LoginPerMinute, cfg.Limits.LoginPer10Seconds)

	// Every cache follows the session token: populated after login,
	// dropped at logout.
	authService.OnTokenChange(offersService.OnTokenChange)
	authService.OnTokenChange(onboardingService.OnTokenChange)
	authService.OnTokenChange(cvService.OnTokenChange)

	watcher := watchersvc.New(
		meteredSessions{Service: authService, metrics: metrics},
		cfg.Session.WatchInterval,
		log,
	)

	RegisterRoutes(r, Dependencies{
		AuthService:       authService,
		OffersService:     offersService,
		OnboardingService: onboardingService,
		CVService:         cvService,
		RateLimiter:       rateLimiter,
		Backend:           apiClient,
		Gatherer:          registry,
		Logger:            log,
		Config:            cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		redis:      redisClient,
		watcher:    watcher,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("gateway started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartWatcher runs the expiry watcher until ctx is cancelled.
func (a *App) StartWatcher(ctx context.Context) {
	a.watcher.Start(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// meteredSessions counts watcher-forced expiries on top of the session
// authority.
type meteredSessions struct {
	*authsvc.Service
	metrics *Metrics
}

func (m meteredSessions) ForceExpire(ctx context.Context, sid string) error {
	if err := m.Service.ForceExpire(ctx, sid); err != nil {
		return err
	}
	m.metrics.RecordSessionExpired()
	return nil
}
