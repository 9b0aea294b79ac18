package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/auth/pgstore"
	"github.com/dmitrymomot/inspectauth/pkg/authapi"
	"github.com/dmitrymomot/inspectauth/pkg/config"
	"github.com/dmitrymomot/inspectauth/pkg/email"
	"github.com/dmitrymomot/inspectauth/pkg/httpserver"
	"github.com/dmitrymomot/inspectauth/pkg/jwt"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
	"github.com/dmitrymomot/inspectauth/pkg/oauth"
	"github.com/dmitrymomot/inspectauth/pkg/password"
	"github.com/dmitrymomot/inspectauth/pkg/pg"
	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
	"github.com/dmitrymomot/inspectauth/pkg/redis"
)

func main() {
	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, "authd"),
		logger.WithLevelName(app.LogLevel),
		logger.WithFormat(logger.Format(app.LogFormat)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app, log); err != nil {
		log.Error("authd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, app appConfig, log *slog.Logger) error {
	var (
		pgCfg    pg.Config
		redisCfg redis.Config
		jwtCfg   jwt.Config
		pwCfg    password.Config
		oauthCfg oauth.Config
		emailCfg email.Config
		limits   limitsConfig
		httpCfg  httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&jwtCfg) },
		func() error { return config.Load(&pwCfg) },
		func() error { return config.Load(&oauthCfg) },
		func() error { return config.Load(&emailCfg) },
		func() error { return config.Load(&limits) },
		func() error { return config.Load(&httpCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	checks := map[string]httpserver.Check{}

	// Users and sessions: Postgres when configured, memory otherwise.
	var (
		repo    auth.Repository
		pgStore *pgstore.Store
	)
	if pgCfg.ConnectionString != "" {
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if pgCfg.AutoMigrate {
			if err := pg.Migrate(ctx, pool, pgCfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
				return err
			}
		}
		pgStore = pgstore.New(pool)
		repo = pgStore
		checks["postgres"] = pg.Healthcheck(pool)
		log.Info("using postgres repository")
	} else {
		repo = auth.NewMemoryRepository()
		log.Warn("PG_CONN_URL not set, users and sessions are kept in memory")
	}

	// Limiter buckets and OAuth state: Redis when configured.
	var (
		limiterStore ratelimiter.Store = ratelimiter.NewMemoryStore()
		stateStore   oauth.StateStore  = oauth.NewMemoryStateStore(nil)
	)
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		limiterStore = ratelimiter.NewRedisStore(client)
		stateStore = oauth.NewRedisStateStore(client, redisCfg.KeyPrefix+oauth.DefaultStatePrefix)
		checks["redis"] = redis.Healthcheck(client)
		log.Info("using redis for rate limits and oauth state")
	}

	newLimiter := func(name string, cfg ratelimiter.Config) (*ratelimiter.Limiter, error) {
		return ratelimiter.New(limiterStore, cfg,
			ratelimiter.WithPrefix(redisCfg.KeyPrefix+"ratelimit:"+name+":"),
			ratelimiter.WithLogger(log),
		)
	}
	loginLimiter, err := newLimiter("login", limits.Login)
	if err != nil {
		return err
	}
	registerLimiter, err := newLimiter("register", limits.Registration)
	if err != nil {
		return err
	}
	resetLimiter, err := newLimiter("reset", limits.PasswordReset)
	if err != nil {
		return err
	}
	ipLimiter, err := newLimiter("ip", limits.IP)
	if err != nil {
		return err
	}

	passwords, err := password.New(pwCfg, password.WithLogger(log))
	if err != nil {
		return err
	}
	tokens, err := jwt.New(jwtCfg, jwt.WithLogger(log))
	if err != nil {
		return err
	}

	var sender email.EmailSender
	if emailCfg.UsePostmark() {
		sender, err = email.NewPostmarkSender(emailCfg, email.WithPostmarkLogger(log))
		if err != nil {
			return err
		}
	} else {
		sender = email.NewDevSender(emailCfg.DevDir, nil)
		log.Warn("postmark not configured, emails are written to disk", slog.String("dir", emailCfg.DevDir))
	}
	notifier, err := email.NewAuthNotifier(sender, emailCfg,
		email.WithNotifierLogger(log),
		email.WithLinkTTLs(app.VerifyTokenTTL, app.ResetTokenTTL),
	)
	if err != nil {
		return err
	}

	opts := []auth.Option{
		auth.WithLogger(log),
		auth.WithNotifier(notifier),
		auth.WithMaxFailedAttempts(app.MaxFailedAttempts),
		auth.WithLockDuration(app.LockDuration),
		auth.WithResetTokenTTL(app.ResetTokenTTL),
		auth.WithVerificationTokenTTL(app.VerifyTokenTTL),
	}
	if app.RefreshRotation {
		opts = append(opts, auth.WithRefreshRotation())
	}
	svc, err := auth.NewService(repo, passwords, tokens, auth.Limiters{
		Login:         loginLimiter,
		Registration:  registerLimiter,
		PasswordReset: resetLimiter,
	}, opts...)
	if err != nil {
		return err
	}

	apiOpts := []authapi.Option{
		authapi.WithLogger(log),
		authapi.WithIPLimiter(ipLimiter),
	}
	client, err := oauth.New(oauthCfg, oauth.WithStateStore(stateStore), oauth.WithLogger(log))
	switch {
	case err == nil:
		apiOpts = append(apiOpts, authapi.WithSocial(auth.NewSocialService(svc, client, auth.WithSocialLogger(log))))
		log.Info("social login enabled", slog.Any("providers", client.Enabled()), slog.Bool("demo", client.DemoMode()))
	case errors.Is(err, oauth.ErrNoProviders):
		log.Info("no oauth provider configured, social login disabled")
	default:
		return err
	}

	for _, l := range []*ratelimiter.Limiter{loginLimiter, registerLimiter, resetLimiter, ipLimiter} {
		l.StartCleanup(ctx, app.CleanupInterval)
	}
	if pgStore != nil {
		go sweepSessions(ctx, clockwork.NewRealClock(), pgStore, app.CleanupInterval, log)
	}

	router := chi.NewRouter()
	router.Get("/livez", httpserver.LivenessHandler())
	router.Get("/readyz", httpserver.ReadinessHandler(log, 3*time.Second, checks))
	router.Mount(app.APIPrefix, authapi.New(svc, apiOpts...).Routes())

	return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, router)
}

// sessionSweeper is the part of pgstore.Store the sweep loop needs.
type sessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

func sweepSessions(ctx context.Context, clock clockwork.Clock, store sessionSweeper, interval time.Duration, log *slog.Logger) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := store.DeleteExpiredSessions(ctx)
			if err != nil {
				log.ErrorContext(ctx, "expired session sweep failed", logger.Error(err))
				continue
			}
			if n > 0 {
				log.DebugContext(ctx, "expired sessions removed", slog.Int("count", n))
			}
		}
	}
}
