package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/BloodyDerby/biosentiers-backend/internal/cache"
	cachemem "github.com/BloodyDerby/biosentiers-backend/internal/cache/memory"
	cacheredis "github.com/BloodyDerby/biosentiers-backend/internal/cache/redis"
	"github.com/BloodyDerby/biosentiers-backend/internal/config"
	"github.com/BloodyDerby/biosentiers-backend/internal/email"
	authctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/auth"
	excursionsctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/excursions"
	healthctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/health"
	installationsctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/installations"
	usersctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/users"
	"github.com/BloodyDerby/biosentiers-backend/internal/http/router"
	authsvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/auth"
	excursionssvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/excursions"
	installationssvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/installations"
	userssvc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/users"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/metrics"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	storemem "github.com/BloodyDerby/biosentiers-backend/internal/store/memory"
	storepg "github.com/BloodyDerby/biosentiers-backend/internal/store/pg"
)

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if *flagEnvFile != "" && fileExists(*flagEnvFile) {
		if err := godotenv.Load(*flagEnvFile); err == nil {
			log.Printf("dotenv: cargado %s", *flagEnvFile)
		}
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "biosentiers",
	})
	defer logger.Sync()
	zlog := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── Store ───
	var store core.Repository
	switch cfg.Storage.Driver {
	case "postgres":
		pgStore, err := storepg.New(ctx, cfg.Storage.DSN, storepg.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime),
		})
		if err != nil {
			zlog.Fatal("postgres open failed", logger.Err(err))
		}
		defer pgStore.Close()
		store = pgStore
	case "memory":
		store = storemem.New()
		zlog.Warn("memory store enabled, data will not survive a restart")
	}

	// ─── Cache (replay de nonces) ───
	var nonceCache cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		nonceCache = cacheredis.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
	default:
		nonceCache = cachemem.New(config.Duration(cfg.Cache.Memory.DefaultTTL))
	}

	codec := jwtx.NewCodec([]byte(cfg.JWT.Secret))

	// ─── Email ───
	var sender email.Sender
	if cfg.SMTP.Host != "" {
		smtp := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From,
			cfg.SMTP.Username, cfg.SMTP.Password)
		smtp.TLSMode = cfg.SMTP.TLS
		smtp.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		sender = smtp
	}
	mailer := email.NewMailer(sender, cfg.Email.BaseURL)
	mailer.DebugEchoLinks = cfg.Email.DebugEchoLinks

	// ─── Servicios ───
	auth := authsvc.NewService(authsvc.Deps{
		Store:                store,
		Codec:                codec,
		Cache:                nonceCache,
		StalenessWindow:      cfg.Auth.StalenessWindow,
		ClockLeeway:          cfg.Auth.ClockLeeway,
		UserTokenTTL:         config.Duration(cfg.JWT.UserTTL),
		InstallationTokenTTL: config.Duration(cfg.JWT.InstallationTTL),
	})
	invitations := authsvc.NewInvitationService(authsvc.InvitationDeps{
		Users:  store.Users(),
		Codec:  codec,
		Mailer: mailer,
		TTL:    config.Duration(cfg.JWT.InvitationTTL),
	})
	resets := authsvc.NewPasswordResetService(authsvc.PasswordResetDeps{
		Users:  store.Users(),
		Codec:  codec,
		Mailer: mailer,
		TTL:    config.Duration(cfg.JWT.ResetTTL),
	})
	users := userssvc.NewService(userssvc.Deps{
		Users:      store.Users(),
		BcryptCost: cfg.Auth.BcryptCost,
	})
	installations := installationssvc.NewService(installationssvc.Deps{
		Installations: store.Installations(),
	})
	excursions := excursionssvc.NewService(excursionssvc.Deps{
		Excursions: store.Excursions(),
	})

	// ─── Métricas ───
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		var poolFn func() *pgxpool.Pool
		if pgStore, ok := store.(*storepg.Store); ok {
			poolFn = pgStore.Pool
		}
		metricsHandler, err = metrics.Register(metrics.Config{Pool: poolFn})
		if err != nil {
			zlog.Fatal("metrics register failed", logger.Err(err))
		}
	}

	handler := router.New(router.Deps{
		Store:          store,
		Codec:          codec,
		Auth:           authctrl.NewAuthController(auth, invitations, resets),
		Users:          usersctrl.NewUsersController(users, store.Users()),
		Installations:  installationsctrl.NewInstallationsController(installations),
		Excursions:     excursionsctrl.NewExcursionsController(excursions),
		Health:         healthctrl.NewHealthController(store),
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("server up",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env),
			logger.String("storage", cfg.Storage.Driver),
			logger.String("cache", cfg.Cache.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		zlog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zlog.Fatal("server failed", logger.Err(err))
	}
}
