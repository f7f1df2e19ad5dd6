package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"billserver/internal/adapter/repo"
	"billserver/internal/domain"
	"billserver/internal/http/handlers"
	httpapi "billserver/internal/http/httpapi"
	"billserver/internal/infra"
	"billserver/internal/infra/geoip"
	"billserver/internal/infra/oidc"
	"billserver/internal/middleware"
	"billserver/internal/providers/nic"
	"billserver/internal/quota"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	quotaRepo := repo.NewQuotaRepository(runner)
	invoiceRepo := repo.NewInvoiceRepository(runner)
	subscriptionRepo := repo.NewSubscriptionRepository(runner)

	basePolicy := quota.Policy{
		KillSwitch:      cfg.QuotaKillSwitch,
		FreeDailyLimit:  cfg.FreeDailyLimit,
		FreeMonthlyCap:  cfg.FreeMonthlyCap,
		LaunchBonus:     cfg.LaunchBonus,
		PromoEndOrdinal: promoEndOrdinal(cfg.PromoEndDate),
	}
	var policy quota.PolicySource = quota.StaticPolicy{Policy: basePolicy}
	if cfg.PolicyConfigURL != "" {
		policy = quota.NewRemotePolicy(cfg.PolicyConfigURL, basePolicy, cfg.PolicyRefreshTTL, logger)
	}

	classifier := quota.ClassifierFunc(func(ctx context.Context) domain.DeviceTier {
		return quota.ClassifyMemory(middleware.DeviceMemoryFromContext(ctx))
	})

	gate := quota.NewGate(quotaRepo, quota.SystemClock(), policy, classifier, logger)

	nicClient := nic.NewClient(cfg.NICBaseURL, cfg.NICClientID, cfg.NICClientSecret, cfg.NICUsername, logger)

	var identity handlers.IdentityVerifier = handlers.AssertionVerifier{Secret: cfg.IdentitySecret}
	if cfg.GoogleClientID != "" {
		identity = handlers.OIDCIdentity{Verifier: oidc.NewVerifier(cfg.OIDCIssuer, cfg.GoogleClientID)}
	}

	app := &handlers.App{
		SQL:           runner,
		Gate:          gate,
		Quotas:        quotaRepo,
		Tiers:         quotaRepo,
		Invoices:      invoiceRepo,
		Subscriptions: subscriptionRepo,
		NIC:           nicClient,
		Sealer:        nic.JSONSealer{},
		Identity:      identity,
		JWTSecret:     cfg.JWTSecret,
		WebhookSecret: cfg.PaymentWebhookSecret,
		Logger:        logger,
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, locale falls back to headers")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   "en",
		CountryLookup:   lookup,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != os.ErrClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func promoEndOrdinal(date string) int {
	if date == "" {
		return 0
	}
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return 0
	}
	return quota.DayOrdinal(t)
}
