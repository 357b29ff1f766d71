package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"identity-hub/config"
	"identity-hub/internal/adapter/gateway"
	adapterhandler "identity-hub/internal/adapter/handler"
	"identity-hub/internal/adapter/storage/postgres"
	"identity-hub/internal/domain"
	infracache "identity-hub/internal/infrastructure/cache"
	"identity-hub/internal/infrastructure/localstore"
	"identity-hub/internal/infrastructure/ratelimit"
	infratoken "identity-hub/internal/infrastructure/token"
	"identity-hub/internal/usecase"
	appmiddleware "identity-hub/middleware"
	"identity-hub/utils/logger"
	"identity-hub/utils/otel"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	// Initialize structured logger
	log := logger.Init(otelCfg.ServiceName, otelCfg.Enabled)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "configuration loaded",
		"provider_url", cfg.ProviderURL,
		"host_kind", cfg.Host,
		"port", cfg.Port,
		"call_budget", cfg.CallBudget,
		"cache_ttl", cfg.CacheTTL)

	// Profile store (optional: identity still resolves without one)
	var profiles domain.ProfileStore
	if cfg.DatabaseURL != "" {
		pool, poolErr := pgxpool.New(ctx, cfg.DatabaseURL)
		if poolErr != nil {
			slog.ErrorContext(ctx, "failed to create database pool", "error", poolErr)
			os.Exit(1)
		}
		defer pool.Close()
		profiles = postgres.NewProfileStore(pool, log)
	} else {
		slog.WarnContext(ctx, "no DATABASE_URL configured, roles degrade to provider defaults")
	}

	// Attempt limiter and session blob store: Redis when configured so
	// counters and blobs are shared across processes, in-process otherwise.
	var (
		limiter domain.AttemptLimiter
		blobs   domain.LocalStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.SignInMaxAttempts, cfg.SignInWindow)
		blobs = localstore.NewRedisStore(redisClient)
	} else {
		memLimiter := ratelimit.NewLimiter(cfg.SignInMaxAttempts, cfg.SignInWindow)
		defer memLimiter.Close()
		limiter = memLimiter
		sessionDir := cfg.SessionDir
		if sessionDir == "" {
			sessionDir = filepath.Join(os.TempDir(), "identity-hub")
		}
		fileStore, storeErr := localstore.NewFileStore(sessionDir)
		if storeErr != nil {
			slog.ErrorContext(ctx, "failed to create session blob store", "error", storeErr, "dir", sessionDir)
			os.Exit(1)
		}
		blobs = fileStore
	}

	// Provider client and session keeper
	provider := gateway.NewProviderClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.CallBudget, log)
	keeper := localstore.NewKeeper(blobs, log)
	unwatch := keeper.Watch(provider)
	defer unwatch()

	// Accessor, resolver, approval cache
	policy := usecase.RetryPolicy{Budget: cfg.CallBudget, RetryBudget: cfg.RetryBudget}
	accessor := usecase.NewSessionAccessor(provider, profiles, policy, log)
	resolver := usecase.NewResolver(accessor, cfg.IsMasterAdmin, log)
	approvalCache := infracache.NewApprovalCache(cfg.CacheTTL, resolver.Resolve)
	accessor.OnAuthFailure(func(ctx context.Context) {
		approvalCache.Invalidate()
		if err := keeper.Drop(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to erase persisted session", "error", err)
		}
	})

	jwtIssuer := infratoken.NewJWTIssuer(infratoken.JWTConfig{
		Secret:   cfg.BackendTokenSecret,
		Issuer:   cfg.BackendTokenIssuer,
		Audience: cfg.BackendTokenAudience,
		TTL:      cfg.BackendTokenTTL,
	})
	csrfGenerator := infratoken.NewHMACCSRFGenerator(cfg.CSRFSecret)

	// Usecases
	signInUC := usecase.NewSignIn(accessor, limiter, approvalCache.Invalidate, log)
	signOutUC := usecase.NewSignOut(accessor, keeper, approvalCache.Invalidate, log)
	identityUC := usecase.NewCurrentIdentity(approvalCache)
	csrfUC := usecase.NewGenerateCSRF(accessor, csrfGenerator, log)
	restoreUC := usecase.NewRestoreSession(accessor, keeper, log)

	// Restore a persisted session before serving traffic
	if session, restoreErr := restoreUC.Execute(ctx); restoreErr != nil {
		slog.WarnContext(ctx, "session restore failed", "error", restoreErr)
	} else if session != nil {
		slog.InfoContext(ctx, "persisted session restored")
	}

	// Handlers
	signInHandler := adapterhandler.NewSignInHandler(signInUC)
	signOutHandler := adapterhandler.NewSignOutHandler(signOutUC)
	sessionHandler := adapterhandler.NewSessionHandler(identityUC, accessor, jwtIssuer, cfg.AuthSharedSecret)
	validateHandler := adapterhandler.NewValidateHandler(identityUC)
	csrfHandler := adapterhandler.NewCSRFHandler(csrfUC)
	healthHandler := adapterhandler.NewHealthHandler()

	// Setup Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Security middleware
	e.Use(appmiddleware.SecurityHeaders())

	// OpenTelemetry tracing
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	// Request logging
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	// Per-IP rate limiters per endpoint group. These gate request floods;
	// the per-identifier sign-in limiter is enforced inside the usecase.
	signInRL := appmiddleware.NewRateLimiter(10, 3)
	sessionRL := appmiddleware.NewRateLimiter(30, 5)
	validateRL := appmiddleware.NewRateLimiter(100, 10)
	csrfRL := appmiddleware.NewRateLimiter(10, 3)
	adminRL := appmiddleware.NewRateLimiter(10, 3)
	for _, rl := range []*appmiddleware.RateLimiter{signInRL, sessionRL, validateRL, csrfRL, adminRL} {
		defer rl.Close()
	}

	// Public routes
	e.POST("/signin", signInHandler.Handle, signInRL.Middleware())
	e.POST("/resend-verification", signInHandler.HandleResend, signInRL.Middleware())
	e.POST("/signout", signOutHandler.Handle, sessionRL.Middleware())
	e.GET("/session", sessionHandler.Handle, sessionRL.Middleware())
	e.GET("/validate", validateHandler.Handle, validateRL.Middleware())
	e.POST("/csrf", csrfHandler.Handle, csrfRL.Middleware())
	e.GET("/health", healthHandler.Handle)

	// Admin approval routes need the profile store and the shared secret.
	if profiles != nil && cfg.AuthSharedSecret != "" {
		workflowUC := usecase.NewApprovalWorkflow(profiles, log)
		approvalHandler := adapterhandler.NewApprovalHandler(workflowUC)

		adminGroup := e.Group("/admin",
			adminRL.Middleware(),
			appmiddleware.InternalAuth(cfg.AuthSharedSecret),
		)
		adminGroup.POST("/approvals/:id/approve", approvalHandler.HandleApprove)
		adminGroup.POST("/approvals/:id/reject", approvalHandler.HandleReject)
		adminGroup.POST("/approvals/:id/reapply", approvalHandler.HandleReapply)
		adminGroup.GET("/approvals/pending", approvalHandler.HandlePending)
	} else {
		slog.WarnContext(ctx, "approval endpoints disabled",
			"has_profile_store", profiles != nil,
			"has_shared_secret", cfg.AuthSharedSecret != "")
	}

	// Start server with errgroup for graceful shutdown
	address := fmt.Sprintf(":%s", cfg.Port)
	slog.InfoContext(ctx, "starting identity-hub server", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited properly")
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8889"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
