package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const notificationDrainGrace = 10 * time.Second

type stores struct {
	tickets     repository.TicketRepository
	history     repository.TicketHistoryRepository
	profiles    repository.ProfileRepository
	identities  repository.IdentityRepository
	revocations auth.RevocationStore
	health      map[string]handlers.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var st stores
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()

		st = stores{
			tickets:     repository.NewTicketRepository(pool),
			history:     repository.NewTicketHistoryRepository(pool),
			profiles:    repository.NewProfileRepository(pool),
			identities:  repository.NewIdentityRepository(pool),
			revocations: auth.NewRedisRevocationStore(redis.Client, redis.RevocationNamespace()),
			health:      map[string]handlers.Pinger{"postgres": pg, "redis": redis},
		}
	} else {
		logger.Warn("using in-memory stores; data is lost on restart")
		mem := repository.NewMemoryStore()
		st = stores{
			tickets:     mem.Tickets(),
			history:     mem.History(),
			profiles:    mem.Profiles(),
			identities:  mem.Identities(),
			revocations: auth.NewMemoryRevocationStore(),
			health:      map[string]handlers.Pinger{},
		}
	}

	blobs, err := storage.NewFileStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to prepare blob storage", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(service.AuthDependencies{
		IdentityRepo: st.identities,
		ProfileRepo:  st.profiles,
		Revocations:  st.revocations,
		Tokens:       tokens,
	})
	profileService := service.NewProfileService(st.profiles, cfg.Auth.BcryptCost)
	bootstrapAdmin(ctx, profileService, cfg.Auth, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  st.tickets,
		ProfileRepo: st.profiles,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Policy:      cfg.Tickets,
	})

	historyService := service.NewHistoryService(service.HistoryDependencies{
		Dispatcher:  dispatcher,
		HistoryRepo: st.history,
		TicketRepo:  st.tickets,
		ProfileRepo: st.profiles,
		Logger:      logger,
	})
	historyService.RegisterHandlers()

	var relay notify.Relay
	if cfg.Notification.WebhookURL != "" {
		relay = notify.NewWebhookRelay(cfg.Notification.WebhookURL, cfg.Notification.Timeout())
	}
	notificationService := service.NewNotificationService(dispatcher, relay, logger, metrics, cfg.Notification)
	drainNotifications := worker.StartNotificationWorker(notificationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, st.health),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		History:        handlers.NewHistoryHandler(historyService),
		Auth:           handlers.NewAuthHandler(authService),
		Profiles:       handlers.NewProfilesHandler(profileService),
		Storage:        handlers.NewStorageHandler(blobs, cfg.Storage.MaxUploadBytes, logger, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, st.revocations, logger),
		Metrics:        metrics.Handler(),
		IntakeLimiter:  httptransport.IntakeLimiter(cfg.App.IntakeRateLimit),
		UploadLimiter:  httptransport.IntakeLimiter(cfg.App.UploadRateLimit),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	drainNotifications(notificationDrainGrace)
}

func bootstrapAdmin(ctx context.Context, profiles *service.ProfileService, cfg config.AuthConfig, logger *zap.Logger) {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return
	}
	profile, err := profiles.CreateStaff(ctx, service.StaffInput{
		Email:    cfg.BootstrapAdminEmail,
		Password: cfg.BootstrapAdminPassword,
		Role:     domain.RoleAdmin,
	})
	switch {
	case apperrors.HasCode(err, apperrors.CodeConflict):
		logger.Info("bootstrap admin already provisioned", zap.String("email", cfg.BootstrapAdminEmail))
	case err != nil:
		logger.Fatal("failed to provision bootstrap admin", zap.Error(err))
	default:
		logger.Info("bootstrap admin provisioned", zap.String("profile_id", profile.ID))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
