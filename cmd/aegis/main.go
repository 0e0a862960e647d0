package main

import (
	"context"
	"log/slog"
	"os"

	"aegis/config"
	"aegis/internal/delivery"
	"aegis/internal/delivery/http"
	"aegis/internal/delivery/http/middleware"
	"aegis/internal/delivery/http/router/handler"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"
	"aegis/internal/infra/cache"
	"aegis/internal/infra/clientsvc"
	infracrypto "aegis/internal/infra/crypto"
	logs "aegis/internal/infra/log"
	"aegis/internal/infra/notification"
	"aegis/internal/infra/persistence/postgres"
	"aegis/internal/infra/pubsub"
	"aegis/internal/infra/tenantcfg"
	"aegis/internal/infra/token"
	"aegis/internal/infra/userservice"
	"aegis/internal/usecase"
	"aegis/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		cache.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewSessionRepository,
			postgres.NewCredentialRepository,
			postgres.NewFlowBlockRepository,
			postgres.NewBlockConfigRepository,
			postgres.NewTransactionManager,
			cache.NewChallengeStore,
			cache.NewAttemptCounter,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			newCryptoPool,
			infracrypto.NewVerifier,
			tenantcfg.New,
			token.NewIssuer,
			clientsvc.New,
			newNotificationService,
		),
		pubsub.Module,
		userservice.Module,
	)
}

// newCryptoPool sizes the signature worker pool from configuration.
func newCryptoPool(cfg *config.Config) *infracrypto.Pool {
	return infracrypto.NewPool(cfg.Crypto.VerifyWorkers)
}

// newNotificationService creates a Firebase service when configured, falling
// back to a no-op sender otherwise.
func newNotificationService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.NotificationService, error) {
	if cfg.Firebase == nil {
		return notification.NewNoopService(logger), nil
	}

	return notification.NewFirebaseService(ctx, cfg.Firebase.CredentialsPath)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewBruteForceGuard,
			newSigninUsecase,
			impl.NewMfaService,
			newBiometricUsecase,
			impl.NewSessionService,
		),
	)
}

// newSigninUsecase resolves the per-user session cap from configuration.
func newSigninUsecase(
	txManager repository.TransactionManager,
	guard usecase.BruteForceGuard,
	users service.UserService,
	clients service.ClientService,
	tenants service.TenantConfigProvider,
	issuer service.TokenIssuer,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.SigninUsecase {
	maxActiveSessions := 0
	if cfg.Auth != nil {
		maxActiveSessions = cfg.Auth.MaxActiveSessions
	}

	return impl.NewSigninService(txManager, guard, users, clients, tenants, issuer, maxActiveSessions, logger)
}

// newBiometricUsecase resolves the challenge TTL from configuration.
func newBiometricUsecase(
	txManager repository.TransactionManager,
	challenges repository.ChallengeStore,
	verifier *infracrypto.Verifier,
	users service.UserService,
	tenants service.TenantConfigProvider,
	issuer service.TokenIssuer,
	publisher service.EventPublisher,
	notificationSvc service.NotificationService,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.BiometricUsecase {
	return impl.NewBiometricService(
		txManager, challenges, verifier, users, tenants, issuer,
		publisher, notificationSvc, cfg.Auth.ChallengeTTL, logger,
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewMfaHandler,
			handler.NewBiometricHandler,
			handler.NewSessionHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
