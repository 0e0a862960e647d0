package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "aegis/internal/delivery/context"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"
	"aegis/internal/usecase"

	"github.com/pkg/errors"
)

// signinService implements the SigninUsecase interface.
type signinService struct {
	txManager         repository.TransactionManager
	guard             usecase.BruteForceGuard
	users             service.UserService
	clients           service.ClientService
	tenants           service.TenantConfigProvider
	issuer            service.TokenIssuer
	maxActiveSessions int
	logger            *slog.Logger
	now               func() time.Time
}

// NewSigninService is the constructor for signinService. A maxActiveSessions
// of zero disables the per-user session cap.
func NewSigninService(
	txManager repository.TransactionManager,
	guard usecase.BruteForceGuard,
	users service.UserService,
	clients service.ClientService,
	tenants service.TenantConfigProvider,
	issuer service.TokenIssuer,
	maxActiveSessions int,
	logger *slog.Logger,
) usecase.SigninUsecase {
	return &signinService{
		txManager:         txManager,
		guard:             guard,
		users:             users,
		clients:           clients,
		tenants:           tenants,
		issuer:            issuer,
		maxActiveSessions: maxActiveSessions,
		logger:            logger,
		now:               time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *signinService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Signin verifies the first factor and creates a session.
func (srv *signinService) Signin(ctx context.Context, input *usecase.SigninInput) (*usecase.SigninResult, error) {
	srv.log(ctx).Info("Processing sign-in",
		slog.String("tenant_id", input.TenantID),
		slog.String("client_id", input.ClientID),
	)

	// 1. Validate the client and its requested scopes
	if err := srv.clients.ValidateClient(ctx, input.TenantID, input.ClientID, input.Scope); err != nil {
		return nil, err
	}

	// 2. Only knowledge factors establish a session
	factor := input.Factor
	if factor == "" {
		factor = entity.AuthMethodPassword
	}
	flow, ok := blockFlowFor(factor)
	if !ok {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("sign-in requires a password or PIN factor")
	}

	// 3. Verify the secret under the brute-force guard
	var profile *entity.UserProfile
	err := srv.guard.Attempt(ctx, input.TenantID, input.Identifier, flow, func() error {
		authenticated, authErr := srv.users.Authenticate(ctx, input.TenantID, input.Identifier, factor, input.Secret)
		if authErr != nil {
			return authErr
		}
		profile = authenticated

		return nil
	})
	if err != nil {
		return nil, err
	}

	// 4. Create the session row
	cfg, err := srv.tenants.TenantConfig(ctx, input.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tenant config")
	}

	tokenValue, err := srv.issuer.GenerateRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate refresh token")
	}

	session := &entity.RefreshToken{
		TenantID:    input.TenantID,
		ClientID:    input.ClientID,
		UserID:      profile.ID,
		Token:       tokenValue,
		Expiry:      srv.now().Unix() + cfg.RefreshTokenExpiry,
		Scope:       input.Scope,
		AuthMethods: []entity.AuthMethod{factor},
		IsActive:    true,
		Device:      input.Device,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		// The oldest session yields when the per-user cap is reached
		if srv.maxActiveSessions > 0 {
			active, findErr := sessionRepo.FindActiveByUser(ctx, input.TenantID, input.ClientID, profile.ID)
			if findErr != nil {
				return findErr
			}
			if len(active) >= srv.maxActiveSessions {
				oldest := active[0]
				for _, s := range active[1:] {
					if s.CreatedAt.Before(oldest.CreatedAt) {
						oldest = s
					}
				}
				if deactivateErr := sessionRepo.Deactivate(ctx, oldest.ID); deactivateErr != nil {
					return deactivateErr
				}
			}
		}

		return sessionRepo.Create(ctx, session)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to create session", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create session")
	}

	// 5. Issue the token bundle
	tokens, err := issueBundle(ctx, srv.issuer, srv.tenants, session, profile)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Sign-in succeeded",
		slog.String("tenant_id", input.TenantID),
		slog.Any("session_id", session.ID),
	)

	return &usecase.SigninResult{
		SessionID: session.ID,
		UserID:    profile.ID,
		Tokens:    tokens,
	}, nil
}

// blockFlowFor maps a knowledge factor to its brute-force flow.
func blockFlowFor(factor entity.AuthMethod) (entity.BlockFlow, bool) {
	switch factor {
	case entity.AuthMethodPassword:
		return entity.BlockFlowPassword, true
	case entity.AuthMethodPin:
		return entity.BlockFlowPin, true
	default:
		return "", false
	}
}
