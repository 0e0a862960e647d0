package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "aegis/internal/delivery/context"
	"aegis/internal/domain/constants"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"
	"aegis/internal/usecase"

	"github.com/pkg/errors"
)

// mfaService implements the MfaUsecase interface.
type mfaService struct {
	txManager repository.TransactionManager
	guard     usecase.BruteForceGuard
	users     service.UserService
	clients   service.ClientService
	tenants   service.TenantConfigProvider
	issuer    service.TokenIssuer
	publisher service.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewMfaService is the constructor for mfaService.
func NewMfaService(
	txManager repository.TransactionManager,
	guard usecase.BruteForceGuard,
	users service.UserService,
	clients service.ClientService,
	tenants service.TenantConfigProvider,
	issuer service.TokenIssuer,
	publisher service.EventPublisher,
	logger *slog.Logger,
) usecase.MfaUsecase {
	return &mfaService{
		txManager: txManager,
		guard:     guard,
		users:     users,
		clients:   clients,
		tenants:   tenants,
		issuer:    issuer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *mfaService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// StepUp verifies an additional factor and folds it into the session.
func (srv *mfaService) StepUp(ctx context.Context, input *usecase.StepUpInput) (*entity.TokenBundle, error) {
	srv.log(ctx).Info("Processing MFA step-up",
		slog.String("tenant_id", input.TenantID),
		slog.String("factor", string(input.Factor)),
	)

	// 1. Validate the client and any newly requested scopes
	if err := srv.clients.ValidateClient(ctx, input.TenantID, input.ClientID, input.Scope); err != nil {
		return nil, err
	}

	if !input.Factor.Valid() || input.Factor == entity.AuthMethodHardwareKeyProof {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("factor cannot be used for step-up")
	}

	// 2. Load the session
	session, err := findSession(ctx, srv.txManager, input.TenantID, input.ClientID, input.RefreshToken)
	if err != nil {
		return nil, err
	}

	// 3. At most one factor per category on a session
	if entity.HasCategory(session.AuthMethods, input.Factor.Category()) {
		return nil, domainerrors.ErrMfaFactorNotSupported
	}

	// 4. Verify the secret; knowledge factors run under the brute-force guard
	var profile *entity.UserProfile
	verify := func() error {
		authenticated, authErr := srv.users.Authenticate(ctx, input.TenantID, session.UserID, input.Factor, input.Secret)
		if authErr != nil {
			return authErr
		}
		if authenticated.ID != session.UserID {
			return domainerrors.ErrUnauthorized
		}
		profile = authenticated

		return nil
	}

	if flow, guarded := blockFlowFor(input.Factor); guarded {
		err = srv.guard.Attempt(ctx, input.TenantID, session.UserID, flow, verify)
	} else {
		err = verify()
	}
	if err != nil {
		return nil, err
	}

	// 5. Merge the factor and scopes into the session. Concurrent step-ups
	// resolve last-write-wins on the merged columns.
	session.AuthMethods = entity.MergeAuthMethods(session.AuthMethods, input.Factor)
	session.Scope = entity.MergeScopes(session.Scope, input.Scope)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().Update(ctx, session)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, domainerrors.ErrRefreshTokenNotFound
		}
		srv.log(ctx).Error("Failed to update session", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to update session")
	}

	// 6. Issue new tokens on the same refresh token
	return issueBundle(ctx, srv.issuer, srv.tenants, session, profile)
}

// Enroll stores a new factor secret for the session's user and folds the
// factor into the session.
func (srv *mfaService) Enroll(ctx context.Context, input *usecase.EnrollInput) (*entity.TokenBundle, error) {
	srv.log(ctx).Info("Processing factor enrollment",
		slog.String("tenant_id", input.TenantID),
		slog.String("factor", string(input.Factor)),
	)

	// 1. Validate the client and any newly requested scopes
	if err := srv.clients.ValidateClient(ctx, input.TenantID, input.ClientID, input.Scope); err != nil {
		return nil, err
	}

	if !input.Factor.Valid() || input.Factor == entity.AuthMethodHardwareKeyProof {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("factor cannot be enrolled here")
	}

	// 2. Load the session
	session, err := findSession(ctx, srv.txManager, input.TenantID, input.ClientID, input.RefreshToken)
	if err != nil {
		return nil, err
	}

	// 3. Reject a factor the session already carries or the profile already
	// has set
	if entity.ContainsMethod(session.AuthMethods, input.Factor) {
		return nil, domainerrors.ErrMfaFactorAlreadyEnrolled
	}
	profile, err := srv.users.GetUser(ctx, input.TenantID, session.UserID)
	if err != nil {
		return nil, err
	}
	if profile.FactorEnrolled(input.Factor) {
		return nil, domainerrors.ErrMfaFactorAlreadyEnrolled
	}

	// 4. Store the secret and pick up the refreshed profile
	profile, err = srv.users.UpdateUser(ctx, input.TenantID, session.UserID, &entity.UserUpdate{
		Factor: input.Factor,
		Secret: input.Secret,
	})
	if err != nil {
		return nil, err
	}

	// 5. Merge the factor and scopes into the session
	session.AuthMethods = entity.MergeAuthMethods(session.AuthMethods, input.Factor)
	session.Scope = entity.MergeScopes(session.Scope, input.Scope)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().Update(ctx, session)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, domainerrors.ErrRefreshTokenNotFound
		}
		srv.log(ctx).Error("Failed to update session", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to update session")
	}

	event := &service.SecurityEvent{
		Type:      constants.EventFactorEnrolled,
		TenantID:  input.TenantID,
		UserID:    session.UserID,
		Timestamp: srv.now().Unix(),
		Payload: map[string]any{
			"factor": string(input.Factor),
		},
	}
	if err := srv.publisher.PublishSecurityEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish factor enrolled event", slog.Any("error", err))
	}

	// 6. Issue new tokens on the same refresh token
	return issueBundle(ctx, srv.issuer, srv.tenants, session, profile)
}

// ListFactors reports enrollment and step-up eligibility for every supported
// factor.
func (srv *mfaService) ListFactors(ctx context.Context, tenantID, clientID, refreshToken string) ([]usecase.FactorStatus, error) {
	session, err := findSession(ctx, srv.txManager, tenantID, clientID, refreshToken)
	if err != nil {
		return nil, err
	}

	profile, err := srv.users.GetUser(ctx, tenantID, session.UserID)
	if err != nil {
		return nil, err
	}

	var hasCredential bool
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		credentials, credErr := repoFactory.CredentialRepo().FindActiveByUser(ctx, tenantID, clientID, session.UserID)
		if credErr != nil {
			return credErr
		}
		hasCredential = len(credentials) > 0

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list credentials")
	}

	// A factor whose category the session already proved cannot step up
	// again; only factors in unused categories remain eligible.
	eligible := func(factor entity.AuthMethod) bool {
		return !entity.HasCategory(session.AuthMethods, factor.Category())
	}

	return []usecase.FactorStatus{
		{Factor: entity.AuthMethodPassword, Enrolled: profile.PasswordSet, Eligible: eligible(entity.AuthMethodPassword)},
		{Factor: entity.AuthMethodPin, Enrolled: profile.PinSet, Eligible: eligible(entity.AuthMethodPin)},
		{Factor: entity.AuthMethodEmailOTP, Enrolled: profile.Email != "", Eligible: eligible(entity.AuthMethodEmailOTP)},
		{Factor: entity.AuthMethodSmsOTP, Enrolled: profile.Phone != "", Eligible: eligible(entity.AuthMethodSmsOTP)},
		{Factor: entity.AuthMethodHardwareKeyProof, Enrolled: hasCredential, Eligible: eligible(entity.AuthMethodHardwareKeyProof)},
	}, nil
}
