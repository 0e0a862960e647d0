package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	deliverycontext "aegis/internal/delivery/context"
	"aegis/internal/domain/constants"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"
	infracrypto "aegis/internal/infra/crypto"
	"aegis/internal/usecase"

	"github.com/pkg/errors"
)

const (
	challengeBytes = 32
	stateBytes     = 16
)

// biometricService implements the BiometricUsecase interface.
type biometricService struct {
	txManager    repository.TransactionManager
	challenges   repository.ChallengeStore
	verifier     *infracrypto.Verifier
	users        service.UserService
	tenants      service.TenantConfigProvider
	issuer       service.TokenIssuer
	publisher    service.EventPublisher
	notification service.NotificationService
	challengeTTL time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewBiometricService is the constructor for biometricService.
func NewBiometricService(
	txManager repository.TransactionManager,
	challenges repository.ChallengeStore,
	verifier *infracrypto.Verifier,
	users service.UserService,
	tenants service.TenantConfigProvider,
	issuer service.TokenIssuer,
	publisher service.EventPublisher,
	notification service.NotificationService,
	challengeTTL time.Duration,
	logger *slog.Logger,
) usecase.BiometricUsecase {
	return &biometricService{
		txManager:    txManager,
		challenges:   challenges,
		verifier:     verifier,
		users:        users,
		tenants:      tenants,
		issuer:       issuer,
		publisher:    publisher,
		notification: notification,
		challengeTTL: challengeTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *biometricService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// CreateChallenge issues a single-use challenge bound to the session.
func (srv *biometricService) CreateChallenge(ctx context.Context, input *usecase.ChallengeInput) (*usecase.ChallengeResult, error) {
	srv.log(ctx).Info("Issuing biometric challenge",
		slog.String("tenant_id", input.TenantID),
		slog.String("device_id", input.Device.DeviceID),
	)

	// 1. The challenge is only issued against a live session
	session, err := findSession(ctx, srv.txManager, input.TenantID, input.ClientID, input.RefreshToken)
	if err != nil {
		return nil, err
	}

	// 2. Random state and challenge from a cryptographic source
	state, err := randomToken(stateBytes)
	if err != nil {
		return nil, err
	}
	challengeValue, err := randomChallenge(challengeBytes)
	if err != nil {
		return nil, err
	}

	challenge := &entity.BiometricChallenge{
		State:        state,
		Challenge:    challengeValue,
		TenantID:     input.TenantID,
		ClientID:     input.ClientID,
		UserID:       session.UserID,
		Device:       input.Device,
		RefreshToken: input.RefreshToken,
		ExpiresAt:    srv.now().Add(srv.challengeTTL).Unix(),
	}

	if err := srv.challenges.Save(ctx, challenge, srv.challengeTTL); err != nil {
		return nil, errors.Wrap(err, "failed to store challenge")
	}

	// 3. An existing credential tells the client this is a login, not a
	// registration; absence is reported as an empty id
	credentialID := ""
	if input.Device.DeviceID != "" {
		credential, credErr := srv.findCredential(ctx, input.TenantID, input.ClientID, session.UserID, input.Device.DeviceID)
		switch {
		case credErr == nil:
			credentialID = credential.CredentialID
		case !errors.Is(credErr, domainerrors.ErrCredentialNotFound):
			srv.log(ctx).Warn("Failed to look up device credential", slog.Any("error", credErr))
		}
	}

	return &usecase.ChallengeResult{
		State:        challenge.State,
		Challenge:    challenge.Challenge,
		ExpiresAt:    challenge.ExpiresAt,
		CredentialID: credentialID,
	}, nil
}

// Complete verifies the device signature over the challenge.
func (srv *biometricService) Complete(ctx context.Context, input *usecase.CompleteInput) (*usecase.CompleteResult, error) {
	srv.log(ctx).Info("Completing biometric challenge",
		slog.String("tenant_id", input.TenantID),
	)

	// 1. Load the challenge; absence and TTL expiry look identical
	challenge, err := srv.challenges.Find(ctx, input.TenantID, input.State)
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			return nil, domainerrors.ErrChallengeNotFound
		}

		return nil, errors.Wrap(err, "failed to load challenge")
	}
	if challenge.Expired(srv.now()) {
		_ = srv.challenges.Delete(ctx, input.TenantID, input.State)

		return nil, domainerrors.ErrChallengeNotFound
	}
	// Knowing a state value is not enough: the caller must also present the
	// client id and refresh token the challenge was bound to.
	if challenge.ClientID != input.ClientID || challenge.RefreshToken != input.RefreshToken {
		return nil, domainerrors.ErrInvalidState
	}

	// 2. The bound session must still be live
	session, err := findSession(ctx, srv.txManager, challenge.TenantID, challenge.ClientID, challenge.RefreshToken)
	if err != nil {
		return nil, err
	}

	// 3. Resolve the verification key: a supplied key registers or rotates
	// the device credential, otherwise the stored credential is used
	registering := input.PublicKey != ""
	verifyKey := input.PublicKey
	if registering {
		if _, err := infracrypto.ParsePublicKey(input.PublicKey); err != nil {
			return nil, err
		}
	} else {
		credential, credErr := srv.findCredential(ctx, challenge.TenantID, challenge.ClientID, session.UserID, challenge.Device.DeviceID)
		if credErr != nil {
			return nil, credErr
		}
		verifyKey = credential.PublicKey
	}

	// 4. An invalid signature leaves the challenge in place for retry
	if err := srv.verifier.VerifySignature(ctx, verifyKey, challenge.Challenge, input.Signature); err != nil {
		return nil, err
	}

	// 5. A valid signature consumes the challenge exactly once, before any
	// downstream work that could fail and invite a replay
	if err := srv.challenges.Delete(ctx, input.TenantID, input.State); err != nil {
		srv.log(ctx).Warn("Failed to delete consumed challenge", slog.Any("error", err))
	}

	// 6. Registration rotates the device credential atomically
	if registering {
		if err := srv.rotateCredential(ctx, challenge, session, input); err != nil {
			return nil, err
		}
	}

	// 7. Possession proof folds into the session's factors
	session.AuthMethods = entity.MergeAuthMethods(session.AuthMethods, entity.AuthMethodHardwareKeyProof)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.SessionRepo().Update(ctx, session)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, domainerrors.ErrRefreshTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to update session")
	}

	profile, err := srv.users.GetUser(ctx, challenge.TenantID, session.UserID)
	if err != nil {
		return nil, err
	}

	tokens, err := issueBundle(ctx, srv.issuer, srv.tenants, session, profile)
	if err != nil {
		return nil, err
	}

	cfg, err := srv.tenants.TenantConfig(ctx, challenge.TenantID)
	if err != nil {
		return nil, err
	}

	return &usecase.CompleteResult{
		UserID: session.UserID,
		Tokens: tokens,
		Cookie: cfg.Cookie,
	}, nil
}

// findCredential loads the active credential for a device.
func (srv *biometricService) findCredential(ctx context.Context, tenantID, clientID, userID, deviceID string) (*entity.Credential, error) {
	var credential *entity.Credential

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.CredentialRepo().FindActiveByDevice(ctx, tenantID, clientID, userID, deviceID)
		if err != nil {
			return err
		}
		credential = found

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, domainerrors.ErrCredentialNotFound
		}

		return nil, errors.Wrap(err, "failed to find credential")
	}

	return credential, nil
}

// rotateCredential revokes any prior device credential and inserts the new
// one in the same transaction, so the device never has zero or two active keys.
func (srv *biometricService) rotateCredential(ctx context.Context, challenge *entity.BiometricChallenge, session *entity.RefreshToken, input *usecase.CompleteInput) error {
	var rotated int64

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		credRepo := repoFactory.CredentialRepo()

		revoked, err := credRepo.RevokeActiveByDevice(
			ctx, challenge.TenantID, challenge.ClientID, session.UserID, challenge.Device.DeviceID)
		if err != nil {
			return err
		}
		rotated = revoked

		return credRepo.Create(ctx, &entity.Credential{
			TenantID:     challenge.TenantID,
			ClientID:     challenge.ClientID,
			UserID:       session.UserID,
			DeviceID:     challenge.Device.DeviceID,
			Platform:     input.Platform,
			CredentialID: input.CredentialID,
			PublicKey:    input.PublicKey,
			BindingType:  input.BindingType,
			Alg:          entity.CredentialAlgES256,
			SignCount:    input.SignCount,
			AAGUID:       input.AAGUID,
			IsActive:     true,
		})
	})
	if err != nil {
		return errors.Wrap(err, "failed to rotate credential")
	}

	if rotated == 0 {
		return nil
	}

	// Rotation of an existing key is security-relevant: audit and alert.
	event := &service.SecurityEvent{
		Type:      constants.EventCredentialRotated,
		TenantID:  challenge.TenantID,
		UserID:    session.UserID,
		Timestamp: srv.now().Unix(),
		Payload: map[string]any{
			"device_id": challenge.Device.DeviceID,
		},
	}
	if err := srv.publisher.PublishSecurityEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish credential rotated event", slog.Any("error", err))
	}

	profile, err := srv.users.GetUser(ctx, challenge.TenantID, session.UserID)
	if err == nil && profile.FCMToken != "" {
		notifyErr := srv.notification.SendSingleNotification(ctx, &service.Notification{
			Token: profile.FCMToken,
			Title: "Biometric key replaced",
			Body:  "The biometric key for one of your devices was replaced.",
			Data: map[string]string{
				"event":     constants.EventCredentialRotated,
				"device_id": challenge.Device.DeviceID,
			},
		})
		if notifyErr != nil {
			srv.log(ctx).Warn("Failed to send rotation notification", slog.Any("error", notifyErr))
		}
	}

	return nil
}

// randomToken returns n random bytes, URL-safe base64 without padding.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// randomChallenge returns n random bytes, standard base64.
func randomChallenge(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}
