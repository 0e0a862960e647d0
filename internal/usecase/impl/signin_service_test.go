package impl

import (
	"context"
	"testing"
	"time"

	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type signinFixture struct {
	service     *signinService
	sessionRepo *mockSessionRepo
	users       *mockUserService
	clients     *mockClientService
	issuer      *mockTokenIssuer
	now         time.Time
}

func newSigninFixture(t *testing.T) *signinFixture {
	t.Helper()

	sessionRepo := new(mockSessionRepo)
	users := new(mockUserService)
	clients := new(mockClientService)
	issuer := new(mockTokenIssuer)
	now := time.Unix(1_700_000_000, 0)

	service := &signinService{
		txManager: &fakeTxManager{factory: &stubFactory{sessionRepo: sessionRepo}},
		guard:     &passthroughGuard{},
		users:     users,
		clients:   clients,
		tenants: &staticTenants{cfg: &entity.TenantConfig{
			TenantID:           "tenant-a",
			Issuer:             "https://auth.example.com",
			AccessTokenExpiry:  900,
			RefreshTokenExpiry: 86400,
		}},
		issuer: issuer,
		logger: discardLogger(),
		now:    func() time.Time { return now },
	}

	return &signinFixture{
		service:     service,
		sessionRepo: sessionRepo,
		users:       users,
		clients:     clients,
		issuer:      issuer,
		now:         now,
	}
}

func TestSignin_CreatesSessionAndIssuesTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newSigninFixture(t)
	scope := []string{"openid", "profile"}

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", scope).Return(nil)
	f.users.On("Authenticate", ctx, "tenant-a", "alice@example.com", entity.AuthMethodPassword, "secret").
		Return(&entity.UserProfile{ID: "user-1", Email: "alice@example.com"}, nil)
	f.issuer.On("GenerateRefreshToken").Return("opaque-refresh-token", nil)
	f.sessionRepo.On("Create", ctx, mock.MatchedBy(func(session *entity.RefreshToken) bool {
		return session.TenantID == "tenant-a" &&
			session.ClientID == "client-1" &&
			session.UserID == "user-1" &&
			session.Token == "opaque-refresh-token" &&
			session.Expiry == f.now.Unix()+86400 &&
			session.IsActive &&
			assert.ObjectsAreEqual([]entity.AuthMethod{entity.AuthMethodPassword}, session.AuthMethods)
	})).Return(nil)
	f.issuer.On("IssueAccessToken", ctx, mock.Anything).Return("access.jwt", nil)
	f.issuer.On("IssueIDToken", ctx, mock.Anything).Return("id.jwt", nil)

	result, err := f.service.Signin(ctx, &usecase.SigninInput{
		TenantID:   "tenant-a",
		ClientID:   "client-1",
		Identifier: "alice@example.com",
		Secret:     "secret",
		Scope:      scope,
		Device:     entity.DeviceMetadata{DeviceID: "device-1", IP: "203.0.113.7"},
	})

	require.NoError(t, err)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "access.jwt", result.Tokens.AccessToken)
	assert.Equal(t, "id.jwt", result.Tokens.IDToken)
	assert.Equal(t, "opaque-refresh-token", result.Tokens.RefreshToken)
	assert.Equal(t, "Bearer", result.Tokens.TokenType)
	assert.Equal(t, int64(900), result.Tokens.ExpiresIn)
	f.sessionRepo.AssertExpectations(t)
}

func TestSignin_DefaultsToPasswordFactor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newSigninFixture(t)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.users.On("Authenticate", ctx, "tenant-a", "alice", entity.AuthMethodPassword, "secret").
		Return(&entity.UserProfile{ID: "user-1"}, nil)
	f.issuer.On("GenerateRefreshToken").Return("opaque-refresh-token", nil)
	f.sessionRepo.On("Create", ctx, mock.Anything).Return(nil)
	f.issuer.On("IssueAccessToken", ctx, mock.Anything).Return("access.jwt", nil)
	f.issuer.On("IssueIDToken", ctx, mock.Anything).Return("id.jwt", nil)

	_, err := f.service.Signin(ctx, &usecase.SigninInput{
		TenantID:   "tenant-a",
		ClientID:   "client-1",
		Identifier: "alice",
		Secret:     "secret",
	})

	require.NoError(t, err)
	f.users.AssertExpectations(t)
}

func TestSignin_EvictsOldestSessionAtCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newSigninFixture(t)
	f.service.maxActiveSessions = 2

	oldest := activeSession(entity.AuthMethodPassword)
	oldest.CreatedAt = f.now.Add(-48 * time.Hour)
	newer := activeSession(entity.AuthMethodPassword)
	newer.CreatedAt = f.now.Add(-1 * time.Hour)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.users.On("Authenticate", ctx, "tenant-a", "alice", entity.AuthMethodPassword, "secret").
		Return(&entity.UserProfile{ID: "user-1"}, nil)
	f.issuer.On("GenerateRefreshToken").Return("opaque-refresh-token", nil)
	f.sessionRepo.On("FindActiveByUser", ctx, "tenant-a", "client-1", "user-1").
		Return([]*entity.RefreshToken{newer, oldest}, nil)
	f.sessionRepo.On("Deactivate", ctx, oldest.ID).Return(nil)
	f.sessionRepo.On("Create", ctx, mock.Anything).Return(nil)
	f.issuer.On("IssueAccessToken", ctx, mock.Anything).Return("access.jwt", nil)
	f.issuer.On("IssueIDToken", ctx, mock.Anything).Return("id.jwt", nil)

	_, err := f.service.Signin(ctx, &usecase.SigninInput{
		TenantID:   "tenant-a",
		ClientID:   "client-1",
		Identifier: "alice",
		Secret:     "secret",
	})

	require.NoError(t, err)
	f.sessionRepo.AssertExpectations(t)
}

func TestSignin_RejectsNonKnowledgeFactor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newSigninFixture(t)
	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)

	_, err := f.service.Signin(ctx, &usecase.SigninInput{
		TenantID:   "tenant-a",
		ClientID:   "client-1",
		Identifier: "alice",
		Secret:     "123456",
		Factor:     entity.AuthMethodEmailOTP,
	})

	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
	f.sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignin_RejectsUnknownClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newSigninFixture(t)
	f.clients.On("ValidateClient", ctx, "tenant-a", "rogue-client", mock.Anything).
		Return(domainerrors.ErrInvalidClient)

	_, err := f.service.Signin(ctx, &usecase.SigninInput{
		TenantID:   "tenant-a",
		ClientID:   "rogue-client",
		Identifier: "alice",
		Secret:     "secret",
	})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidClient)
	f.users.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignin_WrongSecretSurfacesCredentialError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newSigninFixture(t)
	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.users.On("Authenticate", ctx, "tenant-a", "alice", entity.AuthMethodPin, "0000").
		Return(nil, domainerrors.ErrInvalidCredentials)

	_, err := f.service.Signin(ctx, &usecase.SigninInput{
		TenantID:   "tenant-a",
		ClientID:   "client-1",
		Identifier: "alice",
		Secret:     "0000",
		Factor:     entity.AuthMethodPin,
	})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	f.sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
