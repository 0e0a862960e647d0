package impl

import (
	"context"
	"testing"
	"time"

	"aegis/internal/domain/constants"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"
	"aegis/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingGuard notes which flows were guarded before running the verification.
type recordingGuard struct {
	flows []entity.BlockFlow
}

func (g *recordingGuard) Attempt(_ context.Context, _, _ string, flow entity.BlockFlow, verify func() error) error {
	g.flows = append(g.flows, flow)

	return verify()
}

type mfaFixture struct {
	service        *mfaService
	sessionRepo    *mockSessionRepo
	credentialRepo *mockCredentialRepo
	users          *mockUserService
	clients        *mockClientService
	issuer         *mockTokenIssuer
	publisher      *mockEventPublisher
	guard          *recordingGuard
	now            time.Time
}

func newMfaFixture(t *testing.T) *mfaFixture {
	t.Helper()

	sessionRepo := new(mockSessionRepo)
	credentialRepo := new(mockCredentialRepo)
	users := new(mockUserService)
	clients := new(mockClientService)
	issuer := new(mockTokenIssuer)
	publisher := new(mockEventPublisher)
	guard := &recordingGuard{}
	now := time.Unix(1_700_000_000, 0)

	service := &mfaService{
		txManager: &fakeTxManager{factory: &stubFactory{
			sessionRepo:    sessionRepo,
			credentialRepo: credentialRepo,
		}},
		guard:   guard,
		users:   users,
		clients: clients,
		tenants: &staticTenants{cfg: &entity.TenantConfig{
			TenantID:          "tenant-a",
			Issuer:            "https://auth.example.com",
			AccessTokenExpiry: 900,
		}},
		issuer:    issuer,
		publisher: publisher,
		logger:    discardLogger(),
		now:       func() time.Time { return now },
	}

	return &mfaFixture{
		service:        service,
		sessionRepo:    sessionRepo,
		credentialRepo: credentialRepo,
		users:          users,
		clients:        clients,
		issuer:         issuer,
		publisher:      publisher,
		guard:          guard,
		now:            now,
	}
}

func activeSession(methods ...entity.AuthMethod) *entity.RefreshToken {
	return &entity.RefreshToken{
		ID:          uuid.New(),
		TenantID:    "tenant-a",
		ClientID:    "client-1",
		UserID:      "user-1",
		Token:       "opaque-refresh-token",
		Expiry:      time.Now().Add(time.Hour).Unix(),
		Scope:       []string{"openid"},
		AuthMethods: methods,
		IsActive:    true,
	}
}

func TestStepUp_AddsFactorAndMergesScope(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodPassword)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", []string{"payments"}).Return(nil)
	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)
	f.users.On("Authenticate", ctx, "tenant-a", "user-1", entity.AuthMethodEmailOTP, "123456").
		Return(&entity.UserProfile{ID: "user-1"}, nil)
	f.sessionRepo.On("Update", ctx, mock.MatchedBy(func(updated *entity.RefreshToken) bool {
		return assert.ObjectsAreEqual(
			[]entity.AuthMethod{entity.AuthMethodPassword, entity.AuthMethodEmailOTP},
			updated.AuthMethods,
		) && assert.ObjectsAreEqual([]string{"openid", "payments"}, updated.Scope)
	})).Return(nil)
	f.issuer.On("IssueAccessToken", ctx, mock.Anything).Return("access.jwt", nil)
	f.issuer.On("IssueIDToken", ctx, mock.Anything).Return("id.jwt", nil)

	tokens, err := f.service.StepUp(ctx, &usecase.StepUpInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodEmailOTP,
		Secret:       "123456",
		Scope:        []string{"payments"},
	})

	require.NoError(t, err)
	assert.Equal(t, "opaque-refresh-token", tokens.RefreshToken, "step-up must not rotate the refresh token")
	assert.Empty(t, f.guard.flows, "OTP verification is not a brute-force guarded flow")
	f.sessionRepo.AssertExpectations(t)
}

func TestStepUp_PinRunsUnderBruteForceGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodEmailOTP)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)
	f.users.On("Authenticate", ctx, "tenant-a", "user-1", entity.AuthMethodPin, "4821").
		Return(&entity.UserProfile{ID: "user-1"}, nil)
	f.sessionRepo.On("Update", ctx, mock.Anything).Return(nil)
	f.issuer.On("IssueAccessToken", ctx, mock.Anything).Return("access.jwt", nil)
	f.issuer.On("IssueIDToken", ctx, mock.Anything).Return("id.jwt", nil)

	_, err := f.service.StepUp(ctx, &usecase.StepUpInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodPin,
		Secret:       "4821",
	})

	require.NoError(t, err)
	assert.Equal(t, []entity.BlockFlow{entity.BlockFlowPin}, f.guard.flows)
}

func TestStepUp_RejectsDuplicateCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodPassword, entity.AuthMethodEmailOTP)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)

	_, err := f.service.StepUp(ctx, &usecase.StepUpInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodSmsOTP,
		Secret:       "123456",
	})

	assert.ErrorIs(t, err, domainerrors.ErrMfaFactorNotSupported)
	f.users.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStepUp_RejectsHardwareKeyFactor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)

	_, err := f.service.StepUp(ctx, &usecase.StepUpInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodHardwareKeyProof,
	})

	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestStepUp_UnknownRefreshToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "missing-token").
		Return(nil, repository.ErrSessionNotFound)

	_, err := f.service.StepUp(ctx, &usecase.StepUpInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "missing-token",
		Factor:       entity.AuthMethodEmailOTP,
		Secret:       "123456",
	})

	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenNotFound)
}

func TestEnroll_StoresSecretUpdatesSessionAndIssuesTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodPassword)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", []string{"payments"}).Return(nil)
	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)
	f.users.On("GetUser", ctx, "tenant-a", "user-1").
		Return(&entity.UserProfile{ID: "user-1", PasswordSet: true}, nil)
	f.users.On("UpdateUser", ctx, "tenant-a", "user-1", &entity.UserUpdate{
		Factor: entity.AuthMethodEmailOTP,
		Secret: "alice@example.com",
	}).Return(&entity.UserProfile{ID: "user-1", PasswordSet: true, Email: "alice@example.com"}, nil)
	f.sessionRepo.On("Update", ctx, mock.MatchedBy(func(updated *entity.RefreshToken) bool {
		return assert.ObjectsAreEqual(
			[]entity.AuthMethod{entity.AuthMethodPassword, entity.AuthMethodEmailOTP},
			updated.AuthMethods,
		) && assert.ObjectsAreEqual([]string{"openid", "payments"}, updated.Scope)
	})).Return(nil)
	f.publisher.On("PublishSecurityEvent", ctx, mock.MatchedBy(func(event *service.SecurityEvent) bool {
		return event.Type == constants.EventFactorEnrolled && event.Payload["factor"] == "EMAIL_OTP"
	})).Return(nil)
	f.issuer.On("IssueAccessToken", ctx, mock.Anything).Return("access.jwt", nil)
	f.issuer.On("IssueIDToken", ctx, mock.Anything).Return("id.jwt", nil)

	tokens, err := f.service.Enroll(ctx, &usecase.EnrollInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodEmailOTP,
		Secret:       "alice@example.com",
		Scope:        []string{"payments"},
	})

	require.NoError(t, err)
	assert.Equal(t, "opaque-refresh-token", tokens.RefreshToken, "enrollment must not rotate the refresh token")
	f.users.AssertExpectations(t)
	f.sessionRepo.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestEnroll_RejectsAlreadyEnrolledFactor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodPassword)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)
	f.users.On("GetUser", ctx, "tenant-a", "user-1").
		Return(&entity.UserProfile{ID: "user-1", PinSet: true}, nil)

	_, err := f.service.Enroll(ctx, &usecase.EnrollInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodPin,
		Secret:       "4821",
	})

	assert.ErrorIs(t, err, domainerrors.ErrMfaFactorAlreadyEnrolled)
	f.users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnroll_RejectsFactorAlreadyOnSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodPassword, entity.AuthMethodSmsOTP)

	f.clients.On("ValidateClient", ctx, "tenant-a", "client-1", mock.Anything).Return(nil)
	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)

	// The session already proved SMS_OTP; the profile flag being clear must
	// not permit re-enrollment.
	_, err := f.service.Enroll(ctx, &usecase.EnrollInput{
		TenantID:     "tenant-a",
		ClientID:     "client-1",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodSmsOTP,
		Secret:       "+15550100",
	})

	assert.ErrorIs(t, err, domainerrors.ErrMfaFactorAlreadyEnrolled)
	f.users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.issuer.AssertNotCalled(t, "IssueAccessToken", mock.Anything, mock.Anything)
}

func TestEnroll_RejectsUnknownClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	f.clients.On("ValidateClient", ctx, "tenant-a", "rogue-client", mock.Anything).
		Return(domainerrors.ErrInvalidClient)

	_, err := f.service.Enroll(ctx, &usecase.EnrollInput{
		TenantID:     "tenant-a",
		ClientID:     "rogue-client",
		RefreshToken: "opaque-refresh-token",
		Factor:       entity.AuthMethodPin,
		Secret:       "4821",
	})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidClient)
	f.sessionRepo.AssertNotCalled(t, "FindByToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListFactors_ReportsEnrollmentState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodPassword)

	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)
	f.users.On("GetUser", ctx, "tenant-a", "user-1").
		Return(&entity.UserProfile{
			ID:          "user-1",
			Email:       "alice@example.com",
			PasswordSet: true,
		}, nil)
	f.credentialRepo.On("FindActiveByUser", ctx, "tenant-a", "client-1", "user-1").
		Return([]*entity.Credential{{DeviceID: "device-1", IsActive: true}}, nil)

	statuses, err := f.service.ListFactors(ctx, "tenant-a", "client-1", "opaque-refresh-token")

	// The session proved PASSWORD, so the knowledge category is spent; OTP
	// and possession factors remain eligible for step-up.
	require.NoError(t, err)
	assert.Equal(t, []usecase.FactorStatus{
		{Factor: entity.AuthMethodPassword, Enrolled: true, Eligible: false},
		{Factor: entity.AuthMethodPin, Enrolled: false, Eligible: false},
		{Factor: entity.AuthMethodEmailOTP, Enrolled: true, Eligible: true},
		{Factor: entity.AuthMethodSmsOTP, Enrolled: false, Eligible: true},
		{Factor: entity.AuthMethodHardwareKeyProof, Enrolled: true, Eligible: true},
	}, statuses)
}

func TestListFactors_ReflectsUsedCategories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newMfaFixture(t)
	session := activeSession(entity.AuthMethodPassword, entity.AuthMethodEmailOTP)

	f.sessionRepo.On("FindByToken", ctx, "tenant-a", "client-1", "opaque-refresh-token").
		Return(session, nil)
	f.users.On("GetUser", ctx, "tenant-a", "user-1").
		Return(&entity.UserProfile{ID: "user-1", PasswordSet: true, Email: "alice@example.com"}, nil)
	f.credentialRepo.On("FindActiveByUser", ctx, "tenant-a", "client-1", "user-1").
		Return(nil, nil)

	statuses, err := f.service.ListFactors(ctx, "tenant-a", "client-1", "opaque-refresh-token")

	require.NoError(t, err)
	for _, status := range statuses {
		if status.Factor == entity.AuthMethodHardwareKeyProof {
			assert.True(t, status.Eligible, "possession category is still unused")
		} else {
			assert.False(t, status.Eligible, "knowledge and otp categories are spent")
		}
	}
}
