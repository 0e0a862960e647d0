package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"aegis/internal/domain/entity"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxManager runs the callback against a fixed factory without any real
// transaction semantics.
type fakeTxManager struct {
	factory repository.RepositoryFactory
}

func (m *fakeTxManager) Execute(_ context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	return fn(m.factory)
}

// stubFactory hands out the configured repositories.
type stubFactory struct {
	sessionRepo     repository.SessionRepository
	credentialRepo  repository.CredentialRepository
	flowBlockRepo   repository.FlowBlockRepository
	blockConfigRepo repository.BlockConfigRepository
}

func (f *stubFactory) SessionRepo() repository.SessionRepository         { return f.sessionRepo }
func (f *stubFactory) CredentialRepo() repository.CredentialRepository   { return f.credentialRepo }
func (f *stubFactory) FlowBlockRepo() repository.FlowBlockRepository     { return f.flowBlockRepo }
func (f *stubFactory) BlockConfigRepo() repository.BlockConfigRepository { return f.blockConfigRepo }

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Create(ctx context.Context, token *entity.RefreshToken) error {
	args := m.Called(ctx, token)

	return args.Error(0)
}

func (m *mockSessionRepo) FindByToken(ctx context.Context, tenantID, clientID, token string) (*entity.RefreshToken, error) {
	args := m.Called(ctx, tenantID, clientID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.RefreshToken), args.Error(1)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.RefreshToken), args.Error(1)
}

func (m *mockSessionRepo) FindActiveByUser(ctx context.Context, tenantID, clientID, userID string) ([]*entity.RefreshToken, error) {
	args := m.Called(ctx, tenantID, clientID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*entity.RefreshToken), args.Error(1)
}

func (m *mockSessionRepo) Update(ctx context.Context, token *entity.RefreshToken) error {
	args := m.Called(ctx, token)

	return args.Error(0)
}

func (m *mockSessionRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *mockSessionRepo) DeactivateByUser(ctx context.Context, tenantID, clientID, userID string) error {
	args := m.Called(ctx, tenantID, clientID, userID)

	return args.Error(0)
}

type mockCredentialRepo struct {
	mock.Mock
}

func (m *mockCredentialRepo) Create(ctx context.Context, credential *entity.Credential) error {
	args := m.Called(ctx, credential)

	return args.Error(0)
}

func (m *mockCredentialRepo) FindActiveByDevice(ctx context.Context, tenantID, clientID, userID, deviceID string) (*entity.Credential, error) {
	args := m.Called(ctx, tenantID, clientID, userID, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.Credential), args.Error(1)
}

func (m *mockCredentialRepo) FindActiveByUser(ctx context.Context, tenantID, clientID, userID string) ([]*entity.Credential, error) {
	args := m.Called(ctx, tenantID, clientID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*entity.Credential), args.Error(1)
}

func (m *mockCredentialRepo) RevokeActiveByDevice(ctx context.Context, tenantID, clientID, userID, deviceID string) (int64, error) {
	args := m.Called(ctx, tenantID, clientID, userID, deviceID)

	return args.Get(0).(int64), args.Error(1)
}

type mockFlowBlockRepo struct {
	mock.Mock
}

func (m *mockFlowBlockRepo) Create(ctx context.Context, block *entity.FlowBlock) error {
	args := m.Called(ctx, block)

	return args.Error(0)
}

func (m *mockFlowBlockRepo) FindActive(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow) (*entity.FlowBlock, error) {
	args := m.Called(ctx, tenantID, userIdentifier, flow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.FlowBlock), args.Error(1)
}

func (m *mockFlowBlockRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

type mockBlockConfigRepo struct {
	mock.Mock
}

func (m *mockBlockConfigRepo) Find(ctx context.Context, tenantID string) (*entity.BlockConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.BlockConfig), args.Error(1)
}

type mockAttemptCounter struct {
	mock.Mock
}

func (m *mockAttemptCounter) Increment(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow, window time.Duration) (int64, error) {
	args := m.Called(ctx, tenantID, userIdentifier, flow, window)

	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAttemptCounter) Reset(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow) error {
	args := m.Called(ctx, tenantID, userIdentifier, flow)

	return args.Error(0)
}

// memoryChallengeStore is an in-memory ChallengeStore for protocol tests.
type memoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*entity.BiometricChallenge
}

func newMemoryChallengeStore() *memoryChallengeStore {
	return &memoryChallengeStore{challenges: make(map[string]*entity.BiometricChallenge)}
}

func (s *memoryChallengeStore) key(tenantID, state string) string {
	return tenantID + "/" + state
}

func (s *memoryChallengeStore) Save(_ context.Context, challenge *entity.BiometricChallenge, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[s.key(challenge.TenantID, challenge.State)] = challenge

	return nil
}

func (s *memoryChallengeStore) Find(_ context.Context, tenantID, state string) (*entity.BiometricChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[s.key(tenantID, state)]
	if !ok {
		return nil, repository.ErrChallengeNotFound
	}

	return challenge, nil
}

func (s *memoryChallengeStore) Delete(_ context.Context, tenantID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, s.key(tenantID, state))

	return nil
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetUser(ctx context.Context, tenantID, identifier string) (*entity.UserProfile, error) {
	args := m.Called(ctx, tenantID, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.UserProfile), args.Error(1)
}

func (m *mockUserService) Authenticate(ctx context.Context, tenantID, identifier string, factor entity.AuthMethod, secret string) (*entity.UserProfile, error) {
	args := m.Called(ctx, tenantID, identifier, factor, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.UserProfile), args.Error(1)
}

func (m *mockUserService) UpdateUser(ctx context.Context, tenantID, userID string, update *entity.UserUpdate) (*entity.UserProfile, error) {
	args := m.Called(ctx, tenantID, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*entity.UserProfile), args.Error(1)
}

type mockClientService struct {
	mock.Mock
}

func (m *mockClientService) ValidateClient(ctx context.Context, tenantID, clientID string, scope []string) error {
	args := m.Called(ctx, tenantID, clientID, scope)

	return args.Error(0)
}

type mockTokenIssuer struct {
	mock.Mock
}

func (m *mockTokenIssuer) IssueAccessToken(ctx context.Context, input *service.AccessTokenInput) (string, error) {
	args := m.Called(ctx, input)

	return args.String(0), args.Error(1)
}

func (m *mockTokenIssuer) IssueIDToken(ctx context.Context, input *service.IDTokenInput) (string, error) {
	args := m.Called(ctx, input)

	return args.String(0), args.Error(1)
}

func (m *mockTokenIssuer) GenerateRefreshToken() (string, error) {
	args := m.Called()

	return args.String(0), args.Error(1)
}

func (m *mockTokenIssuer) GenerateSSOToken() (string, error) {
	args := m.Called()

	return args.String(0), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishSecurityEvent(ctx context.Context, event *service.SecurityEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockEventPublisher) Close() error {
	args := m.Called()

	return args.Error(0)
}

type mockNotificationService struct {
	mock.Mock
}

func (m *mockNotificationService) SendSingleNotification(ctx context.Context, notification *service.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

// staticTenants is a fixed TenantConfigProvider for tests.
type staticTenants struct {
	cfg   *entity.TenantConfig
	key   *entity.SigningKey
	block *entity.BlockConfig
}

func (p *staticTenants) TenantConfig(_ context.Context, _ string) (*entity.TenantConfig, error) {
	return p.cfg, nil
}

func (p *staticTenants) SigningKey(_ context.Context, _ string) (*entity.SigningKey, error) {
	return p.key, nil
}

func (p *staticTenants) BlockConfig(_ context.Context, _ string) (*entity.BlockConfig, error) {
	if p.block != nil {
		return p.block, nil
	}

	return entity.DefaultBlockConfig(), nil
}

func (p *staticTenants) Invalidate(_ string) {}

// passthroughGuard runs the verification with no counting.
type passthroughGuard struct{}

func (g *passthroughGuard) Attempt(_ context.Context, _, _ string, _ entity.BlockFlow, verify func() error) error {
	return verify()
}
