package tenantcfg

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"aegis/config"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func signingKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Tenants: []config.TenantConfig{
			{
				TenantID:           "tenant-1",
				Issuer:             "https://auth.example.com",
				Kid:                "key-1",
				SigningKeyPEM:      signingKeyPEM(t),
				AccessTokenExpiry:  15 * time.Minute,
				IDTokenExpiry:      15 * time.Minute,
				RefreshTokenExpiry: 720 * time.Hour,
				AccessTokenClaims: []config.ClaimMapping{
					{Name: "org_id", Path: "organization.id"},
				},
			},
		},
		Block: &config.BlockConfig{
			AttemptsAllowed: 3,
			AttemptsWindow:  2 * time.Minute,
			BlockInterval:   10 * time.Minute,
		},
	}

	return cfg
}

func TestTenantConfig_ResolvesAndCaches(t *testing.T) {
	repo := new(mockBlockConfigRepo)
	p := New(testConfig(t), repo)

	cfg, err := p.TenantConfig(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com", cfg.Issuer)
	assert.Equal(t, int64(900), cfg.AccessTokenExpiry)
	assert.Equal(t, int64(720*3600), cfg.RefreshTokenExpiry)
	require.Len(t, cfg.AccessTokenClaims, 1)
	assert.Equal(t, "org_id", cfg.AccessTokenClaims[0].Name)

	again, err := p.TenantConfig(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Same(t, cfg, again)
}

func TestTenantConfig_UnknownTenant(t *testing.T) {
	repo := new(mockBlockConfigRepo)
	p := New(testConfig(t), repo)

	_, err := p.TenantConfig(context.Background(), "tenant-x")
	assert.ErrorIs(t, err, domainerrors.ErrTenantConfigNotFound)
}

func TestSigningKey_ParsesP256(t *testing.T) {
	repo := new(mockBlockConfigRepo)
	p := New(testConfig(t), repo)

	key, err := p.SigningKey(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", key.Kid)
	assert.Equal(t, elliptic.P256(), key.PrivateKey.Curve)
}

func TestBlockConfig_PrefersTenantRow(t *testing.T) {
	repo := new(mockBlockConfigRepo)
	repo.On("Find", mock.Anything, "tenant-1").Return(&entity.BlockConfig{
		AttemptsAllowed:       7,
		AttemptsWindowSeconds: 60,
		BlockIntervalSeconds:  300,
	}, nil).Once()

	p := New(testConfig(t), repo)

	cfg, err := p.BlockConfig(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.AttemptsAllowed)

	// Cached: the repository is not queried again.
	_, err = p.BlockConfig(context.Background(), "tenant-1")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestBlockConfig_FallsBackToConfigDefaults(t *testing.T) {
	repo := new(mockBlockConfigRepo)
	repo.On("Find", mock.Anything, "tenant-1").Return(nil, repository.ErrBlockConfigNotFound)

	p := New(testConfig(t), repo)

	cfg, err := p.BlockConfig(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cfg.AttemptsAllowed)
	assert.Equal(t, int64(120), cfg.AttemptsWindowSeconds)
	assert.Equal(t, int64(600), cfg.BlockIntervalSeconds)
}

func TestInvalidate_EvictsCache(t *testing.T) {
	repo := new(mockBlockConfigRepo)
	repo.On("Find", mock.Anything, "tenant-1").Return(nil, repository.ErrBlockConfigNotFound).Twice()

	p := New(testConfig(t), repo)

	_, err := p.BlockConfig(context.Background(), "tenant-1")
	require.NoError(t, err)

	p.Invalidate("tenant-1")

	_, err = p.BlockConfig(context.Background(), "tenant-1")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
