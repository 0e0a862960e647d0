package crypto

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	domainerrors "aegis/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKeyPEM(t *testing.T, curve elliptic.Curve) (*ecdsa.PrivateKey, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	return key, string(pemKey)
}

func signMessage(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()

	digest := sha256.Sum256([]byte(message))
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(sig)
}

func TestVerifySignature_Valid(t *testing.T) {
	key, pemKey := generateKeyPEM(t, elliptic.P256())
	verifier := NewVerifier(NewPool(2))

	sig := signMessage(t, key, "challenge-bytes")

	err := verifier.VerifySignature(context.Background(), pemKey, "challenge-bytes", sig)
	assert.NoError(t, err)
}

func TestVerifySignature_WrongMessage(t *testing.T) {
	key, pemKey := generateKeyPEM(t, elliptic.P256())
	verifier := NewVerifier(NewPool(2))

	sig := signMessage(t, key, "challenge-bytes")

	err := verifier.VerifySignature(context.Background(), pemKey, "other-bytes", sig)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
}

func TestVerifySignature_WrongKey(t *testing.T) {
	key, _ := generateKeyPEM(t, elliptic.P256())
	_, otherPEM := generateKeyPEM(t, elliptic.P256())
	verifier := NewVerifier(NewPool(2))

	sig := signMessage(t, key, "challenge-bytes")

	err := verifier.VerifySignature(context.Background(), otherPEM, "challenge-bytes", sig)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSignature)
}

func TestVerifySignature_BadEncoding(t *testing.T) {
	_, pemKey := generateKeyPEM(t, elliptic.P256())
	verifier := NewVerifier(NewPool(2))

	err := verifier.VerifySignature(context.Background(), pemKey, "challenge-bytes", "%%not-base64%%")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidEncoding)
}

func TestParsePublicKey_RejectsWrongCurve(t *testing.T) {
	_, pemKey := generateKeyPEM(t, elliptic.P384())

	_, err := ParsePublicKey(pemKey)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidPublicKey)
}

func TestParsePublicKey_RejectsGarbage(t *testing.T) {
	_, err := ParsePublicKey("not a pem block")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidPublicKey)
}

func TestPool_DoRespectsContext(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() error {
			close(started)
			<-release

			return nil
		})
	}()

	// Wait until the slot is held, then cancel the queued caller.
	<-started
	cancel()

	err := pool.Do(ctx, func() error { return nil })
	assert.Error(t, err)

	close(release)
}
