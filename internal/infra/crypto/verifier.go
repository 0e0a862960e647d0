package crypto

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	domainerrors "aegis/internal/domain/errors"
)

// Verifier checks device signatures over issued challenges. Verification runs
// on the shared crypto pool.
type Verifier struct {
	pool *Pool
}

// NewVerifier is the constructor for Verifier.
func NewVerifier(pool *Pool) *Verifier {
	return &Verifier{pool: pool}
}

// ParsePublicKey decodes a PEM SubjectPublicKeyInfo block and requires an
// EC P-256 key.
func ParsePublicKey(pemKey string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, domainerrors.ErrInvalidPublicKey.WrapMessage("no PEM block found")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, domainerrors.ErrInvalidPublicKey.WrapMessage("not a valid SubjectPublicKeyInfo")
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, domainerrors.ErrInvalidPublicKey.WrapMessage("not an EC key")
	}
	if key.Curve != elliptic.P256() {
		return nil, domainerrors.ErrInvalidPublicKey.WrapMessage("curve must be P-256")
	}

	return key, nil
}

// VerifySignature checks a base64 DER ECDSA signature over SHA-256 of the
// message exactly as it was delivered to the device.
func (v *Verifier) VerifySignature(ctx context.Context, publicKeyPEM, message, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return domainerrors.ErrInvalidEncoding.WrapMessage("signature is not valid base64")
	}

	key, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return err
	}

	return v.pool.Do(ctx, func() error {
		digest := sha256.Sum256([]byte(message))
		if !ecdsa.VerifyASN1(key, digest[:], sig) {
			return domainerrors.ErrInvalidSignature
		}

		return nil
	})
}
