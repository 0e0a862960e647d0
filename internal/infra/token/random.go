// Package token implements JWT issuance and opaque token generation.
package token

import (
	"crypto/rand"

	"aegis/internal/errors"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomAlphanumeric returns n characters drawn uniformly from [A-Za-z0-9]
// using a cryptographic source. Bytes outside the unbiased range are
// rejected and redrawn.
func randomAlphanumeric(n int) (string, error) {
	// Largest multiple of len(alphanumeric) below 256.
	limit := byte(256 - (256 % len(alphanumeric)))

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "failed to read random bytes")
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}
