package auth

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// MinSigningKeyLength is 256 bits, the floor for HMAC-SHA256
	MinSigningKeyLength = 32
	// MaxSigningKeyLength is 512 bits
	MaxSigningKeyLength = 64
)

// DeriveSigningKey decodes the configured base64 secret into the symmetric
// signing key, rejecting anything below MinSigningKeyLength.
func DeriveSigningKey(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "signing secret is not valid base64").
			WithTextCode(textCodeInvalidSigningKey).
			WithCode(goerrors.CodeBadRequest)
	}

	if len(key) < MinSigningKeyLength {
		clone := ErrInvalidSigningKey.Clone()
		if clone == nil {
			return nil, ErrInvalidSigningKey
		}
		clone.Source = ErrInvalidSigningKey
		return nil, clone.WithMetadata(map[string]any{
			"length": len(key),
			"min":    MinSigningKeyLength,
		})
	}

	return key, nil
}

// GenerateSigningSecret produces a new base64 encoded secret with a random
// length in [MinSigningKeyLength, MaxSigningKeyLength]. The output of the
// CSPRNG is XOR mixed with a second batch of random bytes; the mixing is
// defense in depth, not required for correctness.
func GenerateSigningSecret() (string, error) {
	span := big.NewInt(int64(MaxSigningKeyLength - MinSigningKeyLength + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to pick signing key length")
	}

	keyLen := MinSigningKeyLength + int(n.Int64())

	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate signing key")
	}

	mix := make([]byte, keyLen)
	if _, err := rand.Read(mix); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate signing key mix")
	}

	for i := range key {
		key[i] ^= mix[i]
	}

	return base64.StdEncoding.EncodeToString(key), nil
}

// IsValidSecret reports whether the secret decodes to at least the minimum
// key length. It never errors; any decode failure is false.
func IsValidSecret(secret string) bool {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return false
	}
	return len(key) >= MinSigningKeyLength
}

// IsValidSecretKey reports whether the secret decodes to a key within the
// accepted length bounds. It never errors.
func IsValidSecretKey(secret string) bool {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return false
	}
	return len(key) >= MinSigningKeyLength && len(key) <= MaxSigningKeyLength
}
