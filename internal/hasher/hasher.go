// Package hasher turns plaintext secrets into stored digests.
//
// The default SHA256 hasher is unsalted and single-round. It is kept so that
// digests already persisted in users tables keep verifying; it is a known
// weakness. Bcrypt can be selected instead without changing any caller.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jvs-project/regis/pkg/errclass"
)

// Hasher is a one-way credential transform.
type Hasher interface {
	// Name identifies the scheme in config and diagnostics.
	Name() string
	// Digest returns the stored form of secret.
	Digest(secret string) (string, error)
	// Verify reports whether secret produces digest.
	Verify(secret, digest string) bool
}

// SHA256 digests a secret as the lowercase hex SHA-256 of its UTF-8 bytes.
// Equal inputs always give equal outputs.
type SHA256 struct{}

func (SHA256) Name() string { return "sha256" }

func (SHA256) Digest(secret string) (string, error) {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256) Verify(secret, digest string) bool {
	want, _ := h.Digest(secret)
	return subtle.ConstantTimeCompare([]byte(want), []byte(digest)) == 1
}

// Bcrypt digests with a per-secret salt at the configured cost.
type Bcrypt struct {
	Cost int
}

func (Bcrypt) Name() string { return "bcrypt" }

func (b Bcrypt) Digest(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(secret), b.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(out), nil
}

func (Bcrypt) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}

// New returns the hasher configured by name.
func New(name string, cost int) (Hasher, error) {
	switch name {
	case "", "sha256":
		return SHA256{}, nil
	case "bcrypt":
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, errclass.ErrConfigInvalid.WithMessagef("bcrypt cost %d out of range", cost)
		}
		return Bcrypt{Cost: cost}, nil
	}
	return nil, errclass.ErrConfigInvalid.WithMessagef("unknown hasher %q", name)
}
