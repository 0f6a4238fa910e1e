package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type (
	Hasher struct {
		cost int
	}
)

const (
	DefaultHashCost = 10

	// bcrypt ignores everything after the 72nd byte
	maxPasswordBytes = 72
)

func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return Hasher{cost: cost}
}

func (h Hasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncate(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("unable to hash password, cause %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. Malformed digests never
// match.
func (h Hasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), truncate(plain)) == nil
}

func truncate(plain string) []byte {
	buf := []byte(plain)
	if len(buf) > maxPasswordBytes {
		buf = buf[:maxPasswordBytes]
	}
	return buf
}
