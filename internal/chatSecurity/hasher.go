package chatSecurity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/akolanti/CyberScholar/internal/rag/checksum"
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns password+salt into something safe to persist.
type Hasher interface {
	Hash(password, salt string) (string, error)
	Matches(hash, password, salt string) bool
}

type bcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) Hasher {
	return &bcryptHasher{cost: cost}
}

// bcrypt reads at most 72 bytes, so the salted password is digested first.
func prehash(password, salt string) []byte {
	return []byte(checksum.Digest([]byte(password + salt)))
}

func (b *bcryptHasher) Hash(password, salt string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password, salt), b.cost)
	if err != nil {
		return "", fmt.Errorf("hashing chat password: %w", err)
	}
	return string(hash), nil
}

func (b *bcryptHasher) Matches(hash, password, salt string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password, salt)) == nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
