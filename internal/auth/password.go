package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// dummyHash is compared against when no stored hash exists so unknown
// usernames cost the same as wrong passwords.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("taskhouse"), bcrypt.DefaultCost)
	return hash
})

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. An empty hash or a
// password too long to have been stored is checked against a dummy so the
// call takes the same time either way.
func CheckPassword(hash, password string) (bool, error) {
	stored := []byte(hash)
	if hash == "" || len(password) > MaxPasswordBytes {
		stored = dummyHash()
		hash = ""
		password = password[:min(len(password), MaxPasswordBytes)]
	}
	err := bcrypt.CompareHashAndPassword(stored, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return hash != "", nil
}
