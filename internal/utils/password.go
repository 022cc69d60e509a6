package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// dummyHashes caches one never-matching hash per bcrypt cost.
var dummyHashes sync.Map // int -> []byte

// dummyHashFor returns the equalizer hash for cost, generating it on first
// use.  Comparing against it costs as much as a real verification at the
// same cost.
func dummyHashFor(cost int) []byte {
	if h, ok := dummyHashes.Load(cost); ok {
		return h.([]byte)
	}
	h, err := bcrypt.GenerateFromPassword([]byte("elibrary-timing-equalizer"), cost)
	if err != nil {
		return nil
	}
	actual, _ := dummyHashes.LoadOrStore(cost, h)
	return actual.([]byte)
}

// BurnPasswordCheck runs a bcrypt comparison that always fails, so a login
// for an unknown email takes as long as one with a wrong password.  cost
// must be the cost stored passwords are hashed with.
func BurnPasswordCheck(plain string, cost int) {
	_ = bcrypt.CompareHashAndPassword(dummyHashFor(cost), []byte(plain))
}
