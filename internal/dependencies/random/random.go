// Package random issues the secrets handed out by the stand-in backend.
package random

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// Random issues reset codes and session tokens
type Random interface {
	// Code returns n random decimal digits
	Code(n int) string

	// Token returns an unguessable opaque session token
	Token() string
}

const tokenBytes = 32

var ten = big.NewInt(10)

// CryptoRandom draws from crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Code returns n uniformly distributed digits
func (r *CryptoRandom) Code(n int) string {
	if n <= 0 {
		return ""
	}
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits)
}

// Token returns 32 random bytes, base64url encoded
func (r *CryptoRandom) Token() string {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
