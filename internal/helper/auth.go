package helper

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// OtpTTL is how long a generated code stays valid.
	OtpTTL = 10 * time.Minute

	// SessionTokenBytes of randomness, hex-encoded to twice as many characters.
	SessionTokenBytes = 30
)

type Auth struct{}

func SetupAuth() Auth {
	return Auth{}
}

// Hash produces a one-way bcrypt hash. Used for both passwords and OTP codes,
// so neither is ever stored in plaintext.
func (a Auth) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New("failed to hash secret")
	}
	return string(h), nil
}

// Verify compares plaintext against a stored hash in constant time.
func (a Auth) Verify(plain, hashed string) error {
	if err := bcrypt.CompareHashAndPassword(
		[]byte(hashed),
		[]byte(plain),
	); err != nil {
		return errors.New("secret mismatch")
	}
	return nil
}

// GenerateOtp returns a 6-digit code in [100000, 999999]. The fixed width
// avoids leading-zero codes; the source of randomness is crypto/rand.
func (a Auth) GenerateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.New("failed to generate otp")
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// GenerateSessionToken returns an opaque bearer token with no structure and
// no expiry. Sessions last until the token is overwritten by a later login.
func (a Auth) GenerateSessionToken() (string, error) {
	return RandomToken(SessionTokenBytes)
}

func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
