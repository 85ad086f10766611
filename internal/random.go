package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const refreshTokenRawSize = 32

// NewRefreshToken returns an opaque base64url refresh token.
func NewRefreshToken() (string, error) {
	var raw [refreshTokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashToken returns the hex SHA-256 of token. Servers keep hashes, never the token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidRefreshToken reports whether token has the shape NewRefreshToken produces.
func ValidRefreshToken(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return err
	}
	if len(raw) != refreshTokenRawSize {
		return errors.New("invalid refresh token size")
	}
	return nil
}
