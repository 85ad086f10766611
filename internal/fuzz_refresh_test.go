package internal

import (
	"testing"
)

// FuzzValidRefreshToken exercises refresh token validation with arbitrary strings.
// Goal: no panics; only NewRefreshToken-shaped inputs pass.
func FuzzValidRefreshToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA") // 43 chars, 32 bytes

	if token, err := NewRefreshToken(); err == nil {
		f.Add(token)
	}

	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		if err := ValidRefreshToken(input); err != nil {
			return
		}
		if HashToken(input) == "" {
			t.Fatal("valid token must hash")
		}
	})
}

func TestNewRefreshTokenIsUniqueAndValid(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	b, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
	if err := ValidRefreshToken(a); err != nil {
		t.Fatalf("expected valid token: %v", err)
	}
	if HashToken(a) == HashToken(b) || len(HashToken(a)) != 64 {
		t.Fatal("unexpected hash shape")
	}
}
