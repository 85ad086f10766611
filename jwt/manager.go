package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the algorithm a [Manager] signs and verifies with.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC-SHA256 secret.
	MethodHS256 SigningMethod = "hs256"
)

// Config configures a token-issuing [Manager].
//
// Managers are only needed by components that play the backend role (the stub API, tests,
// load tools). Clients that merely consume tokens use [Decode].
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
}

// Manager issues and verifies signed access tokens carrying HRM [Claims].
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL reports the lifetime given to tokens without an explicit expiry.
func (j *Manager) AccessTTL() time.Duration {
	return j.config.AccessTTL
}

// CreateAccess signs claims into a compact token. When claims carry no expiry the
// configured AccessTTL is applied; an explicit ExpiresAt (even one in the past) is kept,
// which lets tests mint already-expired sessions.
func (j *Manager) CreateAccess(claims Claims) (string, error) {
	now := time.Now()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(j.config.AccessTTL))
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.Issuer == "" {
		claims.Issuer = j.config.Issuer
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

// ParseAccess verifies the signature, algorithm, issuer and expiry of tokenStr.
func (j *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return j.getVerifyKey()
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		if len(j.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 signing requires private key")
		}
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
