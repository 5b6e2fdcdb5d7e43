// Package auth guards the admin API: a bcrypt password check issues a
// signed session token stored in an HttpOnly cookie.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CookieName holds the session token.
	CookieName = "admin_token"
	// TokenTTL is how long a session lasts.
	TokenTTL = 7 * 24 * time.Hour
	// HashCost is the bcrypt cost used by HashPassword.
	HashCost = 12

	roleAdmin = "admin"
)

// ErrInvalidToken is returned for missing, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Authenticator checks passwords and session tokens.
type Authenticator struct {
	passwordHash []byte
	secret       []byte
	secure       bool
	logger       *zap.Logger
	now          func() time.Time
}

// Config configures an Authenticator.
type Config struct {
	PasswordHash string // bcrypt hash of the admin password
	Secret       string // HMAC key for session tokens
	SecureCookie bool   // set the Secure attribute on the cookie
}

// New returns an Authenticator. Without a secret a random one is generated,
// so sessions do not survive a restart.
func New(cfg Config, logger *zap.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		logger.Warn("no JWT secret configured, sessions will not survive a restart")
	}
	if cfg.PasswordHash == "" {
		logger.Warn("no admin password hash configured, admin login is disabled")
	}

	return &Authenticator{
		passwordHash: []byte(cfg.PasswordHash),
		secret:       secret,
		secure:       cfg.SecureCookie,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// HashPassword returns the bcrypt hash to put in the configuration.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the configured hash.
func (a *Authenticator) CheckPassword(password string) bool {
	if len(a.passwordHash) == 0 || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

// IssueToken signs a new admin session token.
func (a *Authenticator) IssueToken() (string, error) {
	now := a.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		Role: roleAdmin,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Validate parses tokenStr, accepting only HS256 admin tokens.
func (a *Authenticator) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != roleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticated reports whether r carries a valid session.
func (a *Authenticator) Authenticated(r *http.Request) bool {
	tokenStr := tokenFromRequest(r)
	if tokenStr == "" {
		return false
	}
	_, err := a.Validate(tokenStr)
	return err == nil
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// SetCookie stores token in the session cookie.
func (a *Authenticator) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secure,
	})
}

// ClearCookie removes the session cookie.
func (a *Authenticator) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secure,
	})
}

// Require rejects requests without a valid session with 401.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authenticated(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
