// Package auth issues JWT sessions for users with a password, either from
// plain JSON credentials or from the sealed payload of the sign-in proxy.
package auth

import (
	"context"
	"crypto/rsa"
	"crypto/sha1"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-pkgz/auth/v2/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/krishkalaria12/art-curator/database"
	"github.com/krishkalaria12/art-curator/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	Issuer         = "art-curator"
	Audience       = "art-curator-app"
	minPasswordLen = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrProxyDisabled      = errors.New("sign-in proxy is not configured")
)

type UserStore interface {
	FindUser(ctx context.Context, email string) (*models.User, error)
	SetPassword(ctx context.Context, email, hash string) error
}

type Options struct {
	Users         UserStore
	Secret        string
	TokenDuration time.Duration
	// PrivateKey enables the sign-in proxy. It may be nil.
	PrivateKey *rsa.PrivateKey
}

// Session is returned on a successful sign-in.
type Session struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   int64      `json:"expires_at"`
	User        token.User `json:"user"`
}

type Service struct {
	users    UserStore
	tokens   *token.Service
	opener   *Opener
	duration time.Duration
	now      func() time.Time
}

func NewService(opts Options) *Service {
	secret := opts.Secret
	tokens := token.NewService(token.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return secret, nil
		}),
		TokenDuration:  opts.TokenDuration,
		CookieDuration: opts.TokenDuration,
		Issuer:         Issuer,
		DisableXSRF:    true,
	})

	s := &Service{
		users:    opts.Users,
		tokens:   tokens,
		duration: opts.TokenDuration,
		now:      time.Now,
	}
	if opts.PrivateKey != nil {
		s.opener = NewOpener(opts.PrivateKey)
	}
	return s
}

// ProxySignIn opens a sealed credentials payload and signs the user in.
func (s *Service) ProxySignIn(ctx context.Context, ciphertext string) (*Session, error) {
	if s.opener == nil {
		return nil, ErrProxyDisabled
	}
	creds, err := s.opener.Open(ciphertext)
	if err != nil {
		return nil, err
	}
	return s.SignIn(ctx, creds.Email, creds.Password)
}

// SignIn checks the password of email and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindUser(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == nil || !checkPasswordHash(password, *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user.Email)
}

// Register attaches a password to email. Users created implicitly by an
// upload keep their history.
func (s *Service) Register(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if !isEmail(email) {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}
	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.SetPassword(ctx, email, hash)
}

// Parse validates a session token and returns its claims.
func (s *Service) Parse(tokenStr string) (token.Claims, error) {
	return s.tokens.Parse(tokenStr)
}

func (s *Service) issue(email string) (*Session, error) {
	now := s.now()
	expires := now.Add(s.duration)
	user := token.User{
		ID:    "local_" + token.HashID(sha1.New(), email),
		Name:  email,
		Email: email,
	}
	claims := token.Claims{
		User: &user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  []string{Audience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
	tokenStr, err := s.tokens.Token(claims)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{
		AccessToken: tokenStr,
		TokenType:   "bearer",
		ExpiresAt:   expires.Unix(),
		User:        user,
	}, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isEmail(identity string) bool {
	addr, err := mail.ParseAddress(identity)
	return err == nil && addr.Address == identity
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// ClientMessage maps sign-in errors to the text shown to clients. The second
// result is false for errors that are not the client's fault.
func ClientMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrMissingCiphertext):
		return "Missing ciphertext", true
	case errors.Is(err, ErrDecryption):
		return "Decryption failed", true
	case errors.Is(err, ErrTimestampDrift):
		return "Timestamp drift too large", true
	case errors.Is(err, ErrReplay):
		return "Replay detected", true
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid login credentials", true
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email address", true
	case errors.Is(err, ErrWeakPassword):
		return fmt.Sprintf("Password must be at least %d characters", minPasswordLen), true
	}
	return "", false
}
