package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// AllowedDrift bounds the difference between the client timestamp and the
// server clock. Nonces are remembered for twice as long so that a payload
// accepted at the edge of the window cannot be replayed either.
const AllowedDrift = 2 * time.Minute

var (
	ErrMissingCiphertext = errors.New("missing ciphertext")
	ErrDecryption        = errors.New("decryption failed")
	ErrTimestampDrift    = errors.New("timestamp drift too large")
	ErrReplay            = errors.New("replay detected")
)

// Credentials is the plaintext of a sealed sign-in request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TS       int64  `json:"ts"`
	Nonce    string `json:"nonce"`
}

// Opener decrypts RSA-OAEP(SHA-256) sealed credentials and enforces the
// freshness rules.
type Opener struct {
	key    *rsa.PrivateKey
	nonces *NonceCache
	now    func() time.Time
}

func NewOpener(key *rsa.PrivateKey) *Opener {
	return &Opener{
		key:    key,
		nonces: NewNonceCache(2 * AllowedDrift),
		now:    time.Now,
	}
}

func (o *Opener) Open(ciphertext string) (*Credentials, error) {
	if ciphertext == "" {
		return nil, ErrMissingCiphertext
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecryption
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, o.key, raw, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil || creds.Email == "" || creds.Password == "" {
		return nil, ErrDecryption
	}

	now := o.now()
	drift := now.Sub(time.UnixMilli(creds.TS))
	if drift < 0 {
		drift = -drift
	}
	if drift > AllowedDrift {
		return nil, ErrTimestampDrift
	}
	if creds.Nonce != "" && !o.nonces.Use(creds.Nonce, now) {
		return nil, ErrReplay
	}
	return &creds, nil
}
