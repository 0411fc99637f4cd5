package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// SignedURLSigner issues tamper-proof download tokens binding a subject
// (for example an enrollment id) to a resource name (for example a receipt number).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a URL-safe token of the form subject.expiry.resource.signature.
func (s *SignedURLSigner) Generate(subject, resource string) (string, time.Time, error) {
	if subject == "" || resource == "" {
		return "", time.Time{}, fmt.Errorf("subject and resource required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	parts := []string{
		encode(subject),
		strconv.FormatInt(expiresAt.Unix(), 10),
		encode(resource),
	}
	parts = append(parts, s.sign(parts))
	return strings.Join(parts, "."), expiresAt, nil
}

// Parse validates a token and returns the embedded subject and resource.
func (s *SignedURLSigner) Parse(token string) (subject, resource string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(s.sign(parts[:3])), []byte(parts[3])) {
		return "", "", time.Time{}, ErrInvalidToken
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	subjectRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	resourceRaw, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	expiresAt = time.Unix(exp, 0).UTC()
	if s.now().After(expiresAt) {
		return "", "", expiresAt, ErrTokenExpired
	}
	return string(subjectRaw), string(resourceRaw), expiresAt, nil
}

func (s *SignedURLSigner) sign(parts []string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func encode(value string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}
