package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalRoutePrefix is where signed local download links are served
const LocalRoutePrefix = "/storage/local/"

const localAudience = "local-storage"

// ErrInvalidSignature is returned for expired, tampered or mismatched download tokens
var ErrInvalidSignature = errors.New("invalid or expired download link")

// LocalStorage serves files from the local filesystem through signed, expiring links
type LocalStorage struct {
	basePath      string
	publicBaseURL string
	signingKey    []byte
	now           func() time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath, publicBaseURL, signingKey string) (*LocalStorage, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("local storage requires a signing key")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		signingKey:    []byte(signingKey),
		now:           time.Now,
	}, nil
}

// resolve maps a storage path to a file under basePath, rejecting traversal
func (s *LocalStorage) resolve(storagePath string) (string, error) {
	clean := path.Clean("/" + storagePath)
	if clean == "/" {
		return "", ErrObjectNotFound
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean[1:])), nil
}

// Open opens a file from local storage
func (s *LocalStorage) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// PresignURL signs storagePath into a link under LocalRoutePrefix that expires after ttl
func (s *LocalStorage) PresignURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   storagePath,
		Audience:  jwt.ClaimStrings{localAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign download link: %w", err)
	}

	escaped := (&url.URL{Path: storagePath}).EscapedPath()
	return s.publicBaseURL + LocalRoutePrefix + strings.TrimLeft(escaped, "/") + "?token=" + url.QueryEscape(token), nil
}

// Verify checks a download token against the requested storage path
func (s *LocalStorage) Verify(storagePath, token string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(localAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.Subject != storagePath {
		return ErrInvalidSignature
	}
	return nil
}
