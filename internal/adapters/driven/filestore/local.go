package filestore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Ensure LocalStore implements FileStore
var _ driven.FileStore = (*LocalStore)(nil)

// LocalStore implements FileStore on the local filesystem. Signed URLs are
// HMAC-protected paths served back through the HTTP layer.
type LocalStore struct {
	rootDir    string
	signSecret []byte
	baseURL    string
}

// NewLocalStore creates a file store rooted at rootDir.
// baseURL is the public prefix for signed download URLs.
func NewLocalStore(rootDir, signSecret, baseURL string) (*LocalStore, error) {
	if rootDir == "" {
		return nil, errors.New("root directory is required")
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{
		rootDir:    rootDir,
		signSecret: []byte(signSecret),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload stores the file bytes at the given path
func (s *LocalStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	// Write via temp file so a crash never leaves a partial upload visible
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize file: %w", err)
	}
	return nil
}

// Download retrieves the file bytes at the given path
func (s *LocalStore) Download(ctx context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Remove deletes the file at the given path
func (s *LocalStore) Remove(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// CreateSignedURL returns a time-limited URL for direct file access.
// Format: <base>/files/<path>?expires=<unix>&sig=<hmac>
func (s *LocalStore) CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(path); err != nil {
		return "", err
	}
	expires := time.Now().Add(ttl).Unix()
	sig := s.sign(path, expires)
	return fmt.Sprintf("%s/files/%s?expires=%d&sig=%s", s.baseURL, path, expires, sig), nil
}

// VerifySignature checks a signed URL's signature and expiry.
// Used by the HTTP layer when serving file downloads.
func (s *LocalStore) VerifySignature(path string, expires int64, sig string) error {
	if time.Now().Unix() > expires {
		return fmt.Errorf("%w: url expired", domain.ErrForbidden)
	}
	expected := s.sign(path, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%w: bad signature", domain.ErrForbidden)
	}
	return nil
}

func (s *LocalStore) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.signSecret)
	mac.Write([]byte(path + ":" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// resolve joins path with the root and rejects traversal outside it
func (s *LocalStore) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	full := filepath.Join(s.rootDir, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.rootDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes storage root", domain.ErrInvalidInput)
	}
	return full, nil
}
