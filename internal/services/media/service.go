package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrPhotoTooBig = errors.New("photo exceeds size limit")
	ErrUnsupported = errors.New("unsupported photo type")
)

const (
	signedURLTTL = 15 * time.Minute
	MaxPhotoSize = 10 << 20
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service stores photo evidence attached to incident reports and hands
// out short-lived signed links for the map client.
type Service struct {
	storage ObjectStorage
	now     func() time.Time
}

type Photo struct {
	Key string
	URL string
}

func NewService(storage ObjectStorage) *Service {
	return &Service{storage: storage, now: time.Now}
}

func (s *Service) UploadEvidence(ctx context.Context, userID int64, fileName, contentType string, body io.Reader, size int64) (Photo, error) {
	if userID <= 0 || body == nil || size <= 0 {
		return Photo{}, ErrValidation
	}
	if size > MaxPhotoSize {
		return Photo{}, ErrPhotoTooBig
	}
	contentType = strings.TrimSpace(contentType)
	if !allowedContentTypes[contentType] {
		return Photo{}, ErrUnsupported
	}
	if s.storage == nil {
		return Photo{}, fmt.Errorf("object storage is not configured")
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Photo{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key, err := buildEvidenceKey(userID, fileName, s.now())
	if err != nil {
		return Photo{}, fmt.Errorf("build object key: %w", err)
	}

	if err := s.storage.PutObject(ctx, key, body, size, contentType); err != nil {
		return Photo{}, fmt.Errorf("put object: %w", err)
	}

	url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return Photo{}, fmt.Errorf("presign photo url: %w", err)
	}

	return Photo{Key: key, URL: url}, nil
}

// SignedURL re-issues a fresh link for a stored photo.
func (s *Service) SignedURL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrValidation
	}
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign photo url: %w", err)
	}
	return url, nil
}

// DeleteEvidence removes the object when its post is purged.
func (s *Service) DeleteEvidence(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if s.storage == nil {
		return nil
	}
	return s.storage.Delete(ctx, key)
}

func buildEvidenceKey(userID int64, fileName string, now time.Time) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".jpg"
	}

	stamp := now.UTC().Format("20060102T150405")
	return fmt.Sprintf("evidence/%d/%s_%s%s", userID, stamp, hex.EncodeToString(rnd), ext), nil
}
