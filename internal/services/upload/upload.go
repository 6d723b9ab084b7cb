// Package upload admits, stores and records uploaded files.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/princekumarofficial/imgbed/internal/services/media"
	"github.com/princekumarofficial/imgbed/internal/services/usage"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/types"
)

// FallbackExt is used for file names without an extension.
const FallbackExt = "bin"

var (
	ErrMissingFile  = errors.New("missing file")
	ErrFileTooLarge = errors.New("file too large")
)

// SizeError reports an upload over the configured limit.
type SizeError struct {
	LimitBytes int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("file exceeds the %dMB size limit", e.LimitBytes/(1024*1024))
}

func (e *SizeError) Is(target error) bool { return target == ErrFileTooLarge }

// UsageSource is satisfied by *usage.Service.
type UsageSource interface {
	GetUsage(ctx context.Context) (types.UsageSnapshot, error)
}

// File is one uploaded file as read from the request.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Service struct {
	blobs    storage.BlobStore
	store    storage.Storage
	usage    UsageSource
	domain   string
	maxBytes int64
	keys     *KeyClock
}

func NewService(blobs storage.BlobStore, store storage.Storage, usageSource UsageSource, domain string, maxBytes int64) *Service {
	return &Service{
		blobs:    blobs,
		store:    store,
		usage:    usageSource,
		domain:   domain,
		maxBytes: maxBytes,
		keys:     NewKeyClock(time.Now),
	}
}

// MaxBytes is the largest accepted file.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Admit runs the quota check. A failed usage lookup admits the upload; the
// failure is carried on the decision for the caller to log.
func (s *Service) Admit(ctx context.Context) usage.Decision {
	snap, err := s.usage.GetUsage(ctx)
	return usage.Evaluate(snap, err, usage.FailOpen)
}

// Store writes f to the blob store, records its public URL and returns it.
func (s *Service) Store(ctx context.Context, f File) (string, error) {
	if f.Body == nil {
		return "", ErrMissingFile
	}
	if f.Size > s.maxBytes {
		return "", &SizeError{LimitBytes: s.maxBytes}
	}

	ext := Extension(f.Name)
	contentType := f.ContentType
	if contentType == "" {
		contentType = media.ContentTypeForExt(ext)
	}

	key := s.keys.Next()
	if err := s.blobs.Put(ctx, key, f.Body, f.Size, contentType); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	url := PublicURL(s.domain, key, ext)
	if err := s.store.InsertMedia(ctx, url); err != nil {
		return "", fmt.Errorf("failed to record media: %w", err)
	}

	return url, nil
}

// PublicURL composes https://{domain}/{key}.{ext}.
func PublicURL(domain, key, ext string) string {
	return fmt.Sprintf("https://%s/%s.%s", domain, key, ext)
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return FallbackExt
	}
	return ext
}

// KeyClock issues millisecond-timestamp storage keys. Keys from one process
// strictly increase, so two uploads in the same millisecond get distinct keys.
type KeyClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewKeyClock(now func() time.Time) *KeyClock {
	return &KeyClock{now: now}
}

func (k *KeyClock) Next() string {
	k.mu.Lock()
	defer k.mu.Unlock()

	ms := k.now().UnixMilli()
	if ms <= k.last {
		ms = k.last + 1
	}
	k.last = ms

	return strconv.FormatInt(ms, 10)
}
