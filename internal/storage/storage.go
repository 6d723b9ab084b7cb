package storage

import (
	"context"
	"errors"
	"io"

	"github.com/princekumarofficial/imgbed/internal/types"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Storage is the relational store for media records and short URL mappings.
type Storage interface {
	// InsertMedia records url. Inserting a url that already exists is a no-op.
	InsertMedia(ctx context.Context, url string) error
	MediaExists(ctx context.Context, url string) (bool, error)
	// DeleteMedia removes the given urls and returns the number of rows deleted.
	DeleteMedia(ctx context.Context, urls []string) (int64, error)
	ListMedia(ctx context.Context, limit, offset int) ([]types.MediaRecord, error)
	CountMedia(ctx context.Context) (int64, error)

	// CreateShortURL returns ErrDuplicate when the short id is taken.
	CreateShortURL(ctx context.Context, s types.ShortURL) error
	// GetShortURL returns ErrNotFound for unknown ids.
	GetShortURL(ctx context.Context, shortID string) (types.ShortURL, error)
	IncrementClicks(ctx context.Context, shortID string) error
	ListShortURLs(ctx context.Context, limit, offset int) ([]types.ShortURL, error)
	CountShortURLs(ctx context.Context) (int64, error)
	TotalClicks(ctx context.Context) (int64, error)
}

// Object is an open blob. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// BlobStore keeps uploaded file bytes keyed by an opaque storage key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns nil and no error when the key does not exist.
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}
