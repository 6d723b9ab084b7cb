// Package memory provides process-local implementations of the storage
// interfaces for development and tests.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/types"
)

type Store struct {
	mu        sync.Mutex
	nextID    int64
	media     map[string]types.MediaRecord
	shortURLs map[string]types.ShortURL
}

func NewStore() *Store {
	return &Store{
		media:     make(map[string]types.MediaRecord),
		shortURLs: make(map[string]types.ShortURL),
	}
}

func (s *Store) InsertMedia(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.media[url]; ok {
		return nil
	}
	s.nextID++
	s.media[url] = types.MediaRecord{ID: s.nextID, URL: url, CreatedAt: time.Now().UTC()}
	return nil
}

func (s *Store) MediaExists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.media[url]
	return ok, nil
}

func (s *Store) DeleteMedia(_ context.Context, urls []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, u := range urls {
		if _, ok := s.media[u]; ok {
			delete(s.media, u)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListMedia(_ context.Context, limit, offset int) ([]types.MediaRecord, error) {
	s.mu.Lock()
	records := make([]types.MediaRecord, 0, len(s.media))
	for _, m := range s.media {
		records = append(records, m)
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].URL > records[j].URL })
	return page(records, limit, offset), nil
}

func (s *Store) CountMedia(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.media)), nil
}

func (s *Store) CreateShortURL(_ context.Context, u types.ShortURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shortURLs[u.ShortID]; ok {
		return storage.ErrDuplicate
	}
	s.nextID++
	u.ID = s.nextID
	u.Clicks = 0
	s.shortURLs[u.ShortID] = u
	return nil
}

func (s *Store) GetShortURL(_ context.Context, shortID string) (types.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.shortURLs[shortID]
	if !ok {
		return types.ShortURL{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) IncrementClicks(_ context.Context, shortID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.shortURLs[shortID]
	if !ok {
		return storage.ErrNotFound
	}
	u.Clicks++
	s.shortURLs[shortID] = u
	return nil
}

func (s *Store) ListShortURLs(_ context.Context, limit, offset int) ([]types.ShortURL, error) {
	s.mu.Lock()
	urls := make([]types.ShortURL, 0, len(s.shortURLs))
	for _, u := range s.shortURLs {
		urls = append(urls, u)
	}
	s.mu.Unlock()

	sort.Slice(urls, func(i, j int) bool { return urls[i].ID > urls[j].ID })
	return page(urls, limit, offset), nil
}

func (s *Store) CountShortURLs(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.shortURLs)), nil
}

func (s *Store) TotalClicks(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, u := range s.shortURLs {
		total += u.Clicks
	}
	return total, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 || limit <= 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type blob struct {
	data        []byte
	contentType string
}

// BlobStore keeps objects in memory.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string]blob)}
}

func (b *BlobStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.objects[key] = blob{data: data, contentType: contentType}
	b.mu.Unlock()
	return nil
}

func (b *BlobStore) Get(_ context.Context, key string) (*storage.Object, error) {
	b.mu.RLock()
	obj, ok := b.objects[key]
	b.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

func (b *BlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()
	return nil
}

// Has reports whether key is stored.
func (b *BlobStore) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[key]
	return ok
}
