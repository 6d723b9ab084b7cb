// Package shortlink creates and resolves short URL mappings.
package shortlink

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/types"
)

const (
	// MaxIDLength bounds custom ids and is the path length the router treats
	// as a possible short id.
	MaxIDLength = 10
	// GeneratedIDLength is the length of random ids.
	GeneratedIDLength = 6
	// MaxAttempts bounds random id generation on collision.
	MaxAttempts = 10

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrMissingURL       = errors.New("missing url parameter")
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrInvalidCustomID  = errors.New("custom id may only contain letters, digits, underscores and hyphens, and be at most 10 characters")
	ErrCustomIDTaken    = errors.New("custom id already exists")
	ErrIDSpaceExhausted = errors.New("failed to generate short link, please retry")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id is an acceptable short id.
func ValidID(id string) bool {
	return len(id) > 0 && len(id) <= MaxIDLength && idPattern.MatchString(id)
}

type Service struct {
	storage  storage.Storage
	domain   string
	validate *validator.Validate
	newID    func() (string, error)
	now      func() time.Time
}

func NewService(store storage.Storage, domain string) *Service {
	validate := validator.New()
	validate.RegisterValidation("shortid", func(fl validator.FieldLevel) bool {
		return ValidID(fl.Field().String())
	})

	return &Service{
		storage:  store,
		domain:   domain,
		validate: validate,
		newID:    func() (string, error) { return GenerateID(GeneratedIDLength) },
		now:      time.Now,
	}
}

// ShortURL composes the public short URL for id.
func (s *Service) ShortURL(id string) string {
	return fmt.Sprintf("https://%s/%s", s.domain, id)
}

// Shorten validates req and persists a new mapping. The store's uniqueness
// constraint decides collisions, so concurrent requests for the same custom
// id cannot both succeed.
func (s *Service) Shorten(ctx context.Context, req types.ShortenRequest) (types.ShortenResponse, error) {
	if err := s.validateRequest(req); err != nil {
		return types.ShortenResponse{}, err
	}

	var (
		id  string
		err error
	)
	if req.CustomID != "" {
		id, err = s.createCustom(ctx, req.CustomID, req.URL)
	} else {
		id, err = s.createGenerated(ctx, req.URL)
	}
	if err != nil {
		return types.ShortenResponse{}, err
	}

	return types.ShortenResponse{
		ShortURL:    s.ShortURL(id),
		ShortID:     id,
		OriginalURL: req.URL,
	}, nil
}

func (s *Service) validateRequest(req types.ShortenRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	for _, fe := range ve {
		switch {
		case fe.Field() == "URL" && fe.Tag() == "required":
			return ErrMissingURL
		case fe.Field() == "URL":
			return ErrInvalidURL
		case fe.Field() == "CustomID":
			return ErrInvalidCustomID
		}
	}

	return err
}

func (s *Service) createCustom(ctx context.Context, id, url string) (string, error) {
	err := s.storage.CreateShortURL(ctx, types.ShortURL{ShortID: id, URL: url, CreatedAt: s.now().UTC()})
	if errors.Is(err, storage.ErrDuplicate) {
		return "", ErrCustomIDTaken
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// createGenerated retries only on ErrDuplicate; any other failure aborts.
func (s *Service) createGenerated(ctx context.Context, url string) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("failed to generate short id: %w", err)
		}

		err = s.storage.CreateShortURL(ctx, types.ShortURL{ShortID: id, URL: url, CreatedAt: s.now().UTC()})
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			return "", err
		}
	}

	return "", ErrIDSpaceExhausted
}

// Resolve returns the destination for id and counts the click. The increment
// happens before the caller redirects and is not rolled back on failure.
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	link, err := s.storage.GetShortURL(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.storage.IncrementClicks(ctx, id); err != nil {
		return "", err
	}

	return link.URL, nil
}

// GenerateID returns a random alphanumeric id of the given length.
func GenerateID(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))

	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = alphabet[n.Int64()]
	}

	return string(result), nil
}
