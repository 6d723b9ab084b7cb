package types

import "time"

// MediaRecord is the durable pointer from a public URL to a blob-store key.
type MediaRecord struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// ShortURL maps a short id to its destination.
type ShortURL struct {
	ID        int64     `json:"id"`
	ShortID   string    `json:"short_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Clicks    int64     `json:"clicks"`
}

// UsageSnapshot is a point-in-time read of bucket consumption. It is never persisted.
type UsageSnapshot struct {
	UsedBytes  int64   `json:"usedBytes"`
	LimitBytes int64   `json:"limitBytes"`
	Percent    float64 `json:"percent"`
	HasBucket  bool    `json:"hasBucket"`
}

type Stats struct {
	TotalImages int64 `json:"totalImages"`
	TotalUrls   int64 `json:"totalUrls"`
	TotalClicks int64 `json:"totalClicks"`
}

type ShortenRequest struct {
	URL      string `json:"url" validate:"required,url"`
	CustomID string `json:"customId" validate:"omitempty,max=10,shortid"`
}

type ShortenResponse struct {
	ShortURL    string `json:"shortUrl"`
	ShortID     string `json:"shortId"`
	OriginalURL string `json:"originalUrl"`
}

type UploadResponse struct {
	URL  string `json:"url"`
	Data string `json:"data"`
}
