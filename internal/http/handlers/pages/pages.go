// Package pages renders the HTML dashboard, list and login pages.
package pages

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/princekumarofficial/imgbed/internal/cache"
	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/services/media"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/utils/requesturl"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

const (
	ImagesPerPage = 24
	URLsPerPage   = 20

	htmlContentType = "text/html; charset=utf-8"
	timeLayout      = "2006-01-02 15:04"
)

//go:embed templates/*.html
var templateFS embed.FS

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{
		tmpl: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Execute renders the named template into memory.
func (rn *Renderer) Execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := rn.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render writes the named template with status. Nothing is written if
// rendering fails.
func (rn *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	body, err := rn.Execute(name, data)
	if err != nil {
		slog.Error("failed to render page", slog.String("template", name), slog.String("error", err.Error()))
		response.WriteText(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(status)
	w.Write(body)
}

type LoginData struct {
	HasError bool
}

type rootData struct {
	MaxSizeMB int64
}

// Root serves the dashboard through the response cache.
func Root(rn *Renderer, respCache cache.ResponseCache, scheme string, ttl time.Duration, maxSizeMB int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := requesturl.Literal(r, scheme)

		entry, err := respCache.Get(r.Context(), key)
		if err != nil {
			slog.Warn("cache lookup failed", slog.String("url", key), slog.String("error", err.Error()))
		}
		if entry != nil {
			entry.WriteTo(w)
			return
		}

		body, err := rn.Execute("root", rootData{MaxSizeMB: maxSizeMB})
		if err != nil {
			slog.Error("failed to render page", slog.String("template", "root"), slog.String("error", err.Error()))
			response.WriteText(w, http.StatusInternalServerError, "internal server error")
			return
		}

		entry = &cache.Entry{Status: http.StatusOK, ContentType: htmlContentType, Body: body}
		if err := respCache.Put(r.Context(), key, entry, ttl); err != nil {
			slog.Warn("cache store failed", slog.String("url", key), slog.String("error", err.Error()))
		}

		w.Header().Set("Content-Type", htmlContentType)
		w.Header().Set("X-Cache", "MISS")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// Pagination is embedded in every list page.
type Pagination struct {
	Page       int
	TotalPages int
	Total      int64
}

func (p Pagination) PrevPage() int { return p.Page - 1 }
func (p Pagination) NextPage() int { return p.Page + 1 }

// Offset is the row offset of the first item on the page.
func (p Pagination) Offset(perPage int) int { return (p.Page - 1) * perPage }

// ParsePage reads a 1-based page number. Anything non-numeric or below 1 is page 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// NewPagination parses raw and clamps it to the last page, so the offset
// never runs past the end of the list.
func NewPagination(raw string, total int64, perPage int) Pagination {
	p := Pagination{Page: ParsePage(raw), Total: total, TotalPages: TotalPages(total, perPage)}
	if p.Page > p.TotalPages {
		p.Page = p.TotalPages
	}
	return p
}

// TotalPages is max(1, ceil(count/perPage)).
func TotalPages(count int64, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 1
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

type imageItem struct {
	URL      string
	Uploaded string
}

type imagesData struct {
	Pagination
	Items []imageItem
}

// Images lists media records, newest first. Store failures render an empty page.
func Images(rn *Renderer, store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetRequestID(ctx)

		total, err := store.CountMedia(ctx)
		if err != nil {
			slog.Warn("failed to count media", slog.String("request_id", reqID), slog.String("error", err.Error()))
			total = 0
		}

		p := NewPagination(r.URL.Query().Get("page"), total, ImagesPerPage)

		records, err := store.ListMedia(ctx, ImagesPerPage, p.Offset(ImagesPerPage))
		if err != nil {
			slog.Warn("failed to list media", slog.String("request_id", reqID), slog.String("error", err.Error()))
			records = nil
		}

		items := make([]imageItem, 0, len(records))
		for _, rec := range records {
			items = append(items, imageItem{URL: rec.URL, Uploaded: uploadedAt(rec.URL)})
		}

		rn.Render(w, http.StatusOK, "images", imagesData{Pagination: p, Items: items})
	}
}

// uploadedAt recovers the upload time from a timestamp-keyed media URL.
func uploadedAt(url string) string {
	key, _ := media.SplitObjectName(url)
	ms, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(timeLayout)
}

type urlItem struct {
	ShortURL string
	URL      string
	Clicks   int64
	Created  string
}

type urlsData struct {
	Pagination
	Items []urlItem
}

// URLs lists short links by insertion order, newest first.
func URLs(rn *Renderer, store storage.Storage, shortURL func(id string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetRequestID(ctx)

		total, err := store.CountShortURLs(ctx)
		if err != nil {
			slog.Warn("failed to count short urls", slog.String("request_id", reqID), slog.String("error", err.Error()))
			total = 0
		}

		p := NewPagination(r.URL.Query().Get("page"), total, URLsPerPage)

		links, err := store.ListShortURLs(ctx, URLsPerPage, p.Offset(URLsPerPage))
		if err != nil {
			slog.Warn("failed to list short urls", slog.String("request_id", reqID), slog.String("error", err.Error()))
			links = nil
		}

		items := make([]urlItem, 0, len(links))
		for _, l := range links {
			items = append(items, urlItem{
				ShortURL: shortURL(l.ShortID),
				URL:      l.URL,
				Clicks:   l.Clicks,
				Created:  l.CreatedAt.UTC().Format(timeLayout),
			})
		}

		rn.Render(w, http.StatusOK, "urls", urlsData{Pagination: p, Items: items})
	}
}
