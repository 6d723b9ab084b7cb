package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/princekumarofficial/imgbed/internal/cache"
	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	mediaService "github.com/princekumarofficial/imgbed/internal/services/media"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/utils/requesturl"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

const (
	notFoundBody     = "resource not found"
	blobMissingBody  = "failed to load file content"
	maxDeleteBody    = 1 << 20
	textContentType  = "text/plain; charset=utf-8"
	dispositionValue = "inline"
)

type MediaHandlers struct {
	store       storage.Storage
	blobs       storage.BlobStore
	cache       cache.ResponseCache
	scheme      string
	ttl         time.Duration
	notFoundTTL time.Duration
}

// NewMediaHandlers creates a new media handlers instance
func NewMediaHandlers(store storage.Storage, blobs storage.BlobStore, respCache cache.ResponseCache, scheme string, ttl, notFoundTTL time.Duration) *MediaHandlers {
	if respCache == nil {
		respCache = cache.Nop{}
	}
	return &MediaHandlers{
		store:       store,
		blobs:       blobs,
		cache:       respCache,
		scheme:      scheme,
		ttl:         ttl,
		notFoundTTL: notFoundTTL,
	}
}

// Fetch serves a media file by the literal request URL
// @Summary Fetch a media file
// @Tags media
// @Produce octet-stream
// @Success 200 "File bytes"
// @Failure 404 "Not found"
// @Router /img/{file} [get]
func (h *MediaHandlers) Fetch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetRequestID(ctx)
		url := requesturl.Literal(r, h.scheme)

		entry, err := h.cache.Get(ctx, url)
		if err != nil {
			slog.Warn("cache lookup failed", slog.String("url", url), slog.String("request_id", reqID), slog.String("error", err.Error()))
		}
		if entry != nil {
			entry.WriteTo(w)
			return
		}

		exists, err := h.store.MediaExists(ctx, url)
		if err != nil {
			slog.Error("media lookup failed", slog.String("url", url), slog.String("request_id", reqID), slog.String("error", err.Error()))
			response.WriteText(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !exists {
			h.put(r, url, &cache.Entry{Status: http.StatusNotFound, ContentType: textContentType, Body: []byte(notFoundBody)}, h.notFoundTTL)
			response.WriteText(w, http.StatusNotFound, notFoundBody)
			return
		}

		key, ext := mediaService.SplitObjectName(url)
		obj, err := h.blobs.Get(ctx, key)
		if err != nil {
			slog.Error("blob read failed", slog.String("key", key), slog.String("request_id", reqID), slog.String("error", err.Error()))
			response.WriteText(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if obj == nil {
			response.WriteText(w, http.StatusNotFound, blobMissingBody)
			return
		}
		defer obj.Body.Close()

		contentType := mediaService.ContentTypeForExt(ext)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", dispositionValue)
		w.Header().Set("X-Cache", "MISS")

		if obj.Size < 0 || obj.Size > cache.MaxBodySize {
			if obj.Size >= 0 {
				w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
			}
			w.WriteHeader(http.StatusOK)
			io.Copy(w, obj.Body)
			return
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, obj.Body); err != nil {
			slog.Error("blob read failed", slog.String("key", key), slog.String("request_id", reqID), slog.String("error", err.Error()))
			response.WriteText(w, http.StatusInternalServerError, "internal server error")
			return
		}

		h.put(r, url, &cache.Entry{
			Status:      http.StatusOK,
			ContentType: contentType,
			Headers:     map[string]string{"Content-Disposition": dispositionValue},
			Body:        buf.Bytes(),
		}, h.ttl)

		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

func (h *MediaHandlers) put(r *http.Request, url string, e *cache.Entry, ttl time.Duration) {
	if err := h.cache.Put(r.Context(), url, e, ttl); err != nil {
		slog.Warn("cache store failed",
			slog.String("url", url),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()))
	}
}

// DeleteImages removes media records, their blobs and cached responses
// @Summary Delete media files
// @Tags media
// @Accept json
// @Produce json
// @Param urls body []string true "Public media URLs"
// @Success 200 {object} response.Response "Deleted"
// @Failure 400 {object} response.Response "Empty list"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "Nothing matched"
// @Failure 500 {object} response.Response "Delete failed"
// @Router /delete-images [post]
func (h *MediaHandlers) DeleteImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			response.WriteText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		ctx := r.Context()
		reqID := middleware.GetRequestID(ctx)

		var urls []string
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDeleteBody)).Decode(&urls)
		if err != nil && !errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.Message("request body must be a JSON array of URLs"))
			return
		}
		if len(urls) == 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.Message("no items to delete"))
			return
		}

		deleted, err := h.store.DeleteMedia(ctx, urls)
		if err != nil {
			slog.Error("media delete failed", slog.String("request_id", reqID), slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.ErrorWithDetails("delete failed", err))
			return
		}
		if deleted == 0 {
			response.WriteJSON(w, http.StatusNotFound, response.Message("no matching items found"))
			return
		}

		for _, url := range urls {
			if err := h.cache.Delete(ctx, url); err != nil {
				slog.Warn("cache delete failed", slog.String("url", url), slog.String("request_id", reqID), slog.String("error", err.Error()))
			}

			key, _ := mediaService.SplitObjectName(url)
			if err := h.blobs.Delete(ctx, key); err != nil {
				slog.Warn("blob delete failed", slog.String("key", key), slog.String("request_id", reqID), slog.String("error", err.Error()))
			}
		}

		slog.Info("media deleted", slog.Int64("rows", deleted), slog.Int("requested", len(urls)), slog.String("request_id", reqID))
		response.WriteJSON(w, http.StatusOK, response.Message("deleted successfully"))
	}
}
