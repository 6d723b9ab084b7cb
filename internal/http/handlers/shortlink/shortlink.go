package shortlink

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/metrics"
	shortlinkService "github.com/princekumarofficial/imgbed/internal/services/shortlink"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/types"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

const maxShortenBody = 64 << 10

// Shorten creates a short link
// @Summary Create a short link
// @Tags shortlinks
// @Accept json
// @Produce json
// @Param request body types.ShortenRequest true "Target URL and optional custom id"
// @Success 200 {object} types.ShortenResponse
// @Failure 400 {object} response.Response "Invalid URL or custom id"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 409 {object} response.Response "Custom id taken"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /shorten [post]
func Shorten(svc *shortlinkService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			response.WriteJSON(w, http.StatusMethodNotAllowed, response.Error("method not allowed"))
			return
		}

		var req types.ShortenRequest

		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxShortenBody)).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(shortlinkService.ErrMissingURL))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Error("invalid request body"))
			return
		}

		res, err := svc.Shorten(r.Context(), req)
		if err != nil {
			status := statusFor(err)
			if status != http.StatusInternalServerError {
				response.WriteJSON(w, status, response.GeneralError(err))
				return
			}

			slog.Error("failed to create short link",
				slog.String("request_id", middleware.GetRequestID(r.Context())),
				slog.String("error", err.Error()))
			if errors.Is(err, shortlinkService.ErrIDSpaceExhausted) {
				response.WriteJSON(w, status, response.GeneralError(err))
				return
			}
			response.WriteJSON(w, status, response.Error("internal server error"))
			return
		}

		slog.Info("short link created", slog.String("short_id", res.ShortID))
		response.WriteJSON(w, http.StatusOK, res)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shortlinkService.ErrMissingURL),
		errors.Is(err, shortlinkService.ErrInvalidURL),
		errors.Is(err, shortlinkService.ErrInvalidCustomID):
		return http.StatusBadRequest
	case errors.Is(err, shortlinkService.ErrCustomIDTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Resolve redirects a short id to its destination. Unknown ids are handed to
// fallback, which looks the full URL up as media.
// @Summary Follow a short link
// @Tags shortlinks
// @Param id path string true "Short id"
// @Success 302 "Redirect to the destination"
// @Failure 404 "Not found"
// @Router /{id} [get]
func Resolve(svc *shortlinkService.Service, fallback http.Handler, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")

		dest, err := svc.Resolve(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			fallback.ServeHTTP(w, r)
			return
		}
		if err != nil {
			slog.Error("short link resolution failed",
				slog.String("short_id", id),
				slog.String("request_id", middleware.GetRequestID(r.Context())),
				slog.String("error", err.Error()))
			response.WriteText(w, http.StatusInternalServerError, "internal server error")
			return
		}

		m.IncRedirect()
		w.Header().Set("Location", dest)
		w.WriteHeader(http.StatusFound)
	}
}
