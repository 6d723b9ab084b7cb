package stats

import (
	"log/slog"
	"net/http"

	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/types"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

// Stats returns aggregate counts
// @Summary Aggregate counts
// @Tags stats
// @Produce json
// @Success 200 {object} types.Stats
// @Router /stats [get]
func Stats(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := collect(r, store)
		if err != nil {
			slog.Error("failed to collect stats, reporting zeros",
				slog.String("request_id", middleware.GetRequestID(r.Context())),
				slog.String("error", err.Error()))
			stats = types.Stats{}
		}

		response.WriteJSON(w, http.StatusOK, stats)
	}
}

func collect(r *http.Request, store storage.Storage) (types.Stats, error) {
	ctx := r.Context()
	var (
		s   types.Stats
		err error
	)

	if s.TotalImages, err = store.CountMedia(ctx); err != nil {
		return types.Stats{}, err
	}
	if s.TotalUrls, err = store.CountShortURLs(ctx); err != nil {
		return types.Stats{}, err
	}
	if s.TotalClicks, err = store.TotalClicks(ctx); err != nil {
		return types.Stats{}, err
	}

	return s, nil
}
