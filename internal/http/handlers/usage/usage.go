package usage

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/types"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

type UsageSource interface {
	GetUsage(ctx context.Context) (types.UsageSnapshot, error)
}

// Usage reports current bucket consumption
// @Summary Storage usage
// @Tags usage
// @Produce json
// @Success 200 {object} types.UsageSnapshot
// @Failure 500 {object} response.Response "Metrics lookup failed"
// @Router /r2-usage [get]
func Usage(source UsageSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := source.GetUsage(r.Context())
		if err != nil {
			slog.Error("usage lookup failed",
				slog.String("request_id", middleware.GetRequestID(r.Context())),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.ErrorWithMessage("failed to get R2 usage", err))
			return
		}

		response.WriteJSON(w, http.StatusOK, snap)
	}
}
