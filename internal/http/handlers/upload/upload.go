package upload

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/princekumarofficial/imgbed/internal/http/middleware"
	"github.com/princekumarofficial/imgbed/internal/metrics"
	uploadService "github.com/princekumarofficial/imgbed/internal/services/upload"
	"github.com/princekumarofficial/imgbed/internal/types"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

// FileFields are the accepted multipart field names, in lookup order.
var FileFields = []string{"image", "file"}

const (
	// formOverhead leaves room for multipart boundaries and headers on top of
	// the file itself.
	formOverhead = 1 << 20
	memoryLimit  = 8 << 20
)

// Upload handles multipart uploads
// @Summary Upload a file
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param image formData file false "File (alias: file)"
// @Success 200 {object} types.UploadResponse
// @Failure 400 {object} response.Response "Missing file"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 413 {object} response.Response "File too large"
// @Failure 503 {object} response.Response "Storage quota nearly exhausted"
// @Router /upload [post]
func Upload(svc *uploadService.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			response.WriteJSON(w, http.StatusMethodNotAllowed, response.Error("method not allowed"))
			return
		}

		ctx := r.Context()
		reqID := middleware.GetRequestID(ctx)

		decision := svc.Admit(ctx)
		if decision.Err != nil {
			m.IncQuotaError()
			slog.Warn("usage check failed, admitting upload",
				slog.String("request_id", reqID),
				slog.String("error", decision.Err.Error()))
		}
		if !decision.Allowed {
			m.IncQuotaDenial()
			response.WriteJSON(w, http.StatusServiceUnavailable, response.QuotaExceeded(decision.Snapshot))
			return
		}

		tooLarge := &uploadService.SizeError{LimitBytes: svc.MaxBytes()}

		r.Body = http.MaxBytesReader(w, r.Body, svc.MaxBytes()+formOverhead)
		if err := r.ParseMultipartForm(memoryLimit); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.GeneralError(tooLarge))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(uploadService.ErrMissingFile))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header := formFile(r)
		if file == nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(uploadService.ErrMissingFile))
			return
		}
		defer file.Close()

		url, err := svc.Store(ctx, uploadService.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		})
		if err != nil {
			switch {
			case errors.Is(err, uploadService.ErrFileTooLarge):
				response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.GeneralError(err))
			case errors.Is(err, uploadService.ErrMissingFile):
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			default:
				slog.Error("upload failed", slog.String("request_id", reqID), slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			}
			return
		}

		m.AddUploadBytes(header.Size)
		slog.Info("file uploaded", slog.String("url", url), slog.Int64("size", header.Size), slog.String("request_id", reqID))

		response.WriteJSON(w, http.StatusOK, types.UploadResponse{URL: url, Data: url})
	}
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader) {
	for _, field := range FileFields {
		file, header, err := r.FormFile(field)
		if err == nil {
			return file, header
		}
	}
	return nil, nil
}
