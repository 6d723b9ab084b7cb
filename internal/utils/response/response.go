package response

import (
	"encoding/json"
	"net/http"

	"github.com/princekumarofficial/imgbed/internal/types"
)

// Response is the JSON body of every error and message reply.
type Response struct {
	Error   string               `json:"error,omitempty"`
	Message string               `json:"message,omitempty"`
	Details string               `json:"details,omitempty"`
	Usage   *types.UsageSnapshot `json:"usage,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// WriteText writes a plain-text body.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func GeneralError(err error) Response {
	return Response{
		Error: err.Error(),
	}
}

func Error(msg string) Response {
	return Response{
		Error: msg,
	}
}

// ErrorWithMessage carries a stable error label plus the underlying cause.
func ErrorWithMessage(msg string, err error) Response {
	return Response{
		Error:   msg,
		Message: err.Error(),
	}
}

func ErrorWithDetails(msg string, err error) Response {
	return Response{
		Error:   msg,
		Details: err.Error(),
	}
}

func Message(msg string) Response {
	return Response{
		Message: msg,
	}
}

// QuotaExceeded is the 503 body returned when uploads are refused.
func QuotaExceeded(snap types.UsageSnapshot) Response {
	return Response{
		Error: "storage quota nearly exhausted, uploads are paused",
		Usage: &snap,
	}
}
