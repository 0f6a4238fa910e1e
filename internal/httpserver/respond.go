package httpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/andrebq/backoffice/internal/logutil"
)

type (
	Message struct {
		Message string `json:"message"`
	}
)

func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Error().Err(err).Msg("Unable to write response body")
	}
}

func WriteMessage(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	WriteJSON(ctx, w, status, Message{Message: msg})
}
