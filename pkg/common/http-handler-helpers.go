package common

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
)

const RequestIdHeader = "X-Request-Id"

// RequestId returns the id the caller sent or a fresh one, and echoes it on
// the response.
func RequestId(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(RequestIdHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIdHeader, id)
	return id
}

func JsonHandler(fn func(w http.ResponseWriter, r *http.Request, requestId string, enc jsoncompat.Encoder) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		requestId := RequestId(w, r)
		w.Header().Set("Content-Type", "application/json")
		err := fn(w, r, requestId, jsoncompat.NewEncoder(w))
		if err != nil {
			log.Printf("[%s] error handling %s %s: %v", requestId, r.Method, r.URL.Path, err)
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}

// AllowOrigin sets the CORS header for simple requests.
func AllowOrigin(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
	}
}
