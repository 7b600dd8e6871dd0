package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nao1215/webkb/internal/config"
	"github.com/nao1215/webkb/internal/crawler"
	"github.com/nao1215/webkb/internal/importer"
)

// errorBody is the body of every failed request. Detail is a message, or an
// object for insufficient-content failures.
type errorBody struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte, pageCount int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if pageCount > 0 {
		w.Header().Set("X-Page-Count", strconv.Itoa(pageCount))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// userMessage maps validation errors to the messages shown to clients.
func userMessage(err error) string {
	switch {
	case errors.Is(err, config.ErrNoStartURL):
		return "URL is required."
	case errors.Is(err, config.ErrInvalidScheme):
		return "Only http(s) URLs are allowed."
	case errors.Is(err, config.ErrBlockedTarget):
		return "Target host is not allowed."
	case errors.Is(err, config.ErrMaxPagesTooLarge):
		return "max_pages cannot exceed 500"
	case errors.Is(err, config.ErrNoURLs):
		return "At least one URL is required."
	case errors.Is(err, config.ErrTooManyURLs):
		return "Provide 200 URLs or fewer."
	case errors.Is(err, crawler.ErrInvalidURL):
		return "Invalid URL."
	case errors.Is(err, importer.ErrNoDocuments):
		return "Uploaded files could not be parsed into documents."
	default:
		return err.Error()
	}
}
