package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

// maxJSONBodySize bounds JSON request bodies.
const maxJSONBodySize = 1 << 20 // 1 MiB

// decodeJSONBody decodes the request body into dst. On failure it writes a
// problem response and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		BadRequest(w, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// parsePage reads the page/limit query parameters, falling back to the
// store defaults (page 1, 10 items).
func parsePage(r *http.Request) store.Page {
	page := store.Page{}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Number = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Size = n
		}
	}
	return page
}

// PaginatedResponse is the envelope for all list endpoints.
type PaginatedResponse struct {
	Data        any   `json:"data"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int64 `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// paginatedResponse assembles the list envelope from a page and the total
// row count.
func paginatedResponse(data any, total int64, page store.Page) PaginatedResponse {
	page = page.Normalize()
	totalPages := total / int64(page.Size)
	if total%int64(page.Size) != 0 {
		totalPages++
	}
	return PaginatedResponse{
		Data:        data,
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page.Number,
		PageSize:    page.Size,
	}
}
