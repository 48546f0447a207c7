// Package httpx provides JSON response utilities for the portal API.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Page is the pagination envelope shared by every list endpoint.
type Page struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  any `json:"results"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Paginated wraps items in the standard envelope. Results is never null.
func Paginated(items any, total, page, pageSize int) Page {
	if items == nil {
		items = []any{}
	}
	return Page{Count: total, Page: page, PageSize: pageSize, Results: items}
}

// Detail sends a {"detail": ...} body, the shape used for every non-2xx
// message and for simple acknowledgements.
func Detail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}

// Message sends a {"message": ...} acknowledgement body.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
