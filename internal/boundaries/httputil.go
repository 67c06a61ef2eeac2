package boundaries

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
)

// Meta is the pagination envelope every list response carries.
type Meta struct {
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	TotalCount int64   `json:"total_count"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
}

// Envelope is the wire shape of a list response.
type Envelope struct {
	Meta    Meta                     `json:"meta"`
	Objects []map[string]interface{} `json:"objects"`
}

// Callback names are restricted to plain identifiers so a JSONP response
// can never smuggle script.
var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// writeJSON serializes v as JSON, or as a JSONP function invocation when
// the request carries a callback parameter. Formats are negotiated by
// query parameter, not Accept headers.
func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	callback := r.URL.Query().Get("callback")
	if callback == "" && r.URL.Query().Get("format") == "jsonp" {
		callback = "callback"
	}

	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("[writeJSON] marshal err=%v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if callback != "" {
		if !callbackPattern.MatchString(callback) {
			http.Error(w, "Invalid callback parameter", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/javascript")
		fmt.Fprintf(w, "%s(%s)", callback, body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// writeError maps the error taxonomy onto HTTP statuses: bad filters 400,
// unknown slugs 404, everything else a logged 500 with no internal detail
// leaked to the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidFilter), errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("[api] internal err=%v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// parsePagination reads limit/offset query parameters with tastypie-style
// defaults and bounds.
func parsePagination(q url.Values) (limit, offset int, err error) {
	limit = defaultLimit
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("%w: limit=%q", ErrInvalidFilter, v)
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset=%q", ErrInvalidFilter, v)
		}
	}
	return limit, offset, nil
}

// pageMeta builds pagination metadata. Next/previous are path+query links
// relative to the service root.
func pageMeta(r *http.Request, limit, offset int, total int64) Meta {
	meta := Meta{Limit: limit, Offset: offset, TotalCount: total}

	link := func(off int) *string {
		q := r.URL.Query()
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(off))
		u := r.URL.Path + "?" + q.Encode()
		return &u
	}

	if int64(offset+limit) < total {
		meta.Next = link(offset + limit)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		meta.Previous = link(prev)
	}
	return meta
}
