package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 64 << 10

var (
	// ErrUnsupportedMediaType is returned by DecodeJSON for a body that is
	// not declared as JSON.
	ErrUnsupportedMediaType = errors.New("httpx: content type is not application/json")

	// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds the limit.
	ErrBodyTooLarge = errors.New("httpx: request body too large")
)

// WriteJSON writes v with status code. Responses are never cacheable unless
// the caller set Cache-Control first.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	if w.Header().Get("Cache-Control") == "" {
		NoCache(w)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks a response as sensitive (tokens, introspection results).
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// CacheFor lets shared caches keep a public response for d.
func CacheFor(w http.ResponseWriter, d time.Duration) {
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(d.Seconds())))
	w.Header().Del("Pragma")
}

// DecodeJSON reads at most limit bytes of JSON into v. Numbers are decoded
// as json.Number so amounts are never rounded. An empty body leaves v
// untouched and returns nil; a missing Content-Type is accepted.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return ErrUnsupportedMediaType
		}
	}
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.UseNumber()
	err := dec.Decode(v)

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return ErrBodyTooLarge
	}
	return err
}

// ParseSpaceDelimitedFields splits a space-delimited list such as an OAuth2
// scope parameter. Duplicates are dropped keeping first-seen order; blank
// input yields nil.
func ParseSpaceDelimitedFields(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
