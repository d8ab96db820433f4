package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finman/internal/core"
)

// maxBodySize caps request bodies at 1 MB.
const maxBodySize = 1 << 20

// decodeJSON reads the request body into dst, rejecting unknown fields
// and trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected trailing data in request body")
	}
	return nil
}

// pathID parses a numeric path value, e.g. {id} or {user}.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// parseDate parses a YYYY-MM-DD date string.
func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return core.Date{Time: t}, nil
}

// parseMonthPath parses a {month} path value. Both YYYY-MM and
// YYYY-MM-DD are accepted; the result is normalized to the month start.
func parseMonthPath(r *http.Request) (core.Date, error) {
	return parseMonth(r.PathValue("month"))
}

func parseMonth(raw string) (core.Date, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01", raw); err == nil {
		return core.Date{Time: t}, nil
	}
	d, err := parseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid month %q, want YYYY-MM or YYYY-MM-DD", raw)
	}
	return d.MonthStart(), nil
}

// queryInt reads an integer query parameter, returning def when absent
// or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
