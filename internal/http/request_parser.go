// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// requestError marks a malformed request, as opposed to data that parsed
// but failed domain validation.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

// ParseNow returns the reference date of the request: the now query
// parameter (YYYY-MM-DD, taken at noon UTC) or the clock.
func ParseNow(query url.Values, clock func() time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get("now"))
	if v == "" {
		return clock(), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, badRequest("invalid now parameter", err)
	}
	return d.Time.Add(12 * time.Hour), nil
}

// ParseMonthParams extracts year and month from query parameters, using
// now's month for the missing ones.
func ParseMonthParams(query url.Values, now time.Time) (core.YearMonth, error) {
	ym := core.YearMonth{Year: now.UTC().Year(), Month: int(now.UTC().Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.YearMonth{}, badRequest("invalid year parameter", err)
		}
		ym.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.YearMonth{}, badRequest("invalid month parameter", err)
		}
		ym.Month = m
	}
	if !ym.Valid() {
		return core.YearMonth{}, badRequest(fmt.Sprintf("invalid period %d-%d", ym.Year, ym.Month), nil)
	}
	return ym, nil
}

// ParseConfirm reports whether the client confirmed a destructive request
// with confirm=true.
func ParseConfirm(query url.Values) bool {
	ok, err := strconv.ParseBool(strings.TrimSpace(query.Get("confirm")))
	return err == nil && ok
}

// DecodeJSON reads a single JSON value from the request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return badRequest("content type must be application/json", nil)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty request body", nil)
		}
		return badRequest("invalid request body", err)
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON value", nil)
	}
	return nil
}

// PathID returns the {id} path value, sanitized.
func PathID(r *http.Request) (string, error) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		return "", badRequest("missing id", nil)
	}
	return id, nil
}
