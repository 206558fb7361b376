package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/x/1").
		Data(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if loc := w.Header().Get("Location"); loc != "/api/x/1" {
		t.Errorf("Location = %q", loc)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"n":1}` {
		t.Errorf("Body = %q", body)
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Data("ignored").Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d with body %q", w.Code, w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data(func() {}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("x"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("x"), http.StatusNotFound},
		{"conflict", ConflictError("x"), http.StatusConflict},
		{"internal", InternalServerError("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			if body := strings.TrimSpace(w.Body.String()); body != `{"error":"x"}` {
				t.Errorf("Body = %q", body)
			}
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("card %q: %w", "c1", services.ErrNotFound), http.StatusNotFound},
		{"delete virtual", services.ErrDeleteVirtual, http.StatusConflict},
		{"save virtual", services.ErrVirtualTransaction, http.StatusConflict},
		{"validation", fmt.Errorf("invalid transaction: %w", core.ErrIncomeRequiresAccount), http.StatusUnprocessableEntity},
		{"amount", core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{"malformed request", badRequest("invalid request body", core.ErrInvalidDate), http.StatusBadRequest},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForError(tt.err); got != tt.want {
				t.Errorf("StatusForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorFor_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorFor(errors.New("sqlite: database is locked")).Write(w)

	if strings.Contains(w.Body.String(), "sqlite") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	ErrorFor(core.ErrEmptyDescription).Write(w)
	if !strings.Contains(w.Body.String(), core.ErrEmptyDescription.Error()) {
		t.Fatalf("validation message missing: %s", w.Body.String())
	}
}
