package httputil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aurum/pkg/domain-errors"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok)
	})

	t.Run("precondition includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodePrecondition, "product is not in stock"))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "precondition_failed", body["error"])
		assert.Equal(t, "product is not in stock", body["error_description"])
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type intakeRequest struct {
	Barcode string  `json:"barcode" validate:"required"`
	Weight  float64 `json:"weight" validate:"gt=0"`
}

func (r *intakeRequest) Normalize() { r.Barcode = strings.TrimSpace(r.Barcode) }

func (r *intakeRequest) Validate() error {
	if r.Barcode == "FORBIDDEN" {
		return dErrors.New(dErrors.CodeValidation, "barcode is reserved")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	run := func(body string) (*intakeRequest, bool, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
		req, ok := DecodeAndPrepare[intakeRequest](w, r, logger, context.Background(), "req-1")
		return req, ok, w
	}

	t.Run("valid body", func(t *testing.T) {
		req, ok, _ := run(`{"barcode":"  A1 ","weight":10}`)
		require.True(t, ok)
		assert.Equal(t, "A1", req.Barcode)
	})

	t.Run("blank after normalization fails required", func(t *testing.T) {
		_, ok, w := run(`{"barcode":"   ","weight":10}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", decodeBody(t, w)["error"])
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, ok, w := run(`{"barcode":`)
		assert.False(t, ok)
		assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		_, ok, _ := run(`{"barcode":"A1","weight":1,"status":"DELIVERED"}`)
		assert.False(t, ok)
	})

	t.Run("custom validation runs last", func(t *testing.T) {
		_, ok, w := run(`{"barcode":"FORBIDDEN","weight":1}`)
		assert.False(t, ok)
		assert.Equal(t, "barcode is reserved", decodeBody(t, w)["error_description"])
	})
}
