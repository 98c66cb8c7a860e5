package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusConflict, "OCC_CONFLICT", "duplicate", map[string]string{"request_id": "r-1"}))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "OCC_CONFLICT", env.Code)
	require.Equal(t, "duplicate", env.Message)
	require.Equal(t, "r-1", env.Meta["request_id"])
}

func TestWriteErrorOmitsEmptyMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusBadRequest, "X", "y", map[string]string{}))
	require.NotContains(t, rec.Body.String(), "meta")
}

func TestWriteJSONWithoutPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusNoContent, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	require.NoError(t, WriteJSON(nil, http.StatusOK, "ignored"))
}

func TestWriteJSONEncodeFailureWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})
	require.ErrorIs(t, err, ErrEncode)
	require.False(t, rec.Flushed)
	require.Empty(t, rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Body.String())

	require.NoError(t, WriteError(rec, http.StatusInternalServerError, "OCC_INTERNAL", "internal server error", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
