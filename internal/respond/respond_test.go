package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSON_WritesStatusHeaderAndBody(t *testing.T) {
	rec := httptest.NewRecorder()

	JSON(rec, http.StatusAccepted, map[string]any{"merchant_uid": "mid_1"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	got := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "mid_1", got["merchant_uid"])
}

func TestErrorWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	ErrorWithDetails(rec, http.StatusBadRequest, "validation_failed", "draft validation failed", []string{
		"buyer_name is required",
		"cart must contain at least one item",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "validation_failed", body.Error)
	require.Len(t, body.Details, 2)
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name   string
		call   func(w http.ResponseWriter, msg string)
		status int
		code   string
	}{
		{"BadRequest", BadRequest, http.StatusBadRequest, "bad_request"},
		{"NotFound", NotFound, http.StatusNotFound, "not_found"},
		{"Conflict", Conflict, http.StatusConflict, "conflict"},
		{"Unprocessable", Unprocessable, http.StatusUnprocessableEntity, "unprocessable"},
		{"BadGateway", BadGateway, http.StatusBadGateway, "bad_gateway"},
		{"Internal", Internal, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.call(rec, "oops")

			require.Equal(t, tt.status, rec.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.code, body.Error)
			require.Equal(t, "oops", body.Message)
		})
	}
}
