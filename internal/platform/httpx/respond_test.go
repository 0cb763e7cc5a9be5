package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quanttiy": 5}`))
	require.Error(t, DecodeJSON(r, &payload))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity": 5}`))
	require.NoError(t, DecodeJSON(r, &payload))
	require.Equal(t, int64(5), payload.Quantity)
}

func TestProblemWritesRFC7807Payload(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusConflict, "Conflict", "payment already verified")

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"title":"Conflict","status":409,"detail":"payment already verified"}`, rec.Body.String())
}
