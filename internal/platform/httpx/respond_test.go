package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorWritesProblem(t *testing.T) {
	cases := map[error]int{
		ErrNotFound:                           http.StatusNotFound,
		fmt.Errorf("entry 9: %w", ErrNotFound): http.StatusNotFound,
		ErrForbidden:                          http.StatusForbidden,
		ErrUnauthorized:                       http.StatusUnauthorized,
		ErrTooManyRequests:                    http.StatusTooManyRequests,
		fmt.Errorf("boom"):                    http.StatusInternalServerError,
	}
	for err, status := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, err)
		require.Equal(t, status, rec.Code, err.Error())
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		require.Equal(t, status, problem.Status)
		require.Equal(t, "about:blank", problem.Type)
		if status == http.StatusInternalServerError {
			require.Empty(t, problem.Detail)
		} else {
			require.Equal(t, err.Error(), problem.Detail)
		}
	}
}

func TestJSONDisablesCaching(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"entry_id": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"entry_id":7}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dest struct {
		Reference string `json:"reference"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reference":"INV-1"}`))
	require.NoError(t, DecodeJSON(req, &dest))
	require.Equal(t, "INV-1", dest.Reference)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reference":"a"}{"reference":"b"}`))
	require.Error(t, DecodeJSON(req, &dest))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reference":"`+strings.Repeat("x", MaxBodyBytes)+`"}`))
	require.Error(t, DecodeJSON(req, &dest))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	require.Error(t, DecodeJSON(req, &dest))
}
