package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantTitle  string
	}{
		{"not found", ErrNotFound, http.StatusNotFound, "Not Found"},
		{"duplicate", ErrDuplicate, http.StatusConflict, "Duplicate"},
		{"validation", ErrValidation, http.StatusBadRequest, "Validation Failed"},
		{"wrapped sentinel", fmt.Errorf("accounts: %w", ErrNotFound), http.StatusNotFound, "Not Found"},
		{"unknown", errors.New("pool exhausted"), http.StatusInternalServerError, "Internal Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			require.Equal(t, tc.wantStatus, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			require.Contains(t, rec.Body.String(), tc.wantTitle)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.1")
}
