package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictpesa/predictpesa-api/internal/testutil"
)

func panicking() http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom: secret detail")
	})
}

func TestRecover(t *testing.T) {
	cases := []struct {
		name  string
		debug bool
		want  map[string]string
	}{
		{"production", false, map[string]string{"error": "Internal server error", "message": "An unexpected error occurred"}},
		{"debug", true, map[string]string{"error": "Internal server error", "detail": "boom: secret detail", "type": "string"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger := testutil.NewMockLogger()
			h := RequestID(logger)(Recover(tc.debug)(panicking()))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/markets/create", nil))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.want, body)

			msgs := logger.Filter("error", "Unhandled panic")
			require.Len(t, msgs, 1)
			assert.Equal(t, w.Header().Get(RequestIDHeader), msgs[0].Field("request_id"))
			assert.NotEmpty(t, msgs[0].Field("stack"))
		})
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	w := httptest.NewRecorder()
	Recover(false)(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
