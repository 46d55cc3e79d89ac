package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
)

func TestClientKeyFromContext(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		userID  string
		want    string
	}{
		{"authenticated subject wins", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "9.9.9.9:1234", "u-42", "user:u-42"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2", "X-Real-IP": "3.3.3.3"}, "9.9.9.9:1234", "", "ip:1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1234", "", "ip:3.3.3.3"},
		{"peer address", nil, "9.9.9.9:1234", "", "ip:9.9.9.9"},
		{"peer without port", nil, "9.9.9.9", "", "ip:9.9.9.9"},
		{"unknown", nil, "", "", "ip:unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/markets", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if tc.userID != "" {
				r = r.WithContext(WithIdentity(r.Context(), &jwtauth.Identity{UserID: tc.userID}, "tok"))
			}
			assert.Equal(t, tc.want, ClientKeyFromContext(r))
		})
	}
}

func TestContextAccessors_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Nil(t, IdentityFromContext(ctx))
	assert.Empty(t, TokenFromContext(ctx))
	assert.Empty(t, UserIDFromContext(ctx))
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Bearer abc":      "abc",
		"bearer  abc ":    "abc",
		"Basic dXNlcjpw":  "",
		"Bearer":          "",
		"Token something": "",
	}
	for header, want := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, extractBearerToken(r), "header %q", header)
	}
}
