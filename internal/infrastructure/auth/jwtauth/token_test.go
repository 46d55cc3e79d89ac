package jwtauth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

const testSecret = "unit-test-secret"

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SecretKey:              testSecret,
		Algorithm:              "HS256",
		AccessTokenTTL:         30 * time.Minute,
		IdentityCacheTTL:       300 * time.Second,
		BlacklistRetryAttempts: 3,
	}
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(testAuthConfig())
	require.NoError(t, err)
	return iss
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(testAuthConfig())
	require.NoError(t, err)
	return v
}

func signMap(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestIssueAndValidate(t *testing.T) {
	token, exp, err := newTestIssuer(t).Issue(Identity{UserID: "u-1", Email: "a@predictpesa.com", Role: "oracle", IsVerified: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := newTestValidator(t).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "a@predictpesa.com", claims.Email)
	assert.Equal(t, "oracle", claims.Role)
	assert.True(t, claims.IsVerified)
}

func TestIssue_BackToBackTokensDiffer(t *testing.T) {
	iss := newTestIssuer(t)
	id := Identity{UserID: "u-1", Email: "a@predictpesa.com", Role: "user"}

	first, _, err := iss.Issue(id)
	require.NoError(t, err)
	second, _, err := iss.Issue(id)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	v := newTestValidator(t)
	c1, err := v.Validate(first)
	require.NoError(t, err)
	c2, err := v.Validate(second)
	require.NoError(t, err)
	assert.NotEmpty(t, c1.ID)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestIssue_DefaultsRoleAndRequiresSubject(t *testing.T) {
	iss := newTestIssuer(t)

	token, _, err := iss.Issue(Identity{UserID: "u-2"})
	require.NoError(t, err)
	claims, err := newTestValidator(t).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, claims.Role)

	_, _, err = iss.Issue(Identity{Email: "nobody@predictpesa.com"})
	assert.ErrorIs(t, err, ErrTokenNoSubject)
}

func TestNewIssuer_RejectsBadConfig(t *testing.T) {
	cfg := testAuthConfig()
	cfg.SecretKey = ""
	_, err := NewIssuer(cfg)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	cfg = testAuthConfig()
	cfg.Algorithm = "RS256"
	_, err = NewValidator(cfg)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestValidate_Failures(t *testing.T) {
	v := newTestValidator(t)
	future := time.Now().Add(time.Hour).Unix()

	expired, _, err := newTestIssuer(t).IssueWithTTL(Identity{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		want  *errors.AppError
	}{
		{"empty", "", ErrTokenMissing},
		{"expired", expired, ErrTokenExpired},
		{"wrong secret", signMap(t, jwt.SigningMethodHS256, "other-secret", jwt.MapClaims{"sub": "u-1", "exp": future}), ErrTokenSignature},
		{"other algorithm", signMap(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{"sub": "u-1", "exp": future}), ErrTokenSignature},
		{"no exp", signMap(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "u-1"}), ErrTokenNoExpiry},
		{"no sub", signMap(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"exp": future}), ErrTokenNoSubject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidate_Malformed(t *testing.T) {
	_, err := newTestValidator(t).Validate("not.a.jwt")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}

func TestValidate_HS384(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Algorithm = "hs384"
	iss, err := NewIssuer(cfg)
	require.NoError(t, err)
	v, err := NewValidator(cfg)
	require.NoError(t, err)

	token, _, err := iss.Issue(Identity{UserID: "u-3"})
	require.NoError(t, err)
	_, err = v.Validate(token)
	assert.NoError(t, err)

	_, err = newTestValidator(t).Validate(token)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenRef(t *testing.T) {
	ref := TokenRef("eyJhbGciOiJIUzI1NiJ9.payload.sig")
	assert.Len(t, ref, 12)
	assert.Equal(t, ref, TokenRef("eyJhbGciOiJIUzI1NiJ9.payload.sig"))
	assert.NotEqual(t, ref, TokenRef("eyJhbGciOiJIUzI1NiJ9.payload.sig2"))
	assert.NotContains(t, "eyJhbGciOiJIUzI1NiJ9.payload.sig", ref)
}

func TestIdentityFromClaims(t *testing.T) {
	c := &Claims{Email: "x@y.z", RegisteredClaims: jwt.RegisteredClaims{Subject: "s"}}
	assert.Equal(t, &Identity{UserID: "s", Email: "x@y.z", Role: DefaultRole}, IdentityFromClaims(c))
	assert.False(t, IdentityFromClaims(c).IsAdmin())
	assert.True(t, (&Identity{Role: "admin"}).IsAdmin())
}
