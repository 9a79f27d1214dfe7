package credential

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		Secret:   "0123456789abcdef-test",
		Issuer:   "artspark",
		TokenTTL: 30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestNewManager_ShortSecret(t *testing.T) {
	_, err := NewManager(config.AuthConfig{Secret: "short"})
	assert.Error(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, exp, err := m.Issue("ms-abc")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), exp, 5*time.Second)

	cred, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ms-abc", cred.ModelScopeKey)
	assert.Equal(t, exp.Unix(), cred.ExpiresAt.Unix())
}

func TestVerify_Expired(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }
	token, _, err := m.Issue("ms-abc")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestVerify_Rejects(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue("ms-abc")
	require.NoError(t, err)

	other, err := NewManager(config.AuthConfig{Secret: "another-secret-value", Issuer: "artspark"})
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized), "wrong secret")

	wrongIssuer, err := NewManager(config.AuthConfig{Secret: "0123456789abcdef-test", Issuer: "someone-else"})
	require.NoError(t, err)
	_, err = wrongIssuer.Verify(token)
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized), "wrong issuer")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ModelScopeKey: "ms-abc"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(unsigned)
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized), "alg none")

	_, err = m.Verify("")
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized))

	_, err = m.Verify("not.a.jwt")
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized))
}

func TestIssue_EmptyKey(t *testing.T) {
	_, _, err := newTestManager(t).Issue("")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestResolve_TokenSources(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue("ms-abc")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/check_key?token="+token, nil)
	cred, err := m.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "ms-abc", cred.ModelScopeKey)

	r = httptest.NewRequest("POST", "/api/colorize-lineart", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	cred, err = m.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "ms-abc", cred.ModelScopeKey)

	r = httptest.NewRequest("POST", "/api/colorize-lineart", nil)
	_, err = m.Resolve(r)
	assert.True(t, types.IsAuthError(err))
}

func TestTokenFromRequest_QueryWins(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-query", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, TokenFromRequest(r))
}
