package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *handlerEnv) signIn(t *testing.T, username, password string) (string, string) {
	t.Helper()
	w := e.doJSON(http.MethodPost, "/api/signin",
		`{"username":"`+username+`","password":"`+password+`","label":"test"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	raw, ok := body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, raw)
	id, ok := body["token_id"].(string)
	require.True(t, ok)
	return raw, id
}

func bearer(raw string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	}
}

func TestSignInIssuesToken(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")

	w := env.doJSON(http.MethodPost, "/api/signin",
		`{"username":"`+user.Username+`","password":"correct-password","label":"laptop"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Equal(t, "opaque", body["format"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["expires_at"])
}

func TestSignInInvalidCredentials(t *testing.T) {
	env := newHandlerEnv(t)
	env.createUser(t, "correct-password")

	w := env.doJSON(http.MethodPost, "/api/signin",
		`{"username":"nobody","password":"nothing"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestMeOverTokenChannel(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	raw, _ := env.signIn(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodGet, "/api/me", "", bearer(raw))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "token", body["channel"])
	userBody, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, user.Username, userBody["username"])
}

func TestIssueAdditionalToken(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	first, _ := env.signIn(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodPost, "/api/tokens", `{"label":"ci"}`, bearer(first))
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	second, ok := body["token"].(string)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	// Both tokens authenticate independently.
	assert.Equal(t, http.StatusOK, env.doJSON(http.MethodGet, "/api/me", "", bearer(first)).Code)
	assert.Equal(t, http.StatusOK, env.doJSON(http.MethodGet, "/api/me", "", bearer(second)).Code)
}

func TestListTokensOmitsRawValues(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	raw, _ := env.signIn(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodGet, "/api/tokens", "", bearer(raw))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	tokens, ok := body["tokens"].([]any)
	require.True(t, ok)
	require.Len(t, tokens, 1)
	entry := tokens[0].(map[string]any)
	assert.Equal(t, "test", entry["label"])
	assert.NotEmpty(t, entry["last_eight"])
	// The listing never includes the raw token.
	assert.NotContains(t, w.Body.String(), raw)
}

func TestRevokeTokenByID(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	keep, _ := env.signIn(t, user.Username, "correct-password")
	victim, victimID := env.signIn(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodDelete, "/api/tokens/"+victimID, "", bearer(keep))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, env.doJSON(http.MethodGet, "/api/me", "", bearer(victim)).Code)
	assert.Equal(t, http.StatusOK, env.doJSON(http.MethodGet, "/api/me", "", bearer(keep)).Code)
}

func TestRevokeTokenUnknownID(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	raw, _ := env.signIn(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodDelete, "/api/tokens/no-such-id", "", bearer(raw))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestRevokeTokenOwnedByOther(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.createUser(t, "owner-password")
	intruder := env.createUser(t, "intruder-password")
	_, ownerTokenID := env.signIn(t, owner.Username, "owner-password")
	intruderRaw, _ := env.signIn(t, intruder.Username, "intruder-password")

	// Foreign tokens look like nonexistent ones.
	w := env.doJSON(http.MethodDelete, "/api/tokens/"+ownerTokenID, "", bearer(intruderRaw))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRevokeAllTokens(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	first, _ := env.signIn(t, user.Username, "correct-password")
	second, _ := env.signIn(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodDelete, "/api/tokens", "", bearer(first))
	assert.Equal(t, http.StatusOK, w.Code)

	// Including the token that made the revoke call.
	assert.Equal(t, http.StatusUnauthorized, env.doJSON(http.MethodGet, "/api/me", "", bearer(first)).Code)
	assert.Equal(t, http.StatusUnauthorized, env.doJSON(http.MethodGet, "/api/me", "", bearer(second)).Code)
}

func TestSignOutRevokesPresentedToken(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	raw, _ := env.signIn(t, user.Username, "correct-password")
	other, _ := env.signIn(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodPost, "/api/signout", "", bearer(raw))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, env.doJSON(http.MethodGet, "/api/me", "", bearer(raw)).Code)
	assert.Equal(t, http.StatusOK, env.doJSON(http.MethodGet, "/api/me", "", bearer(other)).Code)
}

func TestTokenEndpointsRequireToken(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.doJSON(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Bearer realm="PassGate"`, w.Header().Get("WWW-Authenticate"))
}
