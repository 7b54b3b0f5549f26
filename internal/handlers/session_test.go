package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *handlerEnv) loginCookie(t *testing.T, username, password string) string {
	t.Helper()
	w := e.doJSON(http.MethodPost, "/login",
		`{"username":"`+username+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	setCookie := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, setCookie)
	return setCookie
}

func withCookie(header string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Cookie", header)
	}
}

func TestListSessionsFlagsCurrent(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")

	first := env.loginCookie(t, user.Username, "correct-password")
	env.loginCookie(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodGet, "/account/sessions", "", withCookie(first))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	items, ok := body["sessions"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	current := 0
	for _, item := range items {
		entry := item.(map[string]any)
		assert.NotEmpty(t, entry["id"])
		// No secret material in the listing.
		assert.NotContains(t, entry, "secret_hash")
		if entry["current"] == true {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestRevokeSessionByID(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")

	keep := env.loginCookie(t, user.Username, "correct-password")
	victim := env.loginCookie(t, user.Username, "correct-password")

	sessions, err := env.sessions.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Find the session not authenticating this request.
	list := env.doJSON(http.MethodGet, "/account/sessions", "", withCookie(keep))
	require.Equal(t, http.StatusOK, list.Code)
	var victimID string
	for _, item := range decodeBody(t, list)["sessions"].([]any) {
		entry := item.(map[string]any)
		if entry["current"] != true {
			victimID = entry["id"].(string)
		}
	}
	require.NotEmpty(t, victimID)

	w := env.doJSON(http.MethodPost, "/account/sessions/"+victimID+"/revoke", "", withCookie(keep))
	assert.Equal(t, http.StatusOK, w.Code)

	// The revoked cookie no longer authenticates; the caller's still does.
	assert.Equal(t, http.StatusUnauthorized,
		env.doJSON(http.MethodGet, "/account/sessions", "", withCookie(victim)).Code)
	assert.Equal(t, http.StatusOK,
		env.doJSON(http.MethodGet, "/account/sessions", "", withCookie(keep)).Code)
}

func TestRevokeSessionUnknownID(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	cookieHeader := env.loginCookie(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodPost, "/account/sessions/no-such-id/revoke", "", withCookie(cookieHeader))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRevokeSessionOwnedByOther(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.createUser(t, "owner-password")
	intruder := env.createUser(t, "intruder-password")

	env.loginCookie(t, owner.Username, "owner-password")
	intruderCookie := env.loginCookie(t, intruder.Username, "intruder-password")

	ownerSessions, err := env.sessions.List(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, ownerSessions, 1)

	// Foreign sessions look like nonexistent ones.
	w := env.doJSON(http.MethodPost, "/account/sessions/"+ownerSessions[0].ID+"/revoke", "",
		withCookie(intruderCookie))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRevokeAllSessions(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")

	first := env.loginCookie(t, user.Username, "correct-password")
	second := env.loginCookie(t, user.Username, "correct-password")

	w := env.doJSON(http.MethodPost, "/account/sessions/revoke-all", "", withCookie(first))
	assert.Equal(t, http.StatusOK, w.Code)

	// Including the session that made the call.
	assert.Equal(t, http.StatusUnauthorized,
		env.doJSON(http.MethodGet, "/account/sessions", "", withCookie(first)).Code)
	assert.Equal(t, http.StatusUnauthorized,
		env.doJSON(http.MethodGet, "/account/sessions", "", withCookie(second)).Code)
}

func TestSessionEndpointsRejectBearerToken(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "correct-password")
	raw, _ := env.signIn(t, user.Username, "correct-password")

	// The token channel never satisfies a session route.
	w := env.doJSON(http.MethodGet, "/account/sessions", "", bearer(raw))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

