package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adminBearer creates an admin account and returns it with a bearer token
// for the token channel.
func (e *handlerEnv) adminBearer(t *testing.T) (*models.User, string) {
	t.Helper()
	id := uuid.New().String()
	admin := &models.User{
		ID:         id,
		Username:   "admin-" + id[:8],
		Email:      id[:8] + "@admin.example.com",
		Role:       "admin",
		AuthSource: services.AuthModeLocal,
	}
	require.NoError(t, e.store.CreateUser(admin))
	issued, err := e.tokens.Issue(context.Background(), admin, "admin-test")
	require.NoError(t, err)
	return admin, issued.RawToken
}

func TestAdminGetUser(t *testing.T) {
	env := newHandlerEnv(t)
	_, bearer := env.adminBearer(t)
	target := env.createUser(t, "pw")

	w := env.doJSON(http.MethodGet, "/api/admin/users/"+target.ID, "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+bearer)
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), target.Username)

	w = env.doJSON(http.MethodGet, "/api/admin/users/no-such-id", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+bearer)
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesForbiddenForRegularUser(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.createUser(t, "pw")
	issued, err := env.tokens.Issue(context.Background(), user, "test")
	require.NoError(t, err)

	w := env.doJSON(http.MethodGet, "/api/admin/users/"+user.ID, "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+issued.RawToken)
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminSetUserRole(t *testing.T) {
	env := newHandlerEnv(t)
	_, bearer := env.adminBearer(t)
	target := env.createUser(t, "pw")

	w := env.doJSON(http.MethodPost, "/api/admin/users/"+target.ID+"/role",
		`{"role":"admin"}`, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+bearer)
		})
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := env.store.GetUserByID(target.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", updated.Role)

	assert.EqualValues(t, 1, env.auditCount(t, models.EventUserRoleChanged))
}

func TestAdminSetUserRoleRejectsUnknownRole(t *testing.T) {
	env := newHandlerEnv(t)
	_, bearer := env.adminBearer(t)
	target := env.createUser(t, "pw")

	w := env.doJSON(http.MethodPost, "/api/admin/users/"+target.ID+"/role",
		`{"role":"superuser"}`, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+bearer)
		})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminCannotChangeOwnRole(t *testing.T) {
	env := newHandlerEnv(t)
	admin, bearer := env.adminBearer(t)

	w := env.doJSON(http.MethodPost, "/api/admin/users/"+admin.ID+"/role",
		`{"role":"user"}`, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+bearer)
		})
	assert.Equal(t, http.StatusConflict, w.Code)

	unchanged, err := env.store.GetUserByID(admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", unchanged.Role)
}

func TestAdminDeleteUserRevokesCredentials(t *testing.T) {
	env := newHandlerEnv(t)
	_, bearer := env.adminBearer(t)
	target := env.createUser(t, "pw")

	_, _, err := env.sessions.Create(context.Background(), target, "127.0.0.1", "test")
	require.NoError(t, err)
	issued, err := env.tokens.Issue(context.Background(), target, "test")
	require.NoError(t, err)

	w := env.doJSON(http.MethodDelete, "/api/admin/users/"+target.ID, "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+bearer)
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The account and all of its credentials are gone.
	_, err = env.store.GetUserByID(target.ID)
	assert.Error(t, err)
	sessionList, err := env.sessions.List(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Empty(t, sessionList)
	_, err = env.tokens.Validate(context.Background(), issued.RawToken)
	assert.Error(t, err)

	assert.EqualValues(t, 1, env.auditCount(t, models.EventUserDeleted))
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	env := newHandlerEnv(t)
	admin, bearer := env.adminBearer(t)

	w := env.doJSON(http.MethodDelete, "/api/admin/users/"+admin.ID, "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+bearer)
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	_, err := env.store.GetUserByID(admin.ID)
	assert.NoError(t, err)
}
