//go:build unit

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-hub/internal/auth"
	"finance-hub/internal/data"
	"finance-hub/internal/logger"
	"finance-hub/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withUser(r *http.Request, u *session.UserInfo) *http.Request {
	return r.WithContext(session.SetUserInfo(r.Context(), u))
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestAuthorizer(t *testing.T) {
	e, err := auth.NewMemoryEnforcer("../../auth_model.conf")
	require.NoError(t, err)
	auth.SeedDefaultPolicies(e, logger.Nop())
	require.NoError(t, auth.EnsureUser(e, "u1"))
	require.NoError(t, auth.EnsureUser(e, "boss"))
	require.NoError(t, auth.GrantAdmin(e, "boss"))

	h := Authorizer(e, logger.Nop())(http.HandlerFunc(ok))
	member := &session.UserInfo{ID: "u1"}
	boss := &session.UserInfo{ID: "boss"}

	tests := []struct {
		name   string
		method string
		path   string
		user   *session.UserInfo
		want   int
	}{
		{"anonymous reads home", http.MethodGet, "/", &session.UserInfo{}, http.StatusNoContent},
		{"anonymous reads article", http.MethodGet, "/articles/kak-vybrat", &session.UserInfo{}, http.StatusNoContent},
		{"anonymous cannot post topic", http.MethodPost, "/forum/category/1/topics", &session.UserInfo{}, http.StatusFound},
		{"member posts topic", http.MethodPost, "/forum/category/1/topics", member, http.StatusNoContent},
		{"member inherits public pages", http.MethodGet, "/news", member, http.StatusNoContent},
		{"member kept out of admin", http.MethodGet, "/admin/offers", member, http.StatusForbidden},
		{"admin manages offers", http.MethodPost, "/admin/offers/1/delete", boss, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, withUser(httptest.NewRequest(tt.method, tt.path, nil), tt.user))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestAuthorizer_RedirectKeepsTarget(t *testing.T) {
	e, err := auth.NewMemoryEnforcer("../../auth_model.conf")
	require.NoError(t, err)
	auth.SeedDefaultPolicies(e, logger.Nop())

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin/news?page=2", nil)
	Authorizer(e, logger.Nop())(http.HandlerFunc(ok)).ServeHTTP(rr, withUser(r, &session.UserInfo{}))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login?next=%2Fadmin%2Fnews%3Fpage%3D2", rr.Header().Get("Location"))
}

type fakeSessions struct {
	values  map[string]string
	removed []string
}

func (s *fakeSessions) LoadAndSave(next http.Handler) http.Handler { return next }
func (s *fakeSessions) Put(_ context.Context, key string, val interface{}) {
	s.values[key] = val.(string)
}
func (s *fakeSessions) GetString(_ context.Context, key string) string { return s.values[key] }
func (s *fakeSessions) PopString(_ context.Context, key string) string {
	v := s.values[key]
	delete(s.values, key)
	return v
}
func (s *fakeSessions) Destroy(context.Context) error { return nil }
func (s *fakeSessions) Remove(_ context.Context, key string) {
	s.removed = append(s.removed, key)
	delete(s.values, key)
}
func (s *fakeSessions) RenewToken(context.Context) error { return nil }

type fakeUsers map[string]*session.UserInfo

func (f fakeUsers) UserInfo(_ context.Context, id string) (*session.UserInfo, error) {
	if id == "broken" {
		return nil, errors.New("db down")
	}
	u, ok := f[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return u, nil
}

func TestLoadUser(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Email: "ivan@example.com"}}

	capture := func(sm *fakeSessions) *session.UserInfo {
		var got *session.UserInfo
		h := LoadUser(sm, users, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = session.GetUserInfo(r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		return got
	}

	sm := &fakeSessions{values: map[string]string{session.KeyUserID: "u1"}}
	assert.Equal(t, "u1", capture(sm).ID)

	sm = &fakeSessions{values: map[string]string{}}
	assert.True(t, capture(sm).IsAnonymous())

	sm = &fakeSessions{values: map[string]string{session.KeyUserID: "gone"}}
	assert.True(t, capture(sm).IsAnonymous())
	assert.Equal(t, []string{session.KeyUserID}, sm.removed)

	sm = &fakeSessions{values: map[string]string{session.KeyUserID: "broken"}}
	assert.True(t, capture(sm).IsAnonymous())
	assert.Empty(t, sm.removed)
}
