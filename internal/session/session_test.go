//go:build integration

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-hub/internal/config"
	"finance-hub/internal/data/datatest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PersistsAcrossRequests(t *testing.T) {
	db := datatest.NewDB(t)
	sm, err := New(config.SessionConfig{Lifetime: 1}, "sqlite", db, false)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), KeyUserID, "u1")
	})
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sm.GetString(r.Context(), KeyUserID)))
	})
	h := sm.LoadAndSave(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/put", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "hub_session", cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(config.SessionConfig{}, "postgres", datatest.NewDB(t), false)
	assert.Error(t, err)
}
