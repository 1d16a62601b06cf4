package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sooth/audio-capture-library/audiocore/session"
)

type stubLister struct{ sessions []*session.Session }

func (s stubLister) Sessions() []*session.Session { return s.sessions }

func TestHealthz(t *testing.T) {
	e := NewServer(stubLister{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSessionsEmpty(t *testing.T) {
	e := NewServer(stubLister{})
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got)
}

func TestSessionStatsNotFound(t *testing.T) {
	e := NewServer(stubLister{})
	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/stats", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
