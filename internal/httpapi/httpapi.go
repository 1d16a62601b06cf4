// Package httpapi exposes a small read-only HTTP surface over the
// running capture sessions, replacing the legacy JSON control client
// that spec.md's Non-goals explicitly leave out of scope. It is built
// on echo, the teacher's HTTP framework of choice.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sooth/audio-capture-library/audiocore/session"
)

// SessionLister is the subset of kit.Kit this API needs.
type SessionLister interface {
	Sessions() []*session.Session
}

// SessionInfo is the JSON shape returned for one session.
type SessionInfo struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// NewServer builds an echo instance serving /healthz, /sessions, and
// /sessions/:id/stats against lister.
func NewServer(lister SessionLister) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/sessions", func(c echo.Context) error {
		sessions := lister.Sessions()
		out := make([]SessionInfo, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, SessionInfo{ID: s.ID(), State: s.State().String()})
		}
		return c.JSON(http.StatusOK, out)
	})

	e.GET("/sessions/:id/stats", func(c echo.Context) error {
		id := c.Param("id")
		for _, s := range lister.Sessions() {
			if s.ID() == id {
				return c.JSON(http.StatusOK, SessionInfo{ID: s.ID(), State: s.State().String()})
			}
		}
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	})

	return e
}
