// handlers_session.go - Session lifecycle handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/skinguard/backend/internal/session"
	"github.com/vmihailenco/msgpack/v5"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr *session.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionMgr *session.Manager) SessionHandler {
	return &SessionHandlerImpl{sessionMgr: sessionMgr}
}

// HandleCreateSession starts a session with an idle controller
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess, err := h.sessionMgr.Create()
	if err != nil {
		if errors.Is(err, session.ErrTooManySessions) {
			return NewServiceUnavailableError("too many active sessions, try again later")
		}
		return NewInternalError("failed to create session", err)
	}
	return c.JSON(http.StatusCreated, renderSession(sess))
}

// HandleGetSession returns the current view of a session
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	sess, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, renderSession(sess))
}

// HandleGetSessionMsgpack returns the current view encoded as msgpack
func (h *SessionHandlerImpl) HandleGetSessionMsgpack(c echo.Context) error {
	sess, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(renderSession(sess))
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDeleteSession drops a session
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	if !h.sessionMgr.Delete(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

func lookupSession(c echo.Context, mgr *session.Manager) (*session.Session, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}
	sess, ok := mgr.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return sess, nil
}
