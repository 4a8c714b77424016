// view.go - Session view rendering shared by the handlers
package api

import (
	"github.com/skinguard/backend/internal/models"
	"github.com/skinguard/backend/internal/session"
)

// sessionView is the body returned by every session endpoint.
type sessionView struct {
	SessionID string `json:"sessionId" msgpack:"sessionId"`
	models.View
}

// renderView builds the view of a session. The inline data URL is
// replaced by the preview endpoint to keep snapshots small.
func renderView(sessionID string, v models.View) sessionView {
	if v.PreviewVisible {
		v.PreviewURL = previewPath(sessionID)
	}
	return sessionView{SessionID: sessionID, View: v}
}

func renderSession(sess *session.Session) sessionView {
	return renderView(sess.ID, sess.Controller.View())
}

func previewPath(sessionID string) string {
	return "/api/sessions/" + sessionID + "/preview"
}
