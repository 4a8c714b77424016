// handlers_analysis.go - Upload, analyze and reset handlers
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/skinguard/backend/internal/analysis"
	"github.com/skinguard/backend/internal/models"
	"github.com/skinguard/backend/internal/session"
)

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	sessionMgr *session.Manager
	catalog    *models.LabelCatalog
	logger     *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(sessionMgr *session.Manager, catalog *models.LabelCatalog, logger *slog.Logger) AnalysisHandler {
	return &AnalysisHandlerImpl{
		sessionMgr: sessionMgr,
		catalog:    catalog,
		logger:     logger,
	}
}

// HandleAcceptFile accepts an image as multipart/form-data field "file".
// A rejected file is not an HTTP error: the unchanged view carries the
// notification the page shows.
func (h *AnalysisHandlerImpl) HandleAcceptFile(c echo.Context) error {
	sess, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	err = sess.Controller.AcceptFile(analysis.File{
		Name:     file.Filename,
		MIMEType: file.Header.Get("Content-Type"),
		Size:     file.Size,
		Reader:   src,
	})
	if err != nil {
		h.logger.Info("file rejected", "session_id", sess.ID, "file", file.Filename, "err", err)
	}

	return c.JSON(http.StatusOK, renderSession(sess))
}

// HandleAnalyze submits the selected image. By default the request runs
// in the background and the Analyzing view is returned with 202; with
// ?wait=true the handler blocks until the verdict or failure is rendered.
func (h *AnalysisHandlerImpl) HandleAnalyze(c echo.Context) error {
	sess, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	wait, _ := strconv.ParseBool(c.QueryParam("wait"))

	// The analysis outlives this HTTP request.
	done, err := sess.Controller.StartSubmit(context.Background())
	switch {
	case errors.Is(err, analysis.ErrAnalysisInProgress):
		return NewConflictError("analysis already in progress")
	case errors.Is(err, analysis.ErrNoImage):
		return c.JSON(http.StatusOK, renderSession(sess))
	case err != nil:
		return NewInternalError("failed to start analysis", err)
	}

	if !wait {
		return c.JSON(http.StatusAccepted, renderSession(sess))
	}

	select {
	case <-done:
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
	return c.JSON(http.StatusOK, renderSession(sess))
}

// HandleReset returns the session to Idle
func (h *AnalysisHandlerImpl) HandleReset(c echo.Context) error {
	sess, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}
	sess.Controller.Reset()
	return c.JSON(http.StatusOK, renderSession(sess))
}

// HandleGetPreview serves the selected image bytes
func (h *AnalysisHandlerImpl) HandleGetPreview(c echo.Context) error {
	sess, err := lookupSession(c, h.sessionMgr)
	if err != nil {
		return err
	}

	img := sess.Controller.Image()
	if img == nil {
		return NewNotFoundError("preview", sess.ID)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, img.MIMEType, img.Data)
}

// HandleGetLabels returns the category catalog
func (h *AnalysisHandlerImpl) HandleGetLabels(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog)
}
