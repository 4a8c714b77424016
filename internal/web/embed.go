// Package web provides the embedded upload page and info pages.
package web

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// RegisterStaticRoutes registers the frontend static file routes with Echo.
// The API routes should be registered before calling this function.
//
// Extension-less paths such as /about resolve to the matching .html page.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}

	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean(c.Request().URL.Path)
		name := strings.TrimPrefix(requestPath, "/")

		if name == "" || name == "." || name == "index.html" {
			return servePage(c, staticFS, "index.html")
		}

		if path.Ext(name) == "" {
			return servePage(c, staticFS, name+".html")
		}

		if _, err := fs.Stat(staticFS, name); err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "page not found")
		}

		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	return nil
}

// servePage writes one embedded HTML page
func servePage(c echo.Context, staticFS fs.FS, name string) error {
	file, err := staticFS.Open(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "page not found")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read "+name)
	}

	return c.HTMLBlob(http.StatusOK, content)
}

// HasEmbeddedFiles returns true if the upload page is embedded.
func HasEmbeddedFiles() bool {
	_, err := fs.Stat(staticFiles, "dist/index.html")
	return err == nil
}

// InfoPages lists the informational routes served next to the upload page.
var InfoPages = []string{"/about", "/precautions", "/emergency", "/tips"}
