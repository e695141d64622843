package folio

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Sentinel errors returned by the store. Handlers translate these into HTTP
// responses; nothing else about a store failure reaches the client.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrNoChanges = errors.New("no update data")
)

// ErrUploadNotConfigured is returned by the Cloudinary backend when the
// media-host credentials are absent. No outbound call is attempted.
var ErrUploadNotConfigured = errors.New("upload service not configured")

// httpErrorHandler renders every error as {"error": message} JSON so the SPA
// always gets a parseable body. Unexpected errors become a generic 500; the
// detail is logged server-side only.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal Server Error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= 500 {
		a.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}
