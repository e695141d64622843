package folio

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// handleTrack appends a page-view event. Views of a blog post page also bump
// that post's counter; the bump is best-effort and never blocks or fails the
// request once the event row is written.
func (a *App) handleTrack(c echo.Context) error {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Path required")
	}

	now := time.Now().UTC()
	if err := a.Store.RecordPageView(req.Path, now); err != nil {
		return err
	}

	if slug := blogSlug(req.Path); slug != "" {
		if err := a.Store.IncrementViewCount(slug); err != nil {
			a.logger.Warn("increment view count",
				zap.String("slug", slug), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (a *App) handleSummary(c echo.Context) error {
	sum, err := a.Store.Summarize(time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

// blogSlug extracts the post slug from a /blog/{slug} path. It returns ""
// for the blog index and for paths outside the blog.
func blogSlug(path string) string {
	if path == "/blog" || path == "/blog/" {
		return ""
	}
	slug, ok := strings.CutPrefix(path, "/blog/")
	if !ok {
		return ""
	}
	return strings.TrimSuffix(slug, "/")
}
