package folio

import (
	"net/url"
	"path"
)

// buildURL joins a base URL with path segments.
func buildURL(base string, segments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(segments...))
	return u.String()
}
