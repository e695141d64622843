package folio

import "go.uber.org/zap"

// Config holds all runtime configuration for a folio site. cmd/folio builds
// one from the environment; zero values get sensible defaults.
type Config struct {
	SiteName        string // Site name for feed/sitemap (default "Portfolio")
	SiteURL         string // Canonical URL (default "http://localhost:3001")
	SiteDescription string // Site description for the RSS channel

	Addr         string // Listen address (default ":3001")
	DatabasePath string // SQLite path (default "data/folio.db")
	StaticDir    string // SPA build output served for non-API paths (default "dist")

	// Cloudinary credentials. When the backend is "cloudinary" and any of the
	// three is empty, uploads fail with a configuration error before any
	// outbound call.
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	UploadBackend       string // "cloudinary" (default) or "local"

	// Optional admin login. With AdminPassword empty every endpoint is open;
	// when set, write endpoints require a session cookie and SessionSecret
	// must also be set.
	AdminPassword string
	SessionSecret string
	CookieSecure  bool // Set true when serving over HTTPS
}

func (c *Config) setDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Portfolio"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:3001"
	}
	if c.Addr == "" {
		c.Addr = ":3001"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/folio.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "dist"
	}
	if c.UploadBackend == "" {
		c.UploadBackend = "cloudinary"
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the zap logger used for request and error logging.
// Without it the App logs nowhere.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithUploader overrides the upload backend chosen from Config. Tests use
// this to avoid outbound calls.
func WithUploader(u Uploader) Option {
	return func(a *App) {
		a.Uploader = u
	}
}

// WithStore injects an already-open store instead of opening
// Config.DatabasePath.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}
