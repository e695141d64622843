package folio

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding posts, settings, and page views.
// One Store is opened at startup and shared by every handler; SQLite's WAL
// mode plus the busy timeout make that safe for this traffic level.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path, ensures the data
// directory exists, and applies pending schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL allows concurrent readers during writes; the busy timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrations are applied in order at startup, each recorded in
// schema_migrations. Running DDL once here replaces the old habit of probing
// the schema on every request.
var migrations = []struct {
	version int
	apply   func(*sql.DB) error
}{
	{1, createPostsTable},
	{2, addPostMediaColumns},
	{3, createSettingsTable},
	{4, createAnalyticsTable},
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return err
	}
	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.apply(s.db); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now().Unix()); err != nil {
			return err
		}
	}
	return nil
}

func createPostsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		description TEXT,
		image TEXT,
		tags TEXT,
		created_at INTEGER NOT NULL
	)`)
	return err
}

// addPostMediaColumns upgrades databases created before the per-post media
// revision. SQLite has no ADD COLUMN IF NOT EXISTS, so "duplicate column" is
// the one error class that may be swallowed; anything else (permissions,
// locked file) propagates.
func addPostMediaColumns(db *sql.DB) error {
	stmts := []string{
		`ALTER TABLE posts ADD COLUMN media_type TEXT`,
		`ALTER TABLE posts ADD COLUMN youtube_url TEXT`,
		`ALTER TABLE posts ADD COLUMN carousel_images TEXT`,
		`ALTER TABLE posts ADD COLUMN view_count INTEGER DEFAULT 0`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
				continue
			}
			return err
		}
	}
	return nil
}

func createSettingsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		value TEXT NOT NULL
	)`)
	return err
}

func createAnalyticsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analytics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			date TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_analytics_date ON analytics(date);
		CREATE INDEX IF NOT EXISTS idx_analytics_path ON analytics(path);
	`)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const postColumns = `id, slug, title, content, description, image, tags, created_at,
	media_type, youtube_url, carousel_images, COALESCE(view_count, 0)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var p Post
	var description, image, tags sql.NullString
	var createdAt int64
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Content, &description, &image, &tags,
		&createdAt, &p.MediaType, &p.YoutubeURL, &p.CarouselImages, &p.ViewCount)
	if err != nil {
		return Post{}, err
	}
	p.Description = description.String
	p.Image = image.String
	p.Tags = tags.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return p, nil
}

// ListPosts returns every post, newest first. Posts created in the same
// second keep a stable order via the id tie-break.
func (s *Store) ListPosts() ([]Post, error) {
	rows, err := s.db.Query(`SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns a single post by slug, or ErrNotFound.
func (s *Store) GetPost(slug string) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return Post{}, ErrNotFound
	}
	return p, err
}

func (s *Store) getPostByID(id int64) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return Post{}, ErrNotFound
	}
	return p, err
}

// CreatePost inserts a new post and returns it with its assigned id. A
// duplicate slug yields ErrConflict and leaves the existing row untouched.
func (s *Store) CreatePost(n NewPost) (Post, error) {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`INSERT INTO posts
		(slug, title, content, description, image, tags, created_at, media_type, youtube_url, carousel_images, view_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		n.Slug, n.Title, n.Content, n.Description, n.Image, n.Tags, createdAt.Unix(),
		n.MediaType, n.YoutubeURL, n.CarouselImages)
	if err != nil {
		if isUniqueViolation(err) {
			return Post{}, fmt.Errorf("slug %q: %w", n.Slug, ErrConflict)
		}
		return Post{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Post{}, err
	}
	return s.getPostByID(id)
}

// updatableColumns maps the JSON fields a client may change to their columns.
// id, createdAt, and viewCount are deliberately absent: they are stripped
// from every update payload.
var updatableColumns = map[string]string{
	"slug":           "slug",
	"title":          "title",
	"content":        "content",
	"description":    "description",
	"image":          "image",
	"tags":           "tags",
	"mediaType":      "media_type",
	"youtubeUrl":     "youtube_url",
	"carouselImages": "carousel_images",
}

// UpdatePost applies a partial update to the post with the given slug.
// Unspecified fields keep their prior values. An update that strips down to
// nothing yields ErrNoChanges; a missing slug yields ErrNotFound.
func (s *Store) UpdatePost(slug string, fields map[string]any) (Post, error) {
	var sets []string
	var args []any
	for field, value := range fields {
		col, ok := updatableColumns[field]
		if !ok {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		return Post{}, ErrNoChanges
	}
	args = append(args, slug)

	res, err := s.db.Exec(`UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE slug = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return Post{}, fmt.Errorf("update %q: %w", slug, ErrConflict)
		}
		return Post{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Post{}, err
	}
	if n == 0 {
		return Post{}, ErrNotFound
	}

	// The slug itself may have been part of the update.
	current := slug
	if v, ok := fields["slug"].(string); ok && v != "" {
		current = v
	}
	return s.GetPost(current)
}

// DeletePost removes a post by slug. Deleting a slug that does not exist is
// not an error.
func (s *Store) DeletePost(slug string) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug)
	return err
}

// GetSetting returns the stored JSON text for key. found is false when the
// key has never been set; that is a valid state, not an error.
func (s *Store) GetSetting(key string) (value string, found bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PutSetting stores value (JSON text) under key. A single upsert statement,
// so two concurrent writers cannot produce a duplicate key or a lost insert.
func (s *Store) PutSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// RecordPageView appends an immutable page-view event. The calendar day is
// stored redundantly so summaries can group without date arithmetic.
func (s *Store) RecordPageView(path string, at time.Time) error {
	_, err := s.db.Exec(`INSERT INTO analytics (path, timestamp, date) VALUES (?, ?, ?)`,
		path, at.Unix(), at.Format("2006-01-02"))
	return err
}

// IncrementViewCount bumps a post's view counter in a single atomic statement.
func (s *Store) IncrementViewCount(slug string) error {
	_, err := s.db.Exec(`UPDATE posts SET view_count = COALESCE(view_count, 0) + 1 WHERE slug = ?`, slug)
	return err
}

// Summarize computes the dashboard counters. The queries run independently,
// not in one transaction; under concurrent writes the numbers may be
// minutely inconsistent with each other, which is fine for a low-traffic
// dashboard.
func (s *Store) Summarize(today string) (Summary, error) {
	sum := Summary{TopPosts: []PostRank{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM analytics`).Scan(&sum.TotalViews); err != nil {
		return Summary{}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM analytics WHERE date = ?`, today).Scan(&sum.TodayViews); err != nil {
		return Summary{}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&sum.TotalPosts); err != nil {
		return Summary{}, err
	}

	rows, err := s.db.Query(`SELECT id, slug, title, COALESCE(view_count, 0)
		FROM posts ORDER BY view_count DESC, id ASC LIMIT 5`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var r PostRank
		if err := rows.Scan(&r.ID, &r.Slug, &r.Title, &r.ViewCount); err != nil {
			return Summary{}, err
		}
		sum.TopPosts = append(sum.TopPosts, r)
	}
	return sum, rows.Err()
}
