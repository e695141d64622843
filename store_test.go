package folio

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := s.CreatePost(NewPost{Slug: "keep", Title: "Keep", Content: "c", Tags: "[]"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	s.Close()

	// Reopening runs migrate again against an up-to-date schema.
	s2, err := NewStore(path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer s2.Close()

	if _, err := s2.GetPost("keep"); err != nil {
		t.Fatalf("post lost across reopen: %v", err)
	}
}

func TestCreateAndGetPost(t *testing.T) {
	s := newTestStore(t)

	post, err := s.CreatePost(NewPost{
		Slug:    "hello",
		Title:   "Hello",
		Content: "# Hi",
		Tags:    "[]",
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.ID == 0 {
		t.Error("expected assigned id")
	}
	if post.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}
	if post.ViewCount != 0 {
		t.Errorf("ViewCount = %d, want 0", post.ViewCount)
	}

	got, err := s.GetPost("hello")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Slug != "hello" || got.Title != "Hello" || got.Content != "# Hi" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.Tags != "[]" {
		t.Errorf("Tags = %q, want %q", got.Tags, "[]")
	}
	if got.MediaType != nil || got.YoutubeURL != nil || got.CarouselImages != nil {
		t.Errorf("media fields should be nil, got %+v", got)
	}
}

func TestCreatePostWithMedia(t *testing.T) {
	s := newTestStore(t)

	mediaType := "youtube"
	ytURL := "https://youtube.com/watch?v=abc"
	post, err := s.CreatePost(NewPost{
		Slug:       "with-media",
		Title:      "With Media",
		Content:    "c",
		Tags:       `["go"]`,
		MediaType:  &mediaType,
		YoutubeURL: &ytURL,
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.MediaType == nil || *post.MediaType != "youtube" {
		t.Errorf("MediaType = %v, want youtube", post.MediaType)
	}
	if post.YoutubeURL == nil || *post.YoutubeURL != ytURL {
		t.Errorf("YoutubeURL = %v, want %q", post.YoutubeURL, ytURL)
	}
	if post.CarouselImages != nil {
		t.Errorf("CarouselImages = %v, want nil", post.CarouselImages)
	}
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreatePost(NewPost{Slug: "dup", Title: "First", Content: "original", Tags: "[]"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	_, err := s.CreatePost(NewPost{Slug: "dup", Title: "Second", Content: "imposter", Tags: "[]"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The conflicting write must not have mutated the existing row.
	got, err := s.GetPost("dup")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "First" || got.Content != "original" {
		t.Errorf("existing row mutated by conflicting create: %+v", got)
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPost("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListPostsOrder(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, slug := range []string{"oldest", "middle", "newest"} {
		_, err := s.CreatePost(NewPost{
			Slug:      slug,
			Title:     slug,
			Content:   "c",
			Tags:      "[]",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreatePost(%s) failed: %v", slug, err)
		}
	}

	posts, err := s.ListPosts()
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("len = %d, want 3", len(posts))
	}
	want := []string{"newest", "middle", "oldest"}
	for i, w := range want {
		if posts[i].Slug != w {
			t.Errorf("posts[%d].Slug = %q, want %q", i, posts[i].Slug, w)
		}
	}
	for i := 1; i < len(posts); i++ {
		if posts[i].CreatedAt.After(posts[i-1].CreatedAt) {
			t.Errorf("posts not in descending createdAt order at %d", i)
		}
	}
}

func TestListPostsTieBreakByID(t *testing.T) {
	s := newTestStore(t)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, slug := range []string{"first", "second"} {
		if _, err := s.CreatePost(NewPost{Slug: slug, Title: slug, Content: "c", Tags: "[]", CreatedAt: at}); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	posts, err := s.ListPosts()
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	// Same createdAt: the later insert (higher id) wins.
	if posts[0].Slug != "second" || posts[1].Slug != "first" {
		t.Errorf("tie-break order wrong: %q, %q", posts[0].Slug, posts[1].Slug)
	}
}

func TestUpdatePostPartialMerge(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreatePost(NewPost{
		Slug:        "merge",
		Title:       "Original",
		Content:     "original content",
		Description: "original description",
		Tags:        `["a"]`,
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	updated, err := s.UpdatePost("merge", map[string]any{"title": "Changed"})
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if updated.Title != "Changed" {
		t.Errorf("Title = %q, want Changed", updated.Title)
	}
	if updated.Content != "original content" || updated.Description != "original description" {
		t.Errorf("unrelated fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.ID != created.ID {
		t.Errorf("ID changed: %d -> %d", created.ID, updated.ID)
	}
}

func TestUpdatePostStripsProtectedFields(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreatePost(NewPost{Slug: "protected", Title: "T", Content: "c", Tags: "[]"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	// Only protected fields in the payload: the change-set is empty.
	_, err = s.UpdatePost("protected", map[string]any{
		"id":        9999,
		"createdAt": "2001-01-01T00:00:00Z",
		"viewCount": 42,
	})
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}

	// Protected fields mixed with a real one: the real one applies, the rest
	// is dropped.
	updated, err := s.UpdatePost("protected", map[string]any{
		"id":    9999,
		"title": "New Title",
	})
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("ID changed to %d", updated.ID)
	}
	if updated.Title != "New Title" {
		t.Errorf("Title = %q, want New Title", updated.Title)
	}
	if updated.ViewCount != 0 {
		t.Errorf("ViewCount = %d, want 0", updated.ViewCount)
	}
}

func TestUpdatePostNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdatePost("ghost", map[string]any{"title": "X"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePostEmptyFields(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreatePost(NewPost{Slug: "x", Title: "T", Content: "c", Tags: "[]"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	_, err := s.UpdatePost("x", map[string]any{})
	if !errors.Is(err, ErrNoChanges) {
		t.Errorf("expected ErrNoChanges, got %v", err)
	}
}

func TestUpdatePostChangesSlug(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreatePost(NewPost{Slug: "old-slug", Title: "T", Content: "c", Tags: "[]"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	updated, err := s.UpdatePost("old-slug", map[string]any{"slug": "new-slug"})
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if updated.Slug != "new-slug" {
		t.Errorf("Slug = %q, want new-slug", updated.Slug)
	}
	if _, err := s.GetPost("old-slug"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old slug should be gone, got %v", err)
	}
}

func TestDeletePost(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreatePost(NewPost{Slug: "doomed", Title: "T", Content: "c", Tags: "[]"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if err := s.DeletePost("doomed"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPost("doomed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again (or deleting a slug that never existed) is a no-op.
	if err := s.DeletePost("doomed"); err != nil {
		t.Errorf("second delete should not error, got %v", err)
	}
	if err := s.DeletePost("never-existed"); err != nil {
		t.Errorf("delete of unknown slug should not error, got %v", err)
	}
}

func TestSettingsMissingKey(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.GetSetting("missingKey")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if found {
		t.Error("expected found=false for unset key")
	}
}

func TestSettingsUpsert(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutSetting("blogHeader", `{"mediaType":"youtube"}`); err != nil {
		t.Fatalf("PutSetting failed: %v", err)
	}
	if err := s.PutSetting("blogHeader", `{"mediaType":"carousel"}`); err != nil {
		t.Fatalf("second PutSetting failed: %v", err)
	}

	value, found, err := s.GetSetting("blogHeader")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if value != `{"mediaType":"carousel"}` {
		t.Errorf("value = %q, want updated value", value)
	}

	// The upsert updated in place: exactly one row for the key.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM settings WHERE key = ?`, "blogHeader").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("settings rows = %d, want 1", count)
	}
}

func TestTrackIncrementsViewCount(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreatePost(NewPost{Slug: "my-post", Title: "T", Content: "c", Tags: "[]"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if err := s.RecordPageView("/blog/my-post", time.Now().UTC()); err != nil {
		t.Fatalf("RecordPageView failed: %v", err)
	}
	if err := s.IncrementViewCount("my-post"); err != nil {
		t.Fatalf("IncrementViewCount failed: %v", err)
	}

	got, err := s.GetPost("my-post")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.ViewCount != 1 {
		t.Errorf("ViewCount = %d, want 1", got.ViewCount)
	}
}

func TestIncrementViewCountUnknownSlug(t *testing.T) {
	s := newTestStore(t)

	// A tracked path for a post that does not exist must not error; the
	// event itself still counts.
	if err := s.IncrementViewCount("no-such-post"); err != nil {
		t.Errorf("IncrementViewCount on unknown slug should not error, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1)

	for _, slug := range []string{"a", "b", "c"} {
		if _, err := s.CreatePost(NewPost{Slug: slug, Title: slug, Content: "c", Tags: "[]"}); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	// Three views today, one yesterday.
	for i := 0; i < 3; i++ {
		if err := s.RecordPageView("/blog/a", now); err != nil {
			t.Fatalf("RecordPageView failed: %v", err)
		}
		if err := s.IncrementViewCount("a"); err != nil {
			t.Fatalf("IncrementViewCount failed: %v", err)
		}
	}
	if err := s.RecordPageView("/", yesterday); err != nil {
		t.Fatalf("RecordPageView failed: %v", err)
	}

	sum, err := s.Summarize(today)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if sum.TotalViews != 4 {
		t.Errorf("TotalViews = %d, want 4", sum.TotalViews)
	}
	if sum.TodayViews != 3 {
		t.Errorf("TodayViews = %d, want 3", sum.TodayViews)
	}
	if sum.TotalPosts != 3 {
		t.Errorf("TotalPosts = %d, want 3", sum.TotalPosts)
	}
	if len(sum.TopPosts) != 3 {
		t.Fatalf("TopPosts len = %d, want 3", len(sum.TopPosts))
	}
	if sum.TopPosts[0].Slug != "a" || sum.TopPosts[0].ViewCount != 3 {
		t.Errorf("TopPosts[0] = %+v, want slug a with 3 views", sum.TopPosts[0])
	}
}
