package folio

import "time"

// Post is the content entry served by the API. Tags and CarouselImages are
// stored and transported as JSON-encoded text; the SPA parses them on its
// side, so the API never interprets their contents.
type Post struct {
	ID             int64     `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Description    string    `json:"description"`
	Image          string    `json:"image"`
	Tags           string    `json:"tags"`
	CreatedAt      time.Time `json:"createdAt"`
	MediaType      *string   `json:"mediaType"`
	YoutubeURL     *string   `json:"youtubeUrl"`
	CarouselImages *string   `json:"carouselImages"`
	ViewCount      int64     `json:"viewCount"`
}

// NewPost carries the validated fields for creating a post. CreatedAt is
// optional; the store uses the current time when it is zero.
type NewPost struct {
	Slug           string
	Title          string
	Content        string
	Description    string
	Image          string
	Tags           string
	MediaType      *string
	YoutubeURL     *string
	CarouselImages *string
	CreatedAt      time.Time
}

// PostRank is the trimmed post shape used in the analytics top-posts list.
type PostRank struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	ViewCount int64  `json:"viewCount"`
}

// Summary aggregates page-view counters for the admin dashboard. The four
// numbers come from separate queries and may drift slightly from each other
// under concurrent writes.
type Summary struct {
	TotalViews int64      `json:"totalViews"`
	TodayViews int64      `json:"todayViews"`
	TotalPosts int64      `json:"totalPosts"`
	TopPosts   []PostRank `json:"topPosts"`
}

// UploadResult is the normalized response of an image upload, identical for
// every backend.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}
