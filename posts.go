package folio

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type createPostRequest struct {
	Slug           string  `json:"slug"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	Description    string  `json:"description"`
	Image          string  `json:"image"`
	Tags           string  `json:"tags"`
	MediaType      *string `json:"mediaType"`
	YoutubeURL     *string `json:"youtubeUrl"`
	CarouselImages *string `json:"carouselImages"`
}

func (a *App) handleListPosts(c echo.Context) error {
	posts, err := a.Store.ListPosts()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleCreatePost(c echo.Context) error {
	var req createPostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	slug := strings.TrimSpace(req.Slug)
	title := strings.TrimSpace(req.Title)
	if slug == "" || title == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required fields")
	}
	tags := req.Tags
	if tags == "" {
		tags = "[]"
	}

	post, err := a.Store.CreatePost(NewPost{
		Slug:           slug,
		Title:          title,
		Content:        req.Content,
		Description:    req.Description,
		Image:          req.Image,
		Tags:           tags,
		MediaType:      req.MediaType,
		YoutubeURL:     req.YoutubeURL,
		CarouselImages: req.CarouselImages,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return echo.NewHTTPError(http.StatusConflict, "Post with this slug already exists")
		}
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleUpdatePost(c echo.Context) error {
	// Decoded as a free-form map so the store can apply a partial merge;
	// the column whitelist strips id, createdAt, and viewCount.
	var fields map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil && err != io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	post, err := a.Store.UpdatePost(c.Param("slug"), fields)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoChanges):
			return echo.NewHTTPError(http.StatusBadRequest, "No update data")
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		case errors.Is(err, ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "Post with this slug already exists")
		}
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleDeletePost(c echo.Context) error {
	if err := a.Store.DeletePost(c.Param("slug")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
