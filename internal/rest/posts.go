package rest

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/dfryer1193/commotion/api"
	"github.com/dfryer1193/commotion/blog/application"
	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PostsHandler struct {
	service *application.PostService
}

func NewPostsHandler(service *application.PostService) *PostsHandler {
	return &PostsHandler{service: service}
}

func (h *PostsHandler) RegisterRoutes(r gin.IRouter) {
	postsV1 := r.Group("posts/v1")
	{
		postsV1.GET("/", h.GetPosts)
		postsV1.GET("/:slug", h.GetPost)
	}

	page := r.Group("post/:slug")
	{
		page.GET("/", h.GetPostPage)
		page.GET("/media/*file", h.GetMedia)
	}
}

func (h *PostsHandler) GetPosts(c *gin.Context) {
	summaries, err := h.service.ListPosts(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	posts := make([]api.PostSummary, 0, len(summaries))
	for _, s := range summaries {
		posts = append(posts, api.PostSummary{
			Slug:       s.Post.Slug,
			Title:      s.Post.Title,
			Snippet:    s.Snippet,
			AuthorName: s.Post.AuthorName,
			CreatedAt:  s.Post.CreatedAt,
			ModifiedAt: s.Post.ModifiedAt,
			URL:        postURL(s.Post),
		})
	}
	c.JSON(http.StatusOK, posts)
}

func (h *PostsHandler) GetPost(c *gin.Context) {
	rendered, err := h.service.GetPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	p := rendered.Post
	c.JSON(http.StatusOK, api.Post{
		Slug:       p.Slug,
		Title:      p.Title,
		Format:     p.Format,
		Content:    p.Content,
		HTML:       rendered.HTML,
		AuthorName: p.AuthorName,
		CreatedAt:  p.CreatedAt,
		ModifiedAt: p.ModifiedAt,
		URL:        postURL(p),
	})
}

// GetPostPage serves the post at its canonical path as a standalone HTML page
func (h *PostsHandler) GetPostPage(c *gin.Context) {
	rendered, err := h.service.GetPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.HTML(http.StatusOK, postPageTemplateName, gin.H{
		"Post": rendered.Post,
		"Body": template.HTML(rendered.HTML),
	})
}

func (h *PostsHandler) GetMedia(c *gin.Context) {
	file, err := h.service.MediaFile(c.Request.Context(), c.Param("slug"), c.Param("file"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.File(file)
}

func postURL(p *domain.Post) string {
	return "/" + p.CanonicalPath
}

// abortWithError maps service errors onto status codes
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrPostNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, api.Error{Error: "post not found"})
	case errors.Is(err, application.ErrMediaNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, api.Error{Error: "media not found"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.Error{Error: "internal server error"})
	}
}
