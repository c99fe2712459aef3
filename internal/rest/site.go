package rest

import (
	"net/http"

	"github.com/dfryer1193/commotion/blog/application"
	"github.com/gin-gonic/gin"
)

type SiteHandler struct {
	service *application.PostService
}

func NewSiteHandler(service *application.PostService) *SiteHandler {
	return &SiteHandler{service: service}
}

func (h *SiteHandler) RegisterRoutes(r gin.IRouter) {
	siteV1 := r.Group("site/v1")
	{
		siteV1.GET("/options", h.GetOptions)
	}
}

func (h *SiteHandler) GetOptions(c *gin.Context) {
	opts, err := h.service.Options(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}
