package rest

import (
	"html/template"

	"github.com/dfryer1193/commotion/blog/application"
	"github.com/gin-gonic/gin"
)

const postPageTemplateName = "post"

const postPageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Post.Title }}</title>
</head>
<body>
<article>
<header>
<h1>{{ .Post.Title }}</h1>
<p>{{ .Post.AuthorName }}{{ with .Post.CreatedAt }} &middot; <time datetime="{{ .Format "2006-01-02T15:04:05Z07:00" }}">{{ .Format "January 2, 2006" }}</time>{{ end }}</p>
</header>
{{ .Body }}
</article>
</body>
</html>
`

// NewApi registers every public route on router
func NewApi(router *gin.Engine, service *application.PostService) {
	router.SetHTMLTemplate(template.Must(template.New(postPageTemplateName).Parse(postPageTemplate)))

	NewPostsHandler(service).RegisterRoutes(router)
	NewSiteHandler(service).RegisterRoutes(router)
}
