package domain

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultAuthorName is used when no authorship metadata is available
	DefaultAuthorName = "unknown"

	// FormatMarkdown is the only post format currently produced
	FormatMarkdown = "markdown"
)

// Post represents a blog post
// A post is discovered from a directory holding an index.markdown file; nothing about it is cached.
type Post struct {
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Format        string     `json:"format"`
	CreatedAt     *time.Time `json:"created_at"`
	ModifiedAt    time.Time  `json:"modified_at"`
	AuthorName    string     `json:"author_name"`
	CanonicalPath string     `json:"canonical_path"`
	MediaPath     string     `json:"media_path"`
}

// Options holds site-wide settings such as the theme or the site title
type Options map[string]any

// Storage is the capability set every post backend exposes
type Storage interface {
	// Posts returns every published post ordered oldest to newest by creation time
	Posts(ctx context.Context) ([]*Post, error)

	// PostForSlug returns the post stored under slug; ok is false when there is none
	PostForSlug(ctx context.Context, slug string) (post *Post, ok bool, err error)

	// Options returns the site-wide settings
	Options(ctx context.Context) (Options, error)
}

// SortKey is the time a post is ordered by: its creation time when known, its modification time otherwise
func (p *Post) SortKey() time.Time {
	if p.CreatedAt != nil {
		return *p.CreatedAt
	}
	return p.ModifiedAt
}

// SortByCreation orders posts oldest first, breaking ties on slug
func SortByCreation(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i].SortKey(), posts[j].SortKey()
		if !a.Equal(b) {
			return a.Before(b)
		}
		return posts[i].Slug < posts[j].Slug
	})
}

// TitleFromSlug turns "my_first_post" into "My First Post"
func TitleFromSlug(slug string) string {
	// a Caser keeps state between calls, so each call gets its own
	return cases.Title(language.Und).String(strings.ReplaceAll(slug, "_", " "))
}

// CanonicalPath returns the public URL path of the post stored under slug
func CanonicalPath(slug string) string {
	return path.Join("post", slug) + "/"
}

// ValidSlug reports whether slug can name a single post directory.
// Separators are rejected; other characters the host filesystem allows in a
// directory name, such as a backslash on Unix, are valid.
func ValidSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsRune(slug, '/') && !strings.ContainsRune(slug, os.PathSeparator)
}
