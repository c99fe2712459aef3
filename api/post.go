package api

import "time"

// PostSummary is the list representation of a post
type PostSummary struct {
	Slug       string     `json:"slug"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	AuthorName string     `json:"author_name"`
	CreatedAt  *time.Time `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	URL        string     `json:"url"`
}

// Post is a single post with its source and rendered body
type Post struct {
	Slug       string     `json:"slug"`
	Title      string     `json:"title"`
	Format     string     `json:"format"`
	Content    string     `json:"content"`
	HTML       string     `json:"html"`
	AuthorName string     `json:"author_name"`
	CreatedAt  *time.Time `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	URL        string     `json:"url"`
}

type Error struct {
	Error string `json:"error"`
}
