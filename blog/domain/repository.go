package domain

import "context"

// PostRepository is a Storage that can also be written to.
// Saved posts are published; unpublished posts disappear from the Storage reads.
type PostRepository interface {
	Storage

	SavePost(ctx context.Context, p *Post) error
	Unpublish(ctx context.Context, slug string) error
	PublishedSlugs(ctx context.Context) ([]string, error)
	SetOptions(ctx context.Context, opts Options) error
}
