package domain

import (
	"context"
	"time"
)

// FormatGuesser decides the format of the post file at path
type FormatGuesser func(path string) string

// GuessMarkdown treats every post as Markdown regardless of name or content
func GuessMarkdown(string) string {
	return FormatMarkdown
}

// PostMeta carries overrides for heuristically derived post fields.
// Nil fields leave the derived value untouched.
type PostMeta struct {
	Title      *string
	Content    *string
	Format     *string
	AuthorName *string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

// Apply copies every set field onto p
func (m PostMeta) Apply(p *Post) {
	if m.Title != nil {
		p.Title = *m.Title
	}
	if m.Content != nil {
		p.Content = *m.Content
	}
	if m.Format != nil {
		p.Format = *m.Format
	}
	if m.AuthorName != nil {
		p.AuthorName = *m.AuthorName
	}
	if m.CreatedAt != nil {
		created := *m.CreatedAt
		p.CreatedAt = &created
	}
	if m.ModifiedAt != nil {
		p.ModifiedAt = *m.ModifiedAt
	}
}

// Merge returns m with every field set in other taking precedence
func (m PostMeta) Merge(other PostMeta) PostMeta {
	if other.Title != nil {
		m.Title = other.Title
	}
	if other.Content != nil {
		m.Content = other.Content
	}
	if other.Format != nil {
		m.Format = other.Format
	}
	if other.AuthorName != nil {
		m.AuthorName = other.AuthorName
	}
	if other.CreatedAt != nil {
		m.CreatedAt = other.CreatedAt
	}
	if other.ModifiedAt != nil {
		m.ModifiedAt = other.ModifiedAt
	}
	return m
}

// MetaLoader loads per-post metadata for the post slug stored at dir.
// dir is backend specific: a filesystem path, an object key prefix or a repository path.
type MetaLoader interface {
	LoadMeta(ctx context.Context, slug string, dir string) (PostMeta, error)
}

// MetaLoaderFunc adapts a function to MetaLoader
type MetaLoaderFunc func(ctx context.Context, slug string, dir string) (PostMeta, error)

func (f MetaLoaderFunc) LoadMeta(ctx context.Context, slug string, dir string) (PostMeta, error) {
	return f(ctx, slug, dir)
}

// NoMeta never overrides anything
var NoMeta MetaLoader = MetaLoaderFunc(func(context.Context, string, string) (PostMeta, error) {
	return PostMeta{}, nil
})

type metaChain []MetaLoader

// ChainMetaLoaders runs loaders in order; fields set by later loaders win
func ChainMetaLoaders(loaders ...MetaLoader) MetaLoader {
	chain := make(metaChain, 0, len(loaders))
	for _, l := range loaders {
		if l != nil {
			chain = append(chain, l)
		}
	}
	return chain
}

func (c metaChain) LoadMeta(ctx context.Context, slug string, dir string) (PostMeta, error) {
	var merged PostMeta
	for _, l := range c {
		meta, err := l.LoadMeta(ctx, slug, dir)
		if err != nil {
			return PostMeta{}, err
		}
		merged = merged.Merge(meta)
	}
	return merged, nil
}
