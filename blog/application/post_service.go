package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/rs/zerolog/log"
)

const formatHTML = "html"

var (
	// ErrPostNotFound is returned when no published post has the requested slug
	ErrPostNotFound = errors.New("post not found")

	// ErrMediaNotFound is returned for media names that cannot be served from local disk
	ErrMediaNotFound = errors.New("media not found")
)

// PostSummary is a post with a plain-text teaser for listings
type PostSummary struct {
	Post    *domain.Post
	Snippet string
}

// RenderedPost is a post together with its HTML body
type RenderedPost struct {
	Post *domain.Post
	HTML string
}

// ImportReport counts what an import changed in the destination
type ImportReport struct {
	Imported    int
	Unpublished int
	Failed      int
}

type PostService struct {
	storage  domain.Storage
	markdown MarkdownRenderer
}

func NewPostService(storage domain.Storage, markdown MarkdownRenderer) *PostService {
	return &PostService{
		storage:  storage,
		markdown: markdown,
	}
}

// ListPosts returns every published post oldest first with its snippet
func (s *PostService) ListPosts(ctx context.Context) ([]PostSummary, error) {
	posts, err := s.storage.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	summaries := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		summary := PostSummary{Post: p}
		if p.Format == domain.FormatMarkdown {
			summary.Snippet = extractSnippet([]byte(p.Content))
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetPost loads and renders a single post
func (s *PostService) GetPost(ctx context.Context, slug string) (*RenderedPost, error) {
	post, ok, err := s.storage.PostForSlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", slug, err)
	}
	if !ok {
		return nil, ErrPostNotFound
	}

	body, err := s.render(post)
	if err != nil {
		return nil, err
	}
	return &RenderedPost{Post: post, HTML: body}, nil
}

func (s *PostService) render(post *domain.Post) (string, error) {
	switch post.Format {
	case domain.FormatMarkdown:
		result, err := s.markdown.Render(post.Slug, []byte(post.Content))
		if err != nil {
			log.Error().Err(err).Str("slug", post.Slug).Msg("Failed to render markdown")
			return "", err
		}
		return string(result.HTMLContent), nil
	case formatHTML:
		return post.Content, nil
	default:
		return "<pre>" + html.EscapeString(post.Content) + "</pre>", nil
	}
}

// MediaFile resolves name inside the media directory of post slug to a local regular file.
// Posts whose media does not live on the local filesystem have no media files.
func (s *PostService) MediaFile(ctx context.Context, slug string, name string) (string, error) {
	post, ok, err := s.storage.PostForSlug(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("failed to get post %s: %w", slug, err)
	}
	if !ok {
		return "", ErrPostNotFound
	}

	if strings.Contains(post.MediaPath, "://") {
		return "", ErrMediaNotFound
	}

	// rooting the name keeps it inside the media directory
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return "", ErrMediaNotFound
	}

	file := filepath.Join(post.MediaPath, filepath.FromSlash(name))
	info, err := os.Stat(file)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrMediaNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat media file %s: %w", name, err)
	}
	if info.IsDir() {
		return "", ErrMediaNotFound
	}

	return file, nil
}

// Options returns the site options of the underlying storage
func (s *PostService) Options(ctx context.Context) (domain.Options, error) {
	opts, err := s.storage.Options(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	return opts, nil
}

// Import copies every post and the options into dst. Posts published in dst
// that no longer exist in the source are unpublished. A failing post does not
// stop the run; the first failure is returned once everything was attempted.
func (s *PostService) Import(ctx context.Context, dst domain.PostRepository) (ImportReport, error) {
	var report ImportReport

	posts, err := s.storage.Posts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list source posts: %w", err)
	}

	var firstErr error
	seen := make(map[string]bool, len(posts))
	for _, p := range posts {
		seen[p.Slug] = true
		if err := dst.SavePost(ctx, p); err != nil {
			log.Error().Err(err).Str("slug", p.Slug).Msg("Failed to import post")
			report.Failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Debug().Str("slug", p.Slug).Msg("Imported post")
		report.Imported++
	}

	published, err := dst.PublishedSlugs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list published posts: %w", err)
	}
	for _, slug := range published {
		if seen[slug] {
			continue
		}
		if err := dst.Unpublish(ctx, slug); err != nil {
			log.Error().Err(err).Str("slug", slug).Msg("Failed to unpublish post")
			report.Failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Str("slug", slug).Msg("Unpublished removed post")
		report.Unpublished++
	}

	opts, err := s.storage.Options(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to read source options: %w", err)
	}
	if err := dst.SetOptions(ctx, opts); err != nil {
		return report, fmt.Errorf("failed to store options: %w", err)
	}

	log.Info().
		Int("imported", report.Imported).
		Int("unpublished", report.Unpublished).
		Int("failed", report.Failed).
		Msg("Import finished")

	return report, firstErr
}
