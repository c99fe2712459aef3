package persistence

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.Storage = (*GitHubStorage)(nil)

const (
	contentTypeDir  = "dir"
	contentTypeFile = "file"
)

// GitHubStorage implements domain.Storage over the default branch of a GitHub
// repository laid out like the filesystem backend under prefix. Timestamps and
// authors come from the commit history of each post's index file.
type GitHubStorage struct {
	source      domain.SourceRepository
	prefix      string
	guessFormat domain.FormatGuesser
	history     domain.MetaLoader
}

// NewGitHubStorage creates a GitHubStorage for the blog rooted at prefix in source.
// It fails with a *domain.StorageConfigurationError when prefix cannot be listed.
func NewGitHubStorage(ctx context.Context, source domain.SourceRepository, prefix string) (*GitHubStorage, error) {
	prefix = strings.Trim(prefix, "/")
	if _, err := source.ListDirectory(ctx, prefix); err != nil {
		root := "github://" + path.Join(source.GetRepoFullName(), prefix)
		return nil, &domain.StorageConfigurationError{Root: root, Reason: "repository path not readable", Err: err}
	}

	return &GitHubStorage{
		source:      source,
		prefix:      prefix,
		guessFormat: domain.GuessMarkdown,
		history:     NewGitHistoryMetaLoader(source, prefix),
	}, nil
}

// RepoFullName is the owner/repo the posts are read from
func (s *GitHubStorage) RepoFullName() string {
	return s.source.GetRepoFullName()
}

// Posts lists the directories under posts/ and loads each, oldest first
func (s *GitHubStorage) Posts(ctx context.Context) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0)

	entries, err := s.source.ListDirectory(ctx, path.Join(s.prefix, postsDirName))
	if errors.Is(err, domain.ErrSourceNotFound) {
		return posts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list posts in %s: %w", s.RepoFullName(), err)
	}

	for _, entry := range entries {
		if entry.GetType() != contentTypeDir || !domain.ValidSlug(entry.GetName()) {
			continue
		}

		post, ok, err := s.loadPost(ctx, entry.GetName())
		if err != nil {
			return nil, err
		}
		if ok {
			posts = append(posts, post)
		}
	}

	domain.SortByCreation(posts)
	return posts, nil
}

func (s *GitHubStorage) PostForSlug(ctx context.Context, slug string) (*domain.Post, bool, error) {
	if !domain.ValidSlug(slug) {
		return nil, false, nil
	}
	return s.loadPost(ctx, slug)
}

// Options reads options.yaml; a missing file means no options
func (s *GitHubStorage) Options(ctx context.Context) (domain.Options, error) {
	data, err := s.source.GetFileContents(ctx, path.Join(s.prefix, optionsFileName))
	if errors.Is(err, domain.ErrSourceNotFound) {
		return domain.Options{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	return decodeOptions(data)
}

func (s *GitHubStorage) loadPost(ctx context.Context, slug string) (*domain.Post, bool, error) {
	dir := path.Join(s.prefix, postsDirName, slug)

	entries, err := s.source.ListDirectory(ctx, dir)
	if errors.Is(err, domain.ErrSourceNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to list post %s: %w", slug, err)
	}

	var hasIndex, isDraft bool
	for _, entry := range entries {
		if entry.GetType() != contentTypeFile {
			continue
		}
		switch entry.GetName() {
		case indexFileName:
			hasIndex = true
		case draftFileName:
			isDraft = true
		}
	}
	if !hasIndex || isDraft {
		return nil, false, nil
	}

	indexPath := path.Join(dir, indexFileName)
	content, err := s.source.GetFileContents(ctx, indexPath)
	if errors.Is(err, domain.ErrSourceNotFound) {
		// removed between listing and reading
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read post file: %w", err)
	}

	post := &domain.Post{
		Slug:          slug,
		Title:         domain.TitleFromSlug(slug),
		Content:       string(content),
		Format:        s.guessFormat(indexPath),
		AuthorName:    domain.DefaultAuthorName,
		CanonicalPath: domain.CanonicalPath(slug),
		MediaPath:     "github://" + s.RepoFullName() + "/" + dir + "/",
	}

	meta, err := s.history.LoadMeta(ctx, slug, dir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load metadata for post %s: %w", slug, err)
	}
	meta.Apply(post)

	log.Debug().Str("slug", slug).Str("repo", s.RepoFullName()).Str("path", indexPath).Msg("Loaded post")
	return post, true, nil
}
