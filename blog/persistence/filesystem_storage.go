package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var _ domain.Storage = (*FileSystemStorage)(nil)

const (
	postsDirName    = "posts"
	indexFileName   = "index.markdown"
	draftFileName   = "DRAFT"
	optionsFileName = "options.yaml"
)

// FileTimes reports the creation and modification time of the post directory at path.
// created is nil when the platform does not record creation time.
type FileTimes func(fsys afero.Fs, path string, info os.FileInfo) (created *time.Time, modified time.Time)

// FileSystemStorage implements domain.Storage over a directory tree laid out as
// <root>/posts/<slug>/index.markdown. A DRAFT file next to the index hides the post.
// All metadata is derived from filenames and filesystem attributes.
type FileSystemStorage struct {
	root        string
	fs          afero.Fs
	guessFormat domain.FormatGuesser
	meta        domain.MetaLoader
	fileTimes   FileTimes
}

// FileSystemOption configures a FileSystemStorage
type FileSystemOption func(*FileSystemStorage)

// WithFs swaps the filesystem the storage reads from
func WithFs(fsys afero.Fs) FileSystemOption {
	return func(s *FileSystemStorage) {
		s.fs = fsys
	}
}

// WithFormatGuesser replaces the format heuristic
func WithFormatGuesser(g domain.FormatGuesser) FileSystemOption {
	return func(s *FileSystemStorage) {
		s.guessFormat = g
	}
}

// WithMetaLoader installs a per-post metadata loader whose fields override the derived ones
func WithMetaLoader(m domain.MetaLoader) FileSystemOption {
	return func(s *FileSystemStorage) {
		s.meta = m
	}
}

// WithFileTimes replaces how creation and modification times are read
func WithFileTimes(ft FileTimes) FileSystemOption {
	return func(s *FileSystemStorage) {
		s.fileTimes = ft
	}
}

// NewFileSystemStorage creates a FileSystemStorage rooted at root.
// It fails with a *domain.StorageConfigurationError if root is missing or not a directory.
func NewFileSystemStorage(root string, opts ...FileSystemOption) (*FileSystemStorage, error) {
	s := &FileSystemStorage{
		fs:          afero.NewOsFs(),
		guessFormat: domain.GuessMarkdown,
		meta:        domain.NoMeta,
		fileTimes:   osFileTimes,
	}
	for _, opt := range opts {
		opt(s)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &domain.StorageConfigurationError{Root: root, Reason: "cannot resolve root path", Err: err}
	}

	isDir, err := afero.IsDir(s.fs, absRoot)
	if err != nil {
		return nil, &domain.StorageConfigurationError{Root: root, Reason: "blog root directory not found", Err: err}
	}
	if !isDir {
		return nil, &domain.StorageConfigurationError{Root: root, Reason: "blog root is not a directory"}
	}

	s.root = absRoot
	return s, nil
}

// Root returns the absolute root directory
func (s *FileSystemStorage) Root() string {
	return s.root
}

// Posts returns every non-draft post with an index file, oldest first
func (s *FileSystemStorage) Posts(ctx context.Context) ([]*domain.Post, error) {
	postsDir := filepath.Join(s.root, postsDirName)
	posts := make([]*domain.Post, 0)

	// a missing posts directory, or a file in its place, holds no posts
	if isDir, err := afero.IsDir(s.fs, postsDir); errors.Is(err, fs.ErrNotExist) || (err == nil && !isDir) {
		return posts, nil
	}

	entries, err := afero.ReadDir(s.fs, postsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts directory: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !domain.ValidSlug(entry.Name()) {
			continue
		}

		post, ok, err := s.loadPost(ctx, filepath.Join(postsDir, entry.Name()))
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

// PostForSlug loads <root>/posts/<slug> directly
func (s *FileSystemStorage) PostForSlug(ctx context.Context, slug string) (*domain.Post, bool, error) {
	if !domain.ValidSlug(slug) {
		return nil, false, nil
	}
	return s.loadPost(ctx, filepath.Join(s.root, postsDirName, slug))
}

// Options reads <root>/options.yaml; a missing file means no options
func (s *FileSystemStorage) Options(_ context.Context) (domain.Options, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.root, optionsFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Options{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	return decodeOptions(data)
}

// loadPost parses a single post directory. ok is false when dir is not a
// directory, has no index file, or carries a draft marker.
func (s *FileSystemStorage) loadPost(ctx context.Context, dir string) (*domain.Post, bool, error) {
	info, err := s.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, false, nil
	}

	indexPath := filepath.Join(dir, indexFileName)
	if !s.isFile(indexPath) || s.isFile(filepath.Join(dir, draftFileName)) {
		return nil, false, nil
	}

	content, err := afero.ReadFile(s.fs, indexPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read post file: %w", err)
	}

	slug := filepath.Base(dir)
	created, modified := s.fileTimes(s.fs, dir, info)

	post := &domain.Post{
		Slug:          slug,
		Title:         domain.TitleFromSlug(slug),
		Content:       string(content),
		Format:        s.guessFormat(indexPath),
		CreatedAt:     created,
		ModifiedAt:    modified,
		AuthorName:    domain.DefaultAuthorName,
		CanonicalPath: domain.CanonicalPath(slug),
		MediaPath:     filepath.Join(s.root, postsDirName, slug) + string(filepath.Separator),
	}

	meta, err := s.meta.LoadMeta(ctx, slug, dir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load metadata for post %s: %w", slug, err)
	}
	meta.Apply(post)

	log.Debug().Str("slug", slug).Str("dir", dir).Msg("Loaded post")
	return post, true, nil
}

func (s *FileSystemStorage) isFile(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// osFileTimes reads birth time from the OS when the storage sits on the real filesystem
func osFileTimes(fsys afero.Fs, path string, info os.FileInfo) (*time.Time, time.Time) {
	if _, ok := fsys.(*afero.OsFs); !ok {
		return nil, info.ModTime()
	}
	return birthTime(path, info), info.ModTime()
}

func decodeOptions(data []byte) (domain.Options, error) {
	opts := domain.Options{}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("failed to parse options: %w", err)
	}
	return opts, nil
}
