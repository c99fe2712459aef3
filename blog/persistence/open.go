package persistence

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/dfryer1193/commotion/shared/db/sqlite"
	gh "github.com/dfryer1193/commotion/shared/github"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type openConfig struct {
	fs            afero.Fs
	frontMatter   bool
	history       domain.SourceRepository
	historyPrefix string
	githubToken   string
}

// OpenOption configures Open
type OpenOption func(*openConfig)

// OpenWithFs makes filesystem storages read from fsys
func OpenWithFs(fsys afero.Fs) OpenOption {
	return func(c *openConfig) {
		c.fs = fsys
	}
}

// OpenWithFrontMatter enables front matter overrides. Filesystem storage only.
func OpenWithFrontMatter() OpenOption {
	return func(c *openConfig) {
		c.frontMatter = true
	}
}

// OpenWithHistory takes timestamps and authors from the commit history of source
func OpenWithHistory(source domain.SourceRepository, prefix string) OpenOption {
	return func(c *openConfig) {
		c.history = source
		c.historyPrefix = prefix
	}
}

// OpenWithGithubToken authenticates github:// storage
func OpenWithGithubToken(token string) OpenOption {
	return func(c *openConfig) {
		c.githubToken = token
	}
}

// newGitHubSource is replaced in tests
var newGitHubSource = func(owner string, repo string, token string) domain.SourceRepository {
	return gh.NewGithubSourceRepository(gh.NewClient(nil, token), owner, repo)
}

// newS3Client is replaced in tests
var newS3Client = func(ctx context.Context) (S3API, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open resolves a storage URI into a backend:
//
//	/path/to/blog, file:///path/to/blog  filesystem
//	sqlite:///path/to/commotion.db       SQLite mirror
//	s3://bucket/prefix                   S3 bucket
//	github://owner/repo/prefix           default branch of a GitHub repository
//
// The returned io.Closer releases backend resources and is never nil on success.
func Open(ctx context.Context, uri string, opts ...OpenOption) (domain.Storage, io.Closer, error) {
	cfg := &openConfig{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(cfg)
	}

	scheme, location, err := splitStorageURI(uri)
	if err != nil {
		return nil, nil, &domain.StorageConfigurationError{Root: uri, Reason: "invalid storage URI", Err: err}
	}

	var history domain.MetaLoader
	if cfg.history != nil {
		history = NewGitHistoryMetaLoader(cfg.history, cfg.historyPrefix)
	}

	switch scheme {
	case "", "file":
		var frontMatter domain.MetaLoader
		if cfg.frontMatter {
			frontMatter = NewFrontMatterMetaLoader(cfg.fs)
		}
		storage, err := NewFileSystemStorage(location,
			WithFs(cfg.fs),
			WithMetaLoader(domain.ChainMetaLoaders(history, frontMatter)),
		)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("root", storage.Root()).Msg("Using filesystem storage")
		return storage, nopCloser{}, nil

	case "sqlite":
		if cfg.frontMatter || cfg.history != nil {
			log.Warn().Str("uri", uri).Msg("Metadata loaders are ignored for SQLite storage; metadata is applied on import")
		}
		database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: location})
		if err := database.Connect(ctx); err != nil {
			return nil, nil, &domain.StorageConfigurationError{Root: uri, Reason: "cannot open database", Err: err}
		}
		log.Info().Str("path", location).Msg("Using SQLite storage")
		return NewPostRepository(database.DB()), database, nil

	case "s3":
		if cfg.frontMatter {
			return nil, nil, &domain.StorageConfigurationError{Root: uri, Reason: "front matter is only supported on filesystem storage"}
		}
		bucket, prefix, _ := strings.Cut(location, "/")
		client, err := newS3Client(ctx)
		if err != nil {
			return nil, nil, &domain.StorageConfigurationError{Root: uri, Reason: "cannot load AWS configuration", Err: err}
		}
		storage, err := NewS3Storage(ctx, client, bucket, prefix, WithS3MetaLoader(domain.ChainMetaLoaders(history)))
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("bucket", bucket).Str("prefix", prefix).Msg("Using S3 storage")
		return storage, nopCloser{}, nil

	case "github":
		if cfg.frontMatter {
			return nil, nil, &domain.StorageConfigurationError{Root: uri, Reason: "front matter is only supported on filesystem storage"}
		}
		if cfg.history != nil {
			log.Warn().Str("uri", uri).Msg("GitHub storage always reads its own history; the configured history source is ignored")
		}
		parts := strings.SplitN(location, "/", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, nil, &domain.StorageConfigurationError{Root: uri, Reason: "want github://owner/repo[/prefix]"}
		}
		var prefix string
		if len(parts) == 3 {
			prefix = parts[2]
		}
		storage, err := NewGitHubStorage(ctx, newGitHubSource(parts[0], parts[1], cfg.githubToken), prefix)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("repo", storage.RepoFullName()).Str("prefix", prefix).Msg("Using GitHub storage")
		return storage, nopCloser{}, nil
	}

	return nil, nil, &domain.StorageConfigurationError{Root: uri, Reason: fmt.Sprintf("unsupported storage scheme %q", scheme)}
}

// splitStorageURI returns the scheme and the location following it.
// Bare paths have an empty scheme.
func splitStorageURI(uri string) (scheme string, location string, err error) {
	if uri == "" {
		return "", "", fmt.Errorf("empty storage URI")
	}
	if !strings.Contains(uri, "://") {
		return "", uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}

	location = u.Host + u.Path
	if location == "" {
		return "", "", fmt.Errorf("storage URI %q has no location", uri)
	}
	return strings.ToLower(u.Scheme), location, nil
}
