package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.Storage = (*S3Storage)(nil)

// S3API is the subset of the S3 client the storage needs
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Storage implements domain.Storage over objects laid out like the filesystem backend:
// <prefix>posts/<slug>/index.markdown with an optional <prefix>posts/<slug>/DRAFT.
// S3 has no creation time, so CreatedAt is only set by a meta loader.
type S3Storage struct {
	client      S3API
	bucket      string
	prefix      string
	guessFormat domain.FormatGuesser
	meta        domain.MetaLoader
}

// S3Option configures an S3Storage
type S3Option func(*S3Storage)

// WithS3MetaLoader installs a per-post metadata loader. dir is the post's key prefix.
func WithS3MetaLoader(m domain.MetaLoader) S3Option {
	return func(s *S3Storage) {
		s.meta = m
	}
}

// WithS3FormatGuesser replaces the format heuristic
func WithS3FormatGuesser(g domain.FormatGuesser) S3Option {
	return func(s *S3Storage) {
		s.guessFormat = g
	}
}

// NewS3Storage creates an S3Storage reading from bucket under prefix.
// It fails with a *domain.StorageConfigurationError when the bucket cannot be reached.
func NewS3Storage(ctx context.Context, client S3API, bucket string, prefix string, opts ...S3Option) (*S3Storage, error) {
	root := "s3://" + path.Join(bucket, prefix)
	if bucket == "" {
		return nil, &domain.StorageConfigurationError{Root: root, Reason: "bucket name is empty"}
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, &domain.StorageConfigurationError{Root: root, Reason: "bucket not reachable", Err: err}
	}

	s := &S3Storage{
		client:      client,
		bucket:      bucket,
		prefix:      normalizePrefix(prefix),
		guessFormat: domain.GuessMarkdown,
		meta:        domain.NoMeta,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Posts lists every slug prefix under posts/ and loads each, oldest first
func (s *S3Storage) Posts(ctx context.Context) ([]*domain.Post, error) {
	postsPrefix := s.prefix + postsDirName + "/"
	posts := make([]*domain.Post, 0)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(postsPrefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list posts in bucket %s: %w", s.bucket, err)
		}

		for _, cp := range page.CommonPrefixes {
			slug := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), postsPrefix), "/")
			if !domain.ValidSlug(slug) {
				continue
			}

			post, ok, err := s.loadPost(ctx, slug)
			if err != nil {
				return nil, err
			}
			if ok {
				posts = append(posts, post)
			}
		}
	}

	domain.SortByCreation(posts)
	return posts, nil
}

// PostForSlug loads the objects under posts/<slug>/
func (s *S3Storage) PostForSlug(ctx context.Context, slug string) (*domain.Post, bool, error) {
	if !domain.ValidSlug(slug) {
		return nil, false, nil
	}
	return s.loadPost(ctx, slug)
}

// Options reads the options.yaml object; a missing object means no options
func (s *S3Storage) Options(ctx context.Context) (domain.Options, error) {
	data, _, err := s.getObject(ctx, s.prefix+optionsFileName)
	if isNoSuchKey(err) {
		return domain.Options{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	return decodeOptions(data)
}

func (s *S3Storage) loadPost(ctx context.Context, slug string) (*domain.Post, bool, error) {
	dir := s.prefix + path.Join(postsDirName, slug) + "/"
	indexKey := dir + indexFileName

	var hasIndex, isDraft bool
	var modified time.Time

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(dir),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to list post %s: %w", slug, err)
		}
		for _, obj := range page.Contents {
			switch aws.ToString(obj.Key) {
			case indexKey:
				hasIndex = true
				modified = aws.ToTime(obj.LastModified)
			case dir + draftFileName:
				isDraft = true
			}
		}
	}

	if !hasIndex || isDraft {
		return nil, false, nil
	}

	content, lastModified, err := s.getObject(ctx, indexKey)
	if isNoSuchKey(err) {
		// removed between listing and reading
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read post file: %w", err)
	}
	if !lastModified.IsZero() {
		modified = lastModified
	}

	post := &domain.Post{
		Slug:          slug,
		Title:         domain.TitleFromSlug(slug),
		Content:       string(content),
		Format:        s.guessFormat(indexKey),
		ModifiedAt:    modified,
		AuthorName:    domain.DefaultAuthorName,
		CanonicalPath: domain.CanonicalPath(slug),
		MediaPath:     "s3://" + s.bucket + "/" + dir,
	}

	meta, err := s.meta.LoadMeta(ctx, slug, dir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load metadata for post %s: %w", slug, err)
	}
	meta.Apply(post)

	log.Debug().Str("slug", slug).Str("bucket", s.bucket).Str("key", indexKey).Msg("Loaded post")
	return post, true, nil
}

func (s *S3Storage) getObject(ctx context.Context, key string) ([]byte, time.Time, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, aws.ToTime(out.LastModified), nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
