package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/dfryer1193/commotion/shared/db"
)

var _ domain.PostRepository = (*SQLitePostRepository)(nil)

// SQLitePostRepository implements domain.PostRepository using SQL database (SQLite)
type SQLitePostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(db *sql.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db: db,
	}
}

const savePostQuery = `
	INSERT INTO posts (slug, title, content, format, author_name, media_path, created_at, modified_at, published_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(slug) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		format = excluded.format,
		author_name = excluded.author_name,
		media_path = excluded.media_path,
		created_at = COALESCE(excluded.created_at, posts.created_at),
		modified_at = excluded.modified_at,
		published_at = COALESCE(posts.published_at, excluded.published_at)
`

// SavePost upserts a post and publishes it if it was not published already.
// A known creation time replaces the stored one; an unknown one keeps it.
func (r *SQLitePostRepository) SavePost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}

	if !domain.ValidSlug(p.Slug) {
		return fmt.Errorf("invalid post slug %q", p.Slug)
	}

	var createdAt any
	if p.CreatedAt != nil {
		createdAt = p.CreatedAt.UTC()
	}

	executor := db.ExecutorFor(ctx, r.db)
	_, err := executor.ExecContext(ctx, savePostQuery,
		p.Slug,
		p.Title,
		p.Content,
		p.Format,
		p.AuthorName,
		p.MediaPath,
		createdAt,
		p.ModifiedAt.UTC(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}

	return nil
}

const selectPostColumns = `
	SELECT slug, title, content, format, author_name, media_path, created_at, modified_at
	FROM posts
`

const getPostQuery = selectPostColumns + `
	WHERE slug = ? AND published_at IS NOT NULL
`

// PostForSlug retrieves a single published post
func (r *SQLitePostRepository) PostForSlug(ctx context.Context, slug string) (*domain.Post, bool, error) {
	if !domain.ValidSlug(slug) {
		return nil, false, nil
	}

	var row postRow
	err := db.ExecutorFor(ctx, r.db).QueryRowContext(ctx, getPostQuery, slug).Scan(row.fields()...)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get post: %w", err)
	}

	return row.toDomain(), true, nil
}

const listPublishedPostsQuery = selectPostColumns + `
	WHERE published_at IS NOT NULL
	ORDER BY COALESCE(created_at, modified_at) ASC, slug ASC
`

// Posts retrieves published posts ordered by creation date ascending
func (r *SQLitePostRepository) Posts(ctx context.Context) ([]*domain.Post, error) {
	rows, err := db.ExecutorFor(ctx, r.db).QueryContext(ctx, listPublishedPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0)
	for rows.Next() {
		var row postRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, row.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	// timestamps are stored as text, so the SQL order is only a first pass
	domain.SortByCreation(posts)
	return posts, nil
}

const publishedSlugsQuery = `
	SELECT slug FROM posts WHERE published_at IS NOT NULL ORDER BY slug
`

// PublishedSlugs lists the slugs of every published post
func (r *SQLitePostRepository) PublishedSlugs(ctx context.Context) ([]string, error) {
	rows, err := db.ExecutorFor(ctx, r.db).QueryContext(ctx, publishedSlugsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list published slugs: %w", err)
	}
	defer rows.Close()

	slugs := make([]string, 0)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slug rows: %w", err)
	}

	return slugs, nil
}

const unpublishPostQuery = `
		UPDATE posts
		SET published_at = NULL
		WHERE slug = ?
`

// Unpublish sets the published_at timestamp to NULL for a post
func (r *SQLitePostRepository) Unpublish(ctx context.Context, slug string) error {
	if slug == "" {
		return fmt.Errorf("post slug cannot be empty")
	}

	_, err := db.ExecutorFor(ctx, r.db).ExecContext(ctx, unpublishPostQuery, slug)
	if err != nil {
		return fmt.Errorf("failed to unpublish post: %w", err)
	}

	return nil
}

const (
	listOptionsQuery   = `SELECT key, value FROM options`
	deleteOptionsQuery = `DELETE FROM options`
	insertOptionQuery  = `INSERT INTO options (key, value) VALUES (?, ?)`
)

// Options decodes every stored option
func (r *SQLitePostRepository) Options(ctx context.Context) (domain.Options, error) {
	rows, err := db.ExecutorFor(ctx, r.db).QueryContext(ctx, listOptionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list options: %w", err)
	}
	defer rows.Close()

	opts := domain.Options{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan option row: %w", err)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("failed to decode option %s: %w", key, err)
		}
		opts[key] = value
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option rows: %w", err)
	}

	return opts, nil
}

// SetOptions replaces all stored options within a transaction
func (r *SQLitePostRepository) SetOptions(ctx context.Context, opts domain.Options) error {
	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.ExecutorFor(txCtx, r.db)
		if _, err := executor.ExecContext(txCtx, deleteOptionsQuery); err != nil {
			return fmt.Errorf("failed to clear options: %w", err)
		}

		for key, value := range opts {
			raw, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode option %s: %w", key, err)
			}
			if _, err := executor.ExecContext(txCtx, insertOptionQuery, key, string(raw)); err != nil {
				return fmt.Errorf("failed to store option %s: %w", key, err)
			}
		}

		return nil
	})
}

// postRow is a private struct used to scan database rows
// It uses sql.NullTime to handle the nullable creation time
// and provides a method to convert to the domain.Post model
type postRow struct {
	Slug       string       `db:"slug"`
	Title      string       `db:"title"`
	Content    string       `db:"content"`
	Format     string       `db:"format"`
	AuthorName string       `db:"author_name"`
	MediaPath  string       `db:"media_path"`
	CreatedAt  sql.NullTime `db:"created_at"`
	ModifiedAt time.Time    `db:"modified_at"`
}

func (pr *postRow) fields() []any {
	return []any{
		&pr.Slug,
		&pr.Title,
		&pr.Content,
		&pr.Format,
		&pr.AuthorName,
		&pr.MediaPath,
		&pr.CreatedAt,
		&pr.ModifiedAt,
	}
}

// toDomain converts a postRow to a domain.Post, handling nullable times
func (pr *postRow) toDomain() *domain.Post {
	post := &domain.Post{
		Slug:          pr.Slug,
		Title:         pr.Title,
		Content:       pr.Content,
		Format:        pr.Format,
		AuthorName:    pr.AuthorName,
		ModifiedAt:    pr.ModifiedAt,
		CanonicalPath: domain.CanonicalPath(pr.Slug),
		MediaPath:     pr.MediaPath,
	}

	if pr.CreatedAt.Valid {
		created := pr.CreatedAt.Time
		post.CreatedAt = &created
	}

	return post
}
