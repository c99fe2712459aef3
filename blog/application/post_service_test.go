package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/dfryer1193/commotion/blog/persistence"
	"github.com/dfryer1193/commotion/shared/db/sqlite"
)

type fakeStorage struct {
	posts   []*domain.Post
	options domain.Options
	err     error
}

func (f *fakeStorage) Posts(context.Context) ([]*domain.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func (f *fakeStorage) PostForSlug(_ context.Context, slug string) (*domain.Post, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeStorage) Options(context.Context) (domain.Options, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.options, nil
}

func newPost(slug string, content string, created time.Time) *domain.Post {
	return &domain.Post{
		Slug:          slug,
		Title:         domain.TitleFromSlug(slug),
		Content:       content,
		Format:        domain.FormatMarkdown,
		CreatedAt:     &created,
		ModifiedAt:    created,
		AuthorName:    domain.DefaultAuthorName,
		CanonicalPath: domain.CanonicalPath(slug),
		MediaPath:     "/blog/posts/" + slug + "/",
	}
}

func setupRepository(t *testing.T) *persistence.SQLitePostRepository {
	t.Helper()
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(t.TempDir(), "import.db")})
	if err := database.Connect(context.Background()); err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return persistence.NewPostRepository(database.DB())
}

func TestPostService_ListPosts(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := newPost("raw", "<p>already html</p>", base.Add(time.Hour))
	raw.Format = formatHTML

	service := NewPostService(&fakeStorage{posts: []*domain.Post{
		newPost("hello", "# Hello\nFirst paragraph.\n\nSecond", base),
		raw,
	}}, NewMarkdownRenderer())

	summaries, err := service.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ListPosts returned %d summaries, want 2", len(summaries))
	}
	if summaries[0].Post.Slug != "hello" || summaries[0].Snippet != "First paragraph." {
		t.Errorf("summaries[0] = %+v", summaries[0])
	}
	if summaries[1].Snippet != "" {
		t.Errorf("non-markdown posts should have no snippet, got %q", summaries[1].Snippet)
	}
}

func TestPostService_ListPosts_Error(t *testing.T) {
	service := NewPostService(&fakeStorage{err: errors.New("disk on fire")}, NewMarkdownRenderer())

	if _, err := service.ListPosts(context.Background()); err == nil {
		t.Error("Expected storage error to propagate")
	}
}

func TestPostService_GetPost(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	plain := newPost("plain", "a < b", base)
	plain.Format = "text"

	service := NewPostService(&fakeStorage{posts: []*domain.Post{
		newPost("hello", "# Hello\n\n![cat](cat.png)", base),
		plain,
	}}, NewMarkdownRenderer())

	tests := []struct {
		name     string
		slug     string
		wantErr  error
		wantHTML string
	}{
		{name: "Markdown", slug: "hello", wantHTML: `src="/post/hello/media/cat.png"`},
		{name: "Escaped plain text", slug: "plain", wantHTML: "<pre>a &lt; b</pre>"},
		{name: "Missing", slug: "nope", wantErr: ErrPostNotFound},
		{name: "Invalid slug", slug: "../etc", wantErr: ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered, err := service.GetPost(context.Background(), tt.slug)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetPost(%q) error = %v, want %v", tt.slug, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetPost(%q) failed: %v", tt.slug, err)
			}
			if rendered.Post.Slug != tt.slug {
				t.Errorf("Post.Slug = %q, want %q", rendered.Post.Slug, tt.slug)
			}
			if !strings.Contains(rendered.HTML, tt.wantHTML) {
				t.Errorf("HTML = %q, want it to contain %q", rendered.HTML, tt.wantHTML)
			}
		})
	}
}

func TestPostService_GetPost_StorageError(t *testing.T) {
	service := NewPostService(&fakeStorage{err: errors.New("timeout")}, NewMarkdownRenderer())

	_, err := service.GetPost(context.Background(), "hello")
	if err == nil || errors.Is(err, ErrPostNotFound) {
		t.Errorf("GetPost error = %v, want a storage error", err)
	}
}

func TestPostService_Options(t *testing.T) {
	service := NewPostService(&fakeStorage{options: domain.Options{"title": "Commotion"}}, NewMarkdownRenderer())

	opts, err := service.Options(context.Background())
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if opts["title"] != "Commotion" {
		t.Errorf("title = %v, want %v", opts["title"], "Commotion")
	}
}

func TestPostService_Import(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := setupRepository(t)

	// a post that was removed from the source since the last import
	if err := repo.SavePost(ctx, newPost("removed", "gone", base)); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	source := &fakeStorage{
		posts: []*domain.Post{
			newPost("first", "# First", base.Add(time.Hour)),
			newPost("second", "# Second", base.Add(2*time.Hour)),
		},
		options: domain.Options{"title": "Commotion"},
	}
	service := NewPostService(source, NewMarkdownRenderer())

	report, err := service.Import(ctx, repo)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Imported != 2 || report.Unpublished != 1 || report.Failed != 0 {
		t.Errorf("report = %+v, want 2 imported and 1 unpublished", report)
	}

	posts, err := repo.Posts(ctx)
	if err != nil {
		t.Fatalf("Posts failed: %v", err)
	}
	if len(posts) != 2 || posts[0].Slug != "first" || posts[1].Slug != "second" {
		t.Errorf("imported posts = %v", posts)
	}

	opts, err := repo.Options(ctx)
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if opts["title"] != "Commotion" {
		t.Errorf("title = %v, want %v", opts["title"], "Commotion")
	}

	// a second run changes nothing
	report, err = service.Import(ctx, repo)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Imported != 2 || report.Unpublished != 0 {
		t.Errorf("second report = %+v", report)
	}
}

type failingRepository struct {
	*persistence.SQLitePostRepository
	failSlug string
}

func (f *failingRepository) SavePost(ctx context.Context, p *domain.Post) error {
	if p.Slug == f.failSlug {
		return errors.New("constraint failed")
	}
	return f.SQLitePostRepository.SavePost(ctx, p)
}

func TestPostService_Import_PartialFailure(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &failingRepository{SQLitePostRepository: setupRepository(t), failSlug: "bad"}

	service := NewPostService(&fakeStorage{posts: []*domain.Post{
		newPost("bad", "x", base),
		newPost("good", "y", base.Add(time.Hour)),
	}}, NewMarkdownRenderer())

	report, err := service.Import(ctx, repo)
	if err == nil {
		t.Fatal("Expected the failed post to be reported")
	}
	if report.Imported != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want 1 imported and 1 failed", report)
	}
	if _, ok, _ := repo.PostForSlug(ctx, "good"); !ok {
		t.Error("good post should have been imported despite the failure")
	}
}

func TestPostService_Import_SourceError(t *testing.T) {
	service := NewPostService(&fakeStorage{err: errors.New("unreachable")}, NewMarkdownRenderer())

	if _, err := service.Import(context.Background(), setupRepository(t)); err == nil {
		t.Error("Expected source error to propagate")
	}
}

func TestPostService_MediaFile(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mediaDir := t.TempDir()
	for _, name := range []string{"cat.png", filepath.Join("img", "dog.png"), "secret"} {
		file := filepath.Join(mediaDir, name)
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			t.Fatalf("failed to create media dir: %v", err)
		}
		if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write media file: %v", err)
		}
	}

	hello := newPost("hello", "x", base)
	hello.MediaPath = mediaDir + string(filepath.Separator)
	remote := newPost("remote", "x", base)
	remote.MediaPath = "s3://bucket/posts/remote/"

	service := NewPostService(&fakeStorage{posts: []*domain.Post{hello, remote}}, NewMarkdownRenderer())

	tests := []struct {
		name    string
		slug    string
		file    string
		want    string
		wantErr error
	}{
		{name: "Plain file", slug: "hello", file: "cat.png", want: filepath.Join(mediaDir, "cat.png")},
		{name: "Leading slash from wildcard", slug: "hello", file: "/img/dog.png", want: filepath.Join(mediaDir, "img", "dog.png")},
		{name: "Traversal stays inside", slug: "hello", file: "../../secret", want: filepath.Join(mediaDir, "secret")},
		{name: "Subdirectory", slug: "hello", file: "img", wantErr: ErrMediaNotFound},
		{name: "Directory itself", slug: "hello", file: "/", wantErr: ErrMediaNotFound},
		{name: "Missing file", slug: "hello", file: "nope.png", wantErr: ErrMediaNotFound},
		{name: "Remote media", slug: "remote", file: "cat.png", wantErr: ErrMediaNotFound},
		{name: "Unknown post", slug: "nope", file: "cat.png", wantErr: ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.MediaFile(context.Background(), tt.slug, tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("MediaFile error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MediaFile failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("MediaFile() = %q, want %q", got, tt.want)
			}
		})
	}
}
