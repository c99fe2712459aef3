package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/google/go-github/v75/github"
)

// GithubSourceRepository is an implementation of domain.SourceRepository that uses the GitHub API.
type GithubSourceRepository struct {
	client  *github.Client
	owner   string
	gitRepo string
}

// NewGithubSourceRepository creates a new GithubSourceRepository.
func NewGithubSourceRepository(client *github.Client, owner string, gitRepo string) domain.SourceRepository {
	return &GithubSourceRepository{
		client:  client,
		owner:   owner,
		gitRepo: gitRepo,
	}
}

// NewClient returns a GitHub client, authenticated when token is not empty.
func NewClient(httpClient *http.Client, token string) *github.Client {
	client := github.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// ParseRepo splits "owner/repo" into its parts.
func ParseRepo(fullName string) (owner string, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("github: invalid repository %q, want owner/repo", fullName)
	}
	return owner, repo, nil
}

// ListCommitsForPath fetches every commit touching path on the default branch, newest first, handling pagination.
func (g *GithubSourceRepository) ListCommitsForPath(ctx context.Context, path string) ([]*github.RepositoryCommit, error) {
	op := fmt.Sprintf("listing commits for %s", path)
	var allCommits []*github.RepositoryCommit
	opts := &github.CommitsListOptions{
		Path:        path,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		commits, resp, err := g.client.Repositories.ListCommits(ctx, g.owner, g.gitRepo, opts)
		if err != nil {
			return nil, handleGithubError(op, err)
		}

		allCommits = append(allCommits, commits...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return allCommits, nil
}

// ListDirectory lists the entries directly inside dir on the default branch.
// A path that is missing or names a file wraps domain.ErrSourceNotFound.
func (g *GithubSourceRepository) ListDirectory(ctx context.Context, dir string) ([]*github.RepositoryContent, error) {
	op := fmt.Sprintf("listing directory %q", dir)
	file, entries, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.gitRepo, dir, nil)
	if err != nil {
		return nil, handleGithubError(op, err)
	}
	if file != nil {
		return nil, fmt.Errorf("github: %s: is a file: %w", op, domain.ErrSourceNotFound)
	}
	return entries, nil
}

// GetFileContents fetches the contents of a file on the default branch.
// The contents API only inlines files up to 1 MB; larger files fail to decode.
func (g *GithubSourceRepository) GetFileContents(ctx context.Context, path string) ([]byte, error) {
	op := fmt.Sprintf("getting file %s", path)
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.gitRepo, path, nil)
	if err != nil {
		return nil, handleGithubError(op, err)
	}
	if file == nil {
		return nil, fmt.Errorf("github: %s: is a directory: %w", op, domain.ErrSourceNotFound)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("github: %s failed to decode content: %w", op, err)
	}
	return []byte(content), nil
}

// GetRepoFullName returns the repository's full name (e.g., "owner/repo").
func (g *GithubSourceRepository) GetRepoFullName() string {
	return fmt.Sprintf("%s/%s", g.owner, g.gitRepo)
}

// handleGithubError inspects an error from the go-github client and returns a more informative, structured error.
func handleGithubError(op string, err error) error {
	if err == nil {
		return nil
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		var status int
		if errResp.Response != nil {
			status = errResp.Response.StatusCode
		}
		if status == http.StatusNotFound {
			return fmt.Errorf("github: %s failed with status %d: %s: %w", op, status, errResp.Message, domain.ErrSourceNotFound)
		}
		return fmt.Errorf("github: %s failed with status %d: %s", op, status, errResp.Message)
	}

	return fmt.Errorf("github: %s failed: %w", op, err)
}
