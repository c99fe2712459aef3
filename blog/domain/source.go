package domain

import (
	"context"
	"errors"

	"github.com/google/go-github/v75/github"
)

// ErrSourceNotFound is returned by a SourceRepository for paths that do not exist
// on the default branch, or that are not of the requested kind
var ErrSourceNotFound = errors.New("not found in source repository")

// SourceRepository defines the interface for accessing the blog sources and their version history (e.g., on GitHub).
// All reads are against the default branch.
type SourceRepository interface {
	// ListCommitsForPath returns every commit touching path, newest first
	ListCommitsForPath(ctx context.Context, path string) ([]*github.RepositoryCommit, error)
	// ListDirectory returns the entries directly inside dir; "" is the repository root
	ListDirectory(ctx context.Context, dir string) ([]*github.RepositoryContent, error)
	// GetFileContents returns the decoded contents of the file at path
	GetFileContents(ctx context.Context, path string) ([]byte, error)
	GetRepoFullName() string
}
