package persistence

import (
	"context"
	"fmt"
	"path"

	"github.com/dfryer1193/commotion/blog/domain"
)

var _ domain.MetaLoader = (*GitHistoryMetaLoader)(nil)

// GitHistoryMetaLoader derives post timestamps and authorship from the commit
// history of the post's index file. This replaces the unreliable filesystem
// creation time when the blog root is a git checkout.
type GitHistoryMetaLoader struct {
	source domain.SourceRepository
	prefix string
}

// NewGitHistoryMetaLoader creates a loader for a blog whose root lives at prefix inside the repository
func NewGitHistoryMetaLoader(source domain.SourceRepository, prefix string) *GitHistoryMetaLoader {
	return &GitHistoryMetaLoader{
		source: source,
		prefix: prefix,
	}
}

func (l *GitHistoryMetaLoader) LoadMeta(ctx context.Context, slug string, _ string) (domain.PostMeta, error) {
	indexPath := path.Join(l.prefix, postsDirName, slug, indexFileName)

	commits, err := l.source.ListCommitsForPath(ctx, indexPath)
	if err != nil {
		return domain.PostMeta{}, fmt.Errorf("failed to get history of %s in %s: %w", indexPath, l.source.GetRepoFullName(), err)
	}
	if len(commits) == 0 {
		return domain.PostMeta{}, nil
	}

	// commits are newest first
	newest := commits[0].GetCommit().GetAuthor()
	oldest := commits[len(commits)-1].GetCommit().GetAuthor()

	var meta domain.PostMeta
	if date := oldest.GetDate(); !date.IsZero() {
		created := date.Time
		meta.CreatedAt = &created
	}
	if date := newest.GetDate(); !date.IsZero() {
		modified := date.Time
		meta.ModifiedAt = &modified
	}
	if name := oldest.GetName(); name != "" {
		meta.AuthorName = &name
	}

	return meta, nil
}
