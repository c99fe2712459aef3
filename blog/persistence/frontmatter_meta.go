package persistence

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/spf13/afero"
)

var _ domain.MetaLoader = (*FrontMatterMetaLoader)(nil)

// FrontMatterMetaLoader reads YAML (or TOML/JSON) front matter at the top of
// index.markdown. When front matter is present the body without it becomes
// the post content.
type FrontMatterMetaLoader struct {
	fs afero.Fs
}

// NewFrontMatterMetaLoader creates a loader reading post files from fsys
func NewFrontMatterMetaLoader(fsys afero.Fs) *FrontMatterMetaLoader {
	return &FrontMatterMetaLoader{fs: fsys}
}

type frontMatterEnvelope struct {
	Title   string    `yaml:"title" toml:"title" json:"title"`
	Author  string    `yaml:"author" toml:"author" json:"author"`
	Format  string    `yaml:"format" toml:"format" json:"format"`
	Date    time.Time `yaml:"date" toml:"date" json:"date"`
	Updated time.Time `yaml:"updated" toml:"updated" json:"updated"`
}

func (l *FrontMatterMetaLoader) LoadMeta(_ context.Context, _ string, dir string) (domain.PostMeta, error) {
	source, err := afero.ReadFile(l.fs, filepath.Join(dir, indexFileName))
	if err != nil {
		return domain.PostMeta{}, fmt.Errorf("failed to read post file: %w", err)
	}

	return ParseFrontMatter(source)
}

// ParseFrontMatter turns the front matter of source into post overrides.
// Sources without front matter produce no overrides.
func ParseFrontMatter(source []byte) (domain.PostMeta, error) {
	var env frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &env)
	if err != nil {
		return domain.PostMeta{}, fmt.Errorf("failed to parse front matter: %w", err)
	}

	if len(body) == len(source) {
		return domain.PostMeta{}, nil
	}

	content := strings.TrimLeft(string(body), "\r\n")
	meta := domain.PostMeta{Content: &content}

	if title := strings.TrimSpace(env.Title); title != "" {
		meta.Title = &title
	}
	if author := strings.TrimSpace(env.Author); author != "" {
		meta.AuthorName = &author
	}
	if format := strings.TrimSpace(env.Format); format != "" {
		meta.Format = &format
	}
	if !env.Date.IsZero() {
		created := env.Date
		meta.CreatedAt = &created
	}
	if !env.Updated.IsZero() {
		modified := env.Updated
		meta.ModifiedAt = &modified
	}

	return meta, nil
}
