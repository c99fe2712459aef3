package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var publishNew bool

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a new post",
	Long: `Create posts/<slug>/index.markdown under the storage root.

The slug is the title in lower case with words joined by underscores.
New posts are drafts unless --publish is given. Prompts for the title
when none is passed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: newPost,
}

func init() {
	newCmd.Flags().BoolVar(&publishNew, "publish", false, "publish immediately instead of creating a draft")
	rootCmd.AddCommand(newCmd)
}

func newPost(cmd *cobra.Command, args []string) error {
	if strings.Contains(cfg.Storage, "://") && !strings.HasPrefix(cfg.Storage, "file://") {
		return fmt.Errorf("new posts can only be created on filesystem storage, not %s", cfg.Storage)
	}
	root := strings.TrimPrefix(cfg.Storage, "file://")

	var title string
	if len(args) > 0 {
		title = args[0]
	} else {
		p := &survey.Input{Message: "Post title"}
		if err := survey.AskOne(p, &title, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	dir, err := scaffoldPost(afero.NewOsFs(), root, title, publishNew)
	if err != nil {
		return err
	}

	state := "draft"
	if publishNew {
		state = "published"
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Created %s post %s\n", state, filepath.Join(dir, "index.markdown"))
	return nil
}

// slugify lower-cases title and joins its words with underscores.
// Anything that is not a letter or a digit separates words.
func slugify(title string) (string, error) {
	lower := cases.Lower(language.Und).String(title)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return "", fmt.Errorf("title %q has no letters or digits", title)
	}
	return strings.Join(words, "_"), nil
}

// scaffoldPost creates the post directory and index file for title under root
// and returns the directory. Existing posts are never overwritten.
func scaffoldPost(fsys afero.Fs, root string, title string, publish bool) (string, error) {
	title = strings.TrimSpace(title)
	slug, err := slugify(title)
	if err != nil {
		return "", err
	}
	if !domain.ValidSlug(slug) {
		return "", fmt.Errorf("invalid slug %q", slug)
	}

	dir := filepath.Join(root, "posts", slug)
	exists, err := afero.Exists(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to check for post %s: %w", slug, err)
	}
	if exists {
		return "", errors.New("post " + slug + " already exists")
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create post directory: %w", err)
	}

	if !publish {
		if err := afero.WriteFile(fsys, filepath.Join(dir, "DRAFT"), nil, 0o644); err != nil {
			return "", fmt.Errorf("failed to write draft marker: %w", err)
		}
	}

	if err := afero.WriteFile(fsys, filepath.Join(dir, "index.markdown"), []byte("# "+title+"\n\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write post: %w", err)
	}

	return dir, nil
}
