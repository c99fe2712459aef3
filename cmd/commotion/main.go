package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/dfryer1193/commotion/blog/persistence"
	"github.com/dfryer1193/commotion/internal/config"
	gh "github.com/dfryer1193/commotion/shared/github"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "commotion",
	Short: "A small blog engine",
	Long: `Commotion serves a blog stored as a directory tree:

  <root>/posts/<slug>/index.markdown

A DRAFT file next to index.markdown keeps a post unpublished.
Storage can also be a SQLite mirror (sqlite:///path/to.db) or an
S3 bucket with the same layout (s3://bucket/prefix), or a GitHub
repository read through the API (github://owner/repo/prefix).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cfg.Debug)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage URI: a path, file://, sqlite://, s3://bucket/prefix or github://owner/repo/prefix")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flags.BoolVar(&cfg.FrontMatter, "frontmatter", cfg.FrontMatter, "read title, author and dates from front matter")
	flags.StringVar(&cfg.GithubRepo, "github-repo", cfg.GithubRepo, "owner/repo holding the blog, used for post history")
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// openStorage opens the configured storage with the configured metadata loaders
func openStorage(ctx context.Context) (domain.Storage, io.Closer, error) {
	opts := []persistence.OpenOption{persistence.OpenWithGithubToken(cfg.GithubToken)}
	if cfg.FrontMatter {
		opts = append(opts, persistence.OpenWithFrontMatter())
	}

	if cfg.GithubRepo != "" {
		owner, repo, err := gh.ParseRepo(cfg.GithubRepo)
		if err != nil {
			return nil, nil, err
		}
		source := gh.NewGithubSourceRepository(gh.NewClient(nil, cfg.GithubToken), owner, repo)
		opts = append(opts, persistence.OpenWithHistory(source, ""))
	}

	return persistence.Open(ctx, cfg.Storage, opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
