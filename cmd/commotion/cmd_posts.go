package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List published posts, oldest first",
	RunE:  listPosts,
}

func init() {
	rootCmd.AddCommand(postsCmd)
}

func listPosts(cmd *cobra.Command, args []string) error {
	storage, closer, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer closer.Close()

	posts, err := storage.Posts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}

	printPosts(cmd.OutOrStdout(), posts)
	return nil
}

func printPosts(w io.Writer, posts []*domain.Post) {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	bold := color.New(color.Bold)

	if len(posts) == 0 {
		dim.Fprintln(w, "No published posts")
		return
	}

	cyan.Fprintln(w, strings.Repeat("=", 70))
	cyan.Fprintf(w, "  %d published posts\n", len(posts))
	cyan.Fprintln(w, strings.Repeat("=", 70))

	for _, p := range posts {
		// modification time stands in when the creation time is unknown
		date := "~" + p.ModifiedAt.Format(dateLayout)
		if p.CreatedAt != nil {
			date = " " + p.CreatedAt.Format(dateLayout)
		}

		dim.Fprint(w, date)
		fmt.Fprint(w, "  ")
		bold.Fprint(w, p.Title)
		dim.Fprintf(w, "  (%s)\n", p.Slug)
	}
}
