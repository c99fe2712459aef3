package main

import (
	"fmt"
	"io"

	"github.com/dfryer1193/commotion/blog/application"
	"github.com/dfryer1193/commotion/blog/persistence"
	"github.com/dfryer1193/commotion/shared/db/sqlite"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importDB string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy published posts into a SQLite mirror",
	Long: `Copy every published post and the site options from --storage into a
SQLite database. Posts that are no longer published are unpublished in the
mirror. Running it again with unchanged storage changes nothing.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importDB, "db", "", "SQLite database path (defaults to $SQLITE_DB_PATH or ./commotion.db)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := importDB
	if path == "" {
		path = cfg.Mirror
	}
	dbCfg := sqlite.NewSQLiteConfig()
	if path != "" {
		dbCfg.Path = path
	}

	storage, closer, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	database := sqlite.NewSQLiteDB(dbCfg)
	if err := database.Connect(ctx); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	service := application.NewPostService(storage, application.NewMarkdownRenderer())
	report, err := service.Import(ctx, persistence.NewPostRepository(database.DB()))
	printReport(cmd.OutOrStdout(), database.Path(), report)
	return err
}

func printReport(w io.Writer, path string, report application.ImportReport) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)

	fmt.Fprintf(w, "Imported into %s\n", path)
	green.Fprintf(w, "  %d imported\n", report.Imported)
	yellow.Fprintf(w, "  %d unpublished\n", report.Unpublished)
	if report.Failed > 0 {
		red.Fprintf(w, "  %d failed\n", report.Failed)
	}
}
