package command

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/freemirror/yamdb-final/database"
	"github.com/freemirror/yamdb-final/database/importer"
)

var loadCSVCmd = &cobra.Command{
	Use:   "load-csv [dir]",
	Short: "Bulk load the CSV fixtures",
	Long: `Load category.csv, genre.csv, titles.csv, genre_title.csv, users.csv,
review.csv and comments.csv from dir (default static/data) in one transaction.
Missing files are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "static/data"
		if len(args) == 1 {
			dir = args[0]
		}

		// gorm applies the schema, pgx does the COPY
		db, cfg, err := openDB()
		if err != nil {
			return err
		}
		database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		pool, err := database.OpenPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := importer.LoadPostgres(ctx, pool, dir)
		if err != nil {
			return fmt.Errorf("load-csv: %w", err)
		}

		tables := make([]string, 0, len(res.Loaded))
		for table := range res.Loaded {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			fmt.Printf("✓ %-13s %d rows\n", table, res.Loaded[table])
		}
		for _, file := range res.Skipped {
			fmt.Printf("- %s not found, skipped\n", file)
		}
		return nil
	},
}
