package command

// root.go defines the root command for the yamdb admin CLI.
// Every subcommand talks to the database directly; none goes through the HTTP API.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/freemirror/yamdb-final/database"
	"github.com/freemirror/yamdb-final/internal/config"
	"github.com/freemirror/yamdb-final/pkg/logger"
)

var (
	databaseURL string // overrides DATABASE_URL
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yamdb",
	Short: "yamdb - YaMDb administration tool",
	Long: `yamdb manages the YaMDb database outside the HTTP API:
- Apply the schema
- Create superusers
- Bulk load the CSV fixtures

Use "yamdb command --help" to see the options of a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		return logger.Init(true, level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(migrateCmd, createSuperuserCmd, loadCSVCmd)
}

// loadConfig reads the environment and applies the --database-url override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	return cfg, nil
}

// openDB connects with gorm and makes sure the schema is current.
func openDB() (*gorm.DB, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.OpenGorm(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}
	return db, cfg, nil
}
