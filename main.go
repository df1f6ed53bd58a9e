package main

import (
	"fmt"
	"os"

	"blog-api/config"
	"blog-api/server"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/umakantv/go-utils/db/migrations"
)

var (
	portFlag     string
	driverFlag   string
	uploadDirArg string

	migrationName string
	migrationDir  string
)

var rootCmd = &cobra.Command{
	Use:   "blog-api",
	Short: "Blog API - users, posts, tags and image uploads over JSON/HTTP",
	Long: `Blog API serves registration and login with bearer tokens, post CRUD with
view counting, the recent tag list and image uploads.

Configuration is read from the environment (MONGODB_URI, JWT_SECRET, PORT, ...);
flags override the matching variables.`,
	SilenceUsage: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cmd.Flags().Changed("port") {
			cfg.Port = portFlag
		}
		if cmd.Flags().Changed("db-driver") {
			cfg.DatabaseDriver = driverFlag
		}
		if cmd.Flags().Changed("upload-dir") {
			cfg.UploadDir = uploadDirArg
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		server.StartServer(cfg)
		return nil
	},
}

var createMigrationCmd = &cobra.Command{
	Use:   "create-migration",
	Short: "Create an empty timestamped .sql migration for the sqlite store",
	Run: func(cmd *cobra.Command, args []string) {
		migrations.CreateMigration(&migrationName, &migrationDir)
	},
}

func init() {
	startCmd.Flags().StringVar(&portFlag, "port", "4444", "Port to listen on (overrides PORT)")
	startCmd.Flags().StringVar(&driverFlag, "db-driver", config.DriverMongo, "Storage backend: mongo or sqlite (overrides DATABASE_DRIVER)")
	startCmd.Flags().StringVar(&uploadDirArg, "upload-dir", "uploads", "Directory for uploaded files (overrides UPLOAD_DIR)")
	createMigrationCmd.Flags().StringVar(&migrationName, "name", "", "Migration name (alphanum+underscore only)")
	createMigrationCmd.Flags().StringVar(&migrationDir, "dir", "./database/migrations", "Target directory for the new .sql file")

	rootCmd.AddCommand(startCmd, createMigrationCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
