package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"spmodel/infrastructure/config"
	"spmodel/logging"
)

const (
	FlagEnvFile     = "env-file"
	FlagSchema      = "schema"
	FlagEnvironment = "environment"
)

// cli carries the configuration shared by every command.
type cli struct {
	envFile     string
	schemaPath  string
	environment string

	cfg    *config.AppConfig
	logger *logging.Logger
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "splist",
		Short:        "Query and browse SharePoint lists through the SOAP web services",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initialize()
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, FlagEnvFile, ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&c.schemaPath, FlagSchema, "", "list schema file (overrides SP_SCHEMA_PATH)")
	root.PersistentFlags().StringVar(&c.environment, FlagEnvironment, "", "deployment environment used to resolve list GUIDs (overrides SP_ENVIRONMENT)")

	root.AddCommand(
		c.serveCmd(),
		c.listsCmd(),
		c.siteListsCmd(),
		c.itemsCmd(),
		c.itemCmd(),
		c.historyCmd(),
		c.fieldsCmd(),
		c.whoamiCmd(),
	)
	return root
}

func (c *cli) initialize() error {
	loadEnvironment(c.envFile)
	cfg := config.LoadAppConfigFromEnv()
	if c.schemaPath != "" {
		cfg.SchemaPath = c.schemaPath
	}
	if c.environment != "" {
		cfg.Environment = c.environment
	}
	if _, err := time.LoadLocation(cfg.Query.Location); err != nil {
		return fmt.Errorf("SP_TIME_ZONE: %w", err)
	}

	c.cfg = cfg
	c.logger = initializeLogging(cfg)
	return nil
}

func loadEnvironment(path string) {
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}
}

func initializeLogging(cfg *config.AppConfig) *logging.Logger {
	logger := logging.NewLogger(cfg.Logging)
	logging.SetDefault(logger)

	logger.Debug("Configuration loaded",
		"log_level", cfg.Logging.Level,
		"log_format", cfg.Logging.Format,
		"schema", cfg.SchemaPath,
		"environment", cfg.Environment,
		"db_path", cfg.Database.Path,
	)
	return logger
}
