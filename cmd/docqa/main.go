package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg config.Config

	docsDir   string
	dataDir   string
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Answer questions from a local document collection",
	Long: `docqa indexes .txt, .md and .pdf files from a documents directory and
answers questions grounded in them, citing the sources it used.

Configuration comes from the environment (and an optional .env file);
flags override it.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&docsDir, "docs", "", "documents directory (overrides DOCS_DIR)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory for the index (overrides DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("docqa: %v", err)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := config.Init(&cfg); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("docs") {
		cfg.DocsDir = docsDir
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	logger.Setup(verbose, cfg.LogFormat, os.Stderr)
	return nil
}

// openApp builds the application for commands that need the index.
func openApp() (*app.App, error) {
	return app.New(&cfg)
}
