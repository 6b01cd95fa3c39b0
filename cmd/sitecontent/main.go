// Command sitecontent serves the site content document and its admin API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitecontent/internal/content/config"
	"sitecontent/internal/shared/logger"
)

var (
	envFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sitecontent",
	Short: "Live site content service for Global XT",
	Long: `sitecontent keeps the site's content document in a document store,
serves it with per-field defaults, and runs the admin edit pipeline.

Available subcommands:
  serve - Run the HTTP and WebSocket server
  seed  - Write the bundled defaults into the configured store
  sign  - Print signed upload parameters for the asset host
  token - Issue an admin bearer token`,
	SilenceUsage: true,
}

func loadConfig() (*config.Config, logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if envFile != "" {
		if err = loadEnvFile(envFile); err != nil {
			return nil, nil, err
		}
		cfg, err = config.Parse()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Log.Level = "DEBUG"
	}
	return cfg, logger.New(cfg.Log), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of .env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
