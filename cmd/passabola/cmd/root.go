// Package cmd provides the CLI commands for passabola.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/passa-a-bola/web/internal/config"
)

var cfgFile string
var devMode bool

var rootCmd = &cobra.Command{
	Use:   "passabola",
	Short: "passa-a-bola web core: session, endpoints and proxy",
	Long: `passabola manages a passa-a-bola login session and talks to the backend
the same way the web pages do.

Quick start:
  1. Start the backend (default http://backend:8000, or set INTERNAL_API_URL)
  2. Run: passabola login --email you@example.com
  3. Run: passabola status

Configuration:
  Config is loaded from passabola.yaml in the current directory,
  $HOME/.passabola/, or /etc/passabola/.

  Environment variables can override config values with the PASSABOLA_ prefix.
  Example: PASSABOLA_STORAGE_DRIVER=sqlite

  Backend origins also honor INTERNAL_API_URL and PUBLIC_API_URL.

Commands:
  login       Exchange credentials for a session
  logout      Clear the session
  status      Show the current session
  resolve     Show the URL a logical path resolves to
  fetch       GET a backend path with the session token
  like        Toggle the like on a feed post
  serve       Run the same-origin proxy
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./passabola.yaml)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, tracing)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
