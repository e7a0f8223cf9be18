// Package cli implements the faultd command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faultd/faultd/pkg/config"
)

var (
	// Persistent flags available to all subcommands.
	configFile string
	configDir  string
	rulesGlob  string
	logLevel   string
	logFormat  string

	// Version is injected during build.
	Version = "dev"
	// Commit is injected during build.
	Commit = "none"
	// BuildDate is injected during build.
	BuildDate = "unknown"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "faultd",
	Short: "faultd is a transparent HTTP fault-injection proxy",
	Long: `faultd intercepts plain HTTP traffic and applies configured fault rules:
aborted connections, injected latency, and rewritten requests and responses.

Rules are declared in a JSON or YAML config file and matched against each
exchange by port, path, method, headers, or status code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (.json, .yaml, or .yml)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory of config files to merge")
	rootCmd.PersistentFlags().StringVar(&rulesGlob, "rules-glob", "", "Glob pattern for files under --config-dir (default \"**/*.{json,yaml,yml}\")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// loadConfig resolves the --config / --config-dir flags into a loaded,
// validated config document.
func loadConfig() (*config.Config, error) {
	switch {
	case configFile != "" && configDir != "":
		return nil, fmt.Errorf("--config and --config-dir are mutually exclusive")
	case configFile != "":
		return config.Load(configFile)
	case configDir != "":
		return config.LoadDir(configDir, rulesGlob)
	default:
		return nil, fmt.Errorf("one of --config or --config-dir is required")
	}
}
