package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/faultd/faultd/pkg/logging"
	"github.com/faultd/faultd/pkg/pipeline"
	"github.com/faultd/faultd/pkg/proxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the interception proxy",
	Long: `Start one interception server per configured proxy port and apply the
configured fault rules to every exchange until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.ProxyPorts) == 0 {
			return fmt.Errorf("config declares no proxy ports")
		}

		// Flags override the config file's logging section.
		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		format := cfg.Logging.Format
		if logFormat != "" {
			format = logFormat
		}
		logger := logging.New(logging.Config{
			Level:  logging.ParseLevel(level),
			Format: logging.ParseFormat(format),
			Output: os.Stderr,
		})

		rules, err := cfg.Translate()
		if err != nil {
			return err
		}

		pipe := pipeline.New(rules, logger)
		srv, err := proxy.New(proxy.Options{
			Ports:    cfg.ProxyPorts,
			Pipeline: pipe,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting faultd",
			"version", Version,
			"ports", cfg.ProxyPorts,
			"rules", len(rules),
		)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
