package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appbuilder "github.com/chuckbuilds/ledmatrix/internal/app"
	"github.com/chuckbuilds/ledmatrix/internal/config"
	"github.com/chuckbuilds/ledmatrix/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the display daemon",
	Long: `Start the display daemon: the mode rotation loop, the background fetch
scheduler, and the HTTP control API.

Without --config the daemon runs with built-in defaults (clock only).
See examples/ for a sample configuration.`,
	RunE: runServe,
}

const defaultGracefulTimeout = 30 * time.Second

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg := config.Default()
	if configPath := viper.GetString("config"); configPath != "" {
		loaded, err := config.NewLoader().Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		logger.Infof("Loaded configuration from %s", configPath)
	} else {
		logger.Info("No configuration file given, using defaults")
	}

	opts := []appbuilder.DisplayAppOptions{appbuilder.WithConfig(cfg)}
	if address := viper.GetString("address"); address != "" {
		opts = append(opts, appbuilder.WithAddress(address))
	}

	displayApp, err := appbuilder.NewDisplayApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- displayApp.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Infof("Received signal %s", sig)
	}

	return displayApp.Stop(defaultGracefulTimeout)
}
