// Package app implements the command line of the inkpress daemon.
package app

import (
	"github.com/spf13/cobra"

	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/logger"
)

var (
	configPath string // directory holding main.toml
	devMode    bool

	rootCmd = &cobra.Command{
		Use:   "inkpress",
		Short: "inkpress is the backend of a multilingual blog",
		Long: `inkpress serves the content API of a multilingual blog, publishes
scheduled posts, processes image uploads and collects privacy friendly analytics.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory containing main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "enable dev mode")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and initialises the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if devMode {
		cfg.DevMode = true
	}

	if err = logger.Init(cfg.Log); err != nil {
		return nil, err
	}

	return &cfg, nil
}
