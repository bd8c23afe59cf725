package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkpress/inkpress/internal/config"
)

var (
	dumpJSON    bool
	dumpSecrets bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	configDumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration after env and JSON overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}

			if !dumpSecrets {
				cfg = config.Redacted(cfg)
			}

			var out string

			if dumpJSON {
				out, err = config.DumpConfigJSON(&cfg)
			} else {
				out, err = config.DumpConfig(&cfg)
			}

			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err
		},
	}
)

func init() { //nolint: gochecknoinits
	configDumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "print JSON instead of TOML")
	configDumpCmd.Flags().BoolVar(&dumpSecrets, "secrets", false, "do not redact secrets")

	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}
