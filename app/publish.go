package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkpress/inkpress/internal/daemon"
	"github.com/inkpress/inkpress/internal/publisher"
	"github.com/inkpress/inkpress/internal/revalidate"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Run a single publication sweep and exit",
	Long: `publish releases every scheduled post whose time has come, notifies the
frontend and exits. It is safe to run while the server is running.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := daemon.OpenDB(cfg)
		if err != nil {
			return err
		}

		var notifier publisher.Notifier = revalidate.Nop{}

		if cfg.Revalidate.Enabled {
			n := revalidate.New(cfg.Revalidate)
			defer n.Wait()

			notifier = n
		}

		n, err := publisher.New(publisher.NewGormStore(db), notifier, cfg.Publisher.Interval).Sweep(contextOf(cmd))
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %d post(s)\n", n)

		return err
	},
}
