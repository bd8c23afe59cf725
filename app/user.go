package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/daemon"
	"github.com/inkpress/inkpress/internal/db/models"
)

var (
	userEmail    string
	userPassword string
	userName     string
	userRole     string

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	userCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := daemon.OpenDB(cfg)
			if err != nil {
				return err
			}

			user, err := auth.NewLocalProvider(db).CreateUser(userEmail, userPassword, userName, models.Role(userRole))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s (id %d)\n", user.Role, user.Email, user.ID)

			return err
		},
	}
)

func init() { //nolint: gochecknoinits
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(models.RoleEditor), "admin or editor")

	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
