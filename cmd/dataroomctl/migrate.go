package main

import (
	"github.com/spf13/cobra"

	"dataroom/internal/app"
	"dataroom/internal/config"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app.App) error {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
				return writePlain(cmd.OutOrStdout(), "schema ready (prefix %q)\n", cfg.TablePrefix)
			})
		},
	}
}
