package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dataroom/internal/app"
	"dataroom/internal/config"
)

func newDropCmd(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the data room tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := refuseInProd(cfg, "drop tables"); err != nil {
				return err
			}
			if !force {
				return fmt.Errorf("drop deletes every folder and file row; pass --force to continue")
			}

			return withApp(cmd.Context(), cfg, func(a *app.App) error {
				if err := a.DropSchema(cmd.Context()); err != nil {
					return err
				}
				return writePlain(cmd.OutOrStdout(), "tables dropped (prefix %q)\n", cfg.TablePrefix)
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm dropping the tables")
	return cmd
}
