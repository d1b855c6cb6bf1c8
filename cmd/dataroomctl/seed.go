package main

import (
	"github.com/spf13/cobra"

	"dataroom/internal/app"
	"dataroom/internal/config"
	"dataroom/internal/seed"
)

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var clearFirst bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the data room with a sample folder tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearFirst {
				if err := refuseInProd(cfg, "clear data"); err != nil {
					return err
				}
			}

			return withApp(cmd.Context(), cfg, func(a *app.App) error {
				if clearFirst {
					if err := a.ClearData(cmd.Context()); err != nil {
						return err
					}
					// Blobs of the cleared rows become orphans for `gc`
				}

				summary, err := seed.NewSeeder(a.Service, a.Logger).Seed(cmd.Context(), seed.DefaultTree)
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), summary)
				}
				return writePlain(cmd.OutOrStdout(), "created %d folders and %d files (%d already present)\n",
					summary.FoldersCreated, summary.FilesCreated, summary.Skipped)
			})
		},
	}

	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete all folders and files before seeding")
	return cmd
}
