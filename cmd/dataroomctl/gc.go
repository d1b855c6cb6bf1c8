package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dataroom/internal/app"
	"dataroom/internal/config"
)

type gcResult struct {
	Deleted  int    `json:"deleted"`
	Grace    string `json:"grace"`
	Failures string `json:"failures,omitempty"`
}

func newGCCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete stored blobs that no file references",
		RunE: func(cmd *cobra.Command, args []string) error {
			if grace < 0 {
				return fmt.Errorf("--grace must not be negative")
			}

			return withApp(cmd.Context(), cfg, func(a *app.App) error {
				deleted, err := a.Service.ReclaimOrphans(cmd.Context(), grace)

				result := gcResult{Deleted: deleted, Grace: grace.String()}
				if err != nil {
					result.Failures = err.Error()
				}

				if *jsonOutput {
					if writeErr := writeJSON(cmd.OutOrStdout(), result); writeErr != nil {
						return writeErr
					}
				} else if writeErr := writePlain(cmd.OutOrStdout(), "deleted %d orphan blobs older than %s\n", deleted, grace); writeErr != nil {
					return writeErr
				}
				return err
			})
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", cfg.OrphanGracePeriod, "only delete blobs older than this")
	return cmd
}
