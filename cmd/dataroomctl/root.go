package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dataroom/internal/app"
	"dataroom/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:           "dataroomctl",
		Short:         "Administrative commands for the data room",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(
		newMigrateCmd(cfg),
		newSeedCmd(cfg, &jsonOutput),
		newDropCmd(cfg),
		newGCCmd(cfg, &jsonOutput),
	)

	return cmd
}

// withApp wires the configured backends for one command and tears them down afterwards
func withApp(ctx context.Context, cfg *config.Config, fn func(*app.App) error) error {
	logger, closer, err := config.NewLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

// refuseInProd blocks destructive commands against production data
func refuseInProd(cfg *config.Config, action string) error {
	if cfg.Environment == "prod" {
		return fmt.Errorf("refusing to %s in the prod environment", action)
	}
	return nil
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
