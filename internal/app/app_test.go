package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"dataroom/internal/config"
	dataroomSvc "dataroom/internal/domain/services/dataroom"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	policy, err := config.DefaultUploadPolicy()
	if err != nil {
		t.Fatalf("upload policy: %v", err)
	}

	return &config.Config{
		Environment:    "test",
		DatabaseURL:    "sqlite://" + filepath.Join(dir, "app.db"),
		DatabaseDriver: config.DriverSQLite,
		TablePrefix:    "test_",
		BlobBackend:    config.BlobBackendDisk,
		UploadDir:      filepath.Join(dir, "uploads"),
		Uploads:        policy,
	}
}

func TestNewSQLite(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(ctx, testConfig(t), logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	if _, err := a.Service.CreateFolder(ctx, &dataroomSvc.CreateFolderRequest{Name: "Diligence"}); err != nil {
		t.Fatalf("create folder: %v", err)
	}

	if err := a.ClearData(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	contents, err := a.Service.Browse(ctx, nil)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(contents.Folders) != 0 {
		t.Errorf("folders after clear = %d", len(contents.Folders))
	}

	if err := a.DropSchema(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := a.Service.Browse(ctx, nil); err == nil {
		t.Error("browse after drop should fail")
	}
	if err := a.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := a.Service.Browse(ctx, nil); err != nil {
		t.Errorf("browse after migrate: %v", err)
	}
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "driver", mutate: func(c *config.Config) { c.DatabaseDriver = "mysql" }},
		{name: "blob backend", mutate: func(c *config.Config) { c.BlobBackend = "tape" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if a, err := New(ctx, cfg, logger); err == nil {
				a.Close()
				t.Fatal("expected error")
			}
		})
	}
}
