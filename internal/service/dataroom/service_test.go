package dataroom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dataroom/internal/config"
	"dataroom/internal/domain"
	models "dataroom/internal/domain/models/dataroom"
	dataroomRepo "dataroom/internal/domain/repositories/dataroom"
	dataroomSvc "dataroom/internal/domain/services/dataroom"
	"dataroom/internal/repository"
	"dataroom/internal/repository/sqlite"
	"dataroom/internal/storage"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")

// countingStore wraps a real blob store and can be told to fail
type countingStore struct {
	storage.BlobStore
	puts      int
	deletes   int
	deleteErr error
}

func (c *countingStore) Put(ctx context.Context, r io.Reader) (storage.BlobInfo, error) {
	c.puts++
	return c.BlobStore.Put(ctx, r)
}

func (c *countingStore) Delete(ctx context.Context, storedID string) error {
	c.deletes++
	if c.deleteErr != nil {
		return c.deleteErr
	}
	return c.BlobStore.Delete(ctx, storedID)
}

// failingCreateRepo rejects every file insert
type failingCreateRepo struct {
	dataroomRepo.TreeRepository
	err error
}

func (f *failingCreateRepo) CreateFile(context.Context, *models.File) error {
	return f.err
}

type fixture struct {
	svc   *dataRoomService
	repo  dataroomRepo.TreeRepository
	blobs *countingStore
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	tables := repository.NewTableNames("test_")

	db, err := sqlite.Open(ctx, filepath.Join(dir, "test.db"), tables)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := sqlite.NewTreeRepository(&sqlite.RepositoryConfig{DB: db, Tables: tables, Logger: logger})

	disk, err := storage.NewDiskStore(filepath.Join(dir, "blobs"), logger)
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}
	blobs := &countingStore{BlobStore: disk}

	policy := &config.UploadPolicy{
		MaxBytes:         maxBytes,
		SniffBytes:       config.DefaultSniffBytes,
		AllowedMimeTypes: []string{"application/pdf"},
	}

	svc := NewDataRoomService(repo, blobs, sqlite.NewTransactionManager(db, logger), policy, logger).(*dataRoomService)
	return &fixture{svc: svc, repo: repo, blobs: blobs}
}

func (f *fixture) blobCount(t *testing.T) int {
	t.Helper()
	count := 0
	if err := f.blobs.Walk(context.Background(), func(storage.BlobInfo) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("walk: %v", err)
	}
	return count
}

func (f *fixture) mustFolder(t *testing.T, name string, parentID *int64) *models.Folder {
	t.Helper()
	folder, err := f.svc.CreateFolder(context.Background(), &dataroomSvc.CreateFolderRequest{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("create folder %q: %v", name, err)
	}
	return folder
}

func (f *fixture) mustUpload(t *testing.T, name string, folderID *int64) *models.File {
	t.Helper()
	file, err := f.svc.UploadFile(context.Background(), pdfUpload(name, folderID))
	if err != nil {
		t.Fatalf("upload %q: %v", name, err)
	}
	return file
}

func pdfUpload(filename string, folderID *int64) *dataroomSvc.UploadFileRequest {
	return &dataroomSvc.UploadFileRequest{
		Content:          bytes.NewReader(pdfBytes),
		Filename:         filename,
		DeclaredMimeType: "application/pdf",
		Size:             int64(len(pdfBytes)),
		FolderID:         folderID,
	}
}

func TestDiligenceScenario(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	diligence := f.mustFolder(t, "Diligence", nil)
	financials := f.mustFolder(t, "Financials", &diligence.ID)
	q1 := f.mustUpload(t, "Q1.pdf", &financials.ID)

	contents, err := f.svc.Browse(ctx, &financials.ID)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if contents.Parent == nil || contents.Parent.ID != financials.ID {
		t.Fatalf("unexpected parent: %+v", contents.Parent)
	}

	wantCrumbs := []string{models.RootName, "Diligence", "Financials"}
	if len(contents.Breadcrumbs) != len(wantCrumbs) {
		t.Fatalf("expected %d breadcrumbs, got %+v", len(wantCrumbs), contents.Breadcrumbs)
	}
	for i, name := range wantCrumbs {
		if contents.Breadcrumbs[i].Name != name {
			t.Errorf("breadcrumb %d = %q, want %q", i, contents.Breadcrumbs[i].Name, name)
		}
	}
	if contents.Breadcrumbs[0].ID != nil {
		t.Errorf("root breadcrumb must have nil id")
	}
	if len(contents.Files) != 1 || contents.Files[0].Name != "Q1.pdf" {
		t.Fatalf("unexpected files: %+v", contents.Files)
	}
	if contents.Files[0].DownloadURL() != fmt.Sprintf("/api/files/%d/content", q1.ID) {
		t.Errorf("unexpected download url %q", contents.Files[0].DownloadURL())
	}

	download, err := f.svc.DownloadFile(ctx, q1.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, err := io.ReadAll(download.Content)
	_ = download.Content.Close()
	if err != nil || !bytes.Equal(got, pdfBytes) {
		t.Fatalf("download content mismatch: %v", err)
	}

	if err := f.svc.DeleteFolder(ctx, diligence.ID); err != nil {
		t.Fatalf("delete folder: %v", err)
	}
	if _, err := f.svc.Browse(ctx, &financials.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after cascade, got %v", err)
	}
	if _, err := f.svc.GetFile(ctx, q1.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected file row gone, got %v", err)
	}
	if n := f.blobCount(t); n != 0 {
		t.Fatalf("expected cascade to reclaim blobs, %d left", n)
	}
}

func TestDuplicateContracts(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	first := f.mustFolder(t, "Contracts", nil)
	_, err := f.svc.CreateFolder(ctx, &dataroomSvc.CreateFolderRequest{Name: "  Contracts  "})

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if conflict.ResourceID != first.ID {
		t.Errorf("conflict should point at folder %d, got %d", first.ID, conflict.ResourceID)
	}

	contents, err := f.svc.Browse(ctx, nil)
	if err != nil {
		t.Fatalf("browse root: %v", err)
	}
	if contents.Parent != nil {
		t.Errorf("root browse should have nil parent")
	}
	if len(contents.Breadcrumbs) != 1 || contents.Breadcrumbs[0].Name != models.RootName {
		t.Errorf("unexpected root breadcrumbs: %+v", contents.Breadcrumbs)
	}
	if len(contents.Folders) != 1 {
		t.Fatalf("expected one folder, got %d", len(contents.Folders))
	}
}

func TestSiblingNamesStayDistinct(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abAB")

	parent := f.mustFolder(t, "Parent", nil)
	for i := 0; i < 60; i++ {
		name := make([]rune, 1+rng.Intn(2))
		for j := range name {
			name[j] = alphabet[rng.Intn(len(alphabet))]
		}
		_, err := f.svc.CreateFolder(ctx, &dataroomSvc.CreateFolderRequest{Name: string(name), ParentID: &parent.ID})
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("create %q: %v", string(name), err)
		}
	}

	contents, err := f.svc.Browse(ctx, &parent.ID)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	seen := map[string]bool{}
	for _, folder := range contents.Folders {
		key := strings.ToLower(folder.Name)
		if seen[key] {
			t.Fatalf("duplicate sibling name %q", folder.Name)
		}
		seen[key] = true
	}
	// 2 one-letter names + 4 two-letter names, case-folded
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct names, got %d", len(seen))
	}
}

func TestFolderNameValidation(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   "},
		{name: "slash", input: "a/b"},
		{name: "control character", input: "a\x00b"},
		{name: "invalid utf-8", input: "bad\xffname"},
		{name: "too long", input: strings.Repeat("x", config.MaxFolderNameLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateFolder(ctx, &dataroomSvc.CreateFolderRequest{Name: tt.input})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if n := f.blobCount(t); n != 0 {
		t.Fatalf("validation must not touch blobs")
	}
	contents, _ := f.svc.Browse(ctx, nil)
	if len(contents.Folders) != 0 {
		t.Fatalf("validation failures must not create folders")
	}

	long := strings.Repeat("é", config.MaxFolderNameLength)
	if _, err := f.svc.CreateFolder(ctx, &dataroomSvc.CreateFolderRequest{Name: long}); err != nil {
		t.Fatalf("max-length multibyte name should pass: %v", err)
	}
}

func TestCreateFolderUnknownParent(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	missing := int64(12345)

	_, err := f.svc.CreateFolder(context.Background(), &dataroomSvc.CreateFolderRequest{Name: "X", ParentID: &missing})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRenameToSelfIsNoop(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	folder := f.mustFolder(t, "Board", nil)
	got, err := f.svc.RenameFolder(ctx, folder.ID, " Board ")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.Name != "Board" || !got.UpdatedAt.Equal(folder.UpdatedAt) {
		t.Fatalf("expected unchanged folder, got %+v", got)
	}

	file := f.mustUpload(t, "minutes.pdf", &folder.ID)
	gotFile, err := f.svc.RenameFile(ctx, file.ID, "minutes.pdf")
	if err != nil {
		t.Fatalf("rename file: %v", err)
	}
	if !gotFile.UpdatedAt.Equal(file.UpdatedAt) {
		t.Fatalf("expected unchanged file timestamps")
	}
}

func TestUpdateFolder(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	a := f.mustFolder(t, "A", nil)
	b := f.mustFolder(t, "B", &a.ID)
	newName := "Renamed"

	t.Run("no fields", func(t *testing.T) {
		_, err := f.svc.UpdateFolder(ctx, b.ID, &dataroomSvc.UpdateFolderRequest{})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := f.svc.UpdateFolder(ctx, a.ID, &dataroomSvc.UpdateFolderRequest{
			ParentID: dataroomSvc.OptionalParent{Present: true, Value: &b.ID},
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("failed move rolls back rename", func(t *testing.T) {
		_, err := f.svc.UpdateFolder(ctx, a.ID, &dataroomSvc.UpdateFolderRequest{
			Name:     &newName,
			ParentID: dataroomSvc.OptionalParent{Present: true, Value: &b.ID},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		got, err := f.svc.GetFolder(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "A" {
			t.Fatalf("rename should have rolled back, got %q", got.Name)
		}
	})

	t.Run("rename and move to root", func(t *testing.T) {
		got, err := f.svc.UpdateFolder(ctx, b.ID, &dataroomSvc.UpdateFolderRequest{
			Name:     &newName,
			ParentID: dataroomSvc.OptionalParent{Present: true},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != newName || got.ParentID != nil {
			t.Fatalf("unexpected folder: %+v", got)
		}
	})
}

func TestUploadDefaultsToSanitizedFilename(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)

	file := f.mustUpload(t, `C:\Users\me\Desktop\report.pdf`, nil)
	if file.Name != "report.pdf" {
		t.Fatalf("expected report.pdf, got %q", file.Name)
	}
	if file.MimeType != "application/pdf" || file.Size != int64(len(pdfBytes)) {
		t.Fatalf("unexpected metadata: %+v", file)
	}

	req := pdfUpload("ignored.pdf", nil)
	req.Name = "Display Name.pdf"
	named, err := f.svc.UploadFile(context.Background(), req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if named.Name != "Display Name.pdf" {
		t.Fatalf("expected display name, got %q", named.Name)
	}
}

func TestUploadRejections(t *testing.T) {
	const maxBytes = 256

	tests := []struct {
		name    string
		mutate  func(req *dataroomSvc.UploadFileRequest)
		wantErr error
		wantPut bool
	}{
		{
			name:    "declared size over limit",
			mutate:  func(req *dataroomSvc.UploadFileRequest) { req.Size = maxBytes + 1 },
			wantErr: domain.ErrPayloadTooLarge,
		},
		{
			name: "actual size over limit",
			mutate: func(req *dataroomSvc.UploadFileRequest) {
				big := append(append([]byte{}, pdfBytes...), bytes.Repeat([]byte("0"), maxBytes)...)
				req.Content = bytes.NewReader(big)
				req.Size = -1
			},
			wantErr: domain.ErrPayloadTooLarge,
			wantPut: true,
		},
		{
			name:    "declared type not allowed",
			mutate:  func(req *dataroomSvc.UploadFileRequest) { req.DeclaredMimeType = "text/plain" },
			wantErr: domain.ErrUnsupportedMediaType,
		},
		{
			name: "content is not a pdf",
			mutate: func(req *dataroomSvc.UploadFileRequest) {
				req.Content = strings.NewReader("just some text")
			},
			wantErr: domain.ErrUnsupportedMediaType,
		},
		{
			name:    "empty file",
			mutate:  func(req *dataroomSvc.UploadFileRequest) { req.Content = bytes.NewReader(nil) },
			wantErr: domain.ErrUnsupportedMediaType,
		},
		{
			name:    "missing name",
			mutate:  func(req *dataroomSvc.UploadFileRequest) { req.Filename = "" },
			wantErr: domain.ErrValidation,
		},
		{
			name: "unknown folder",
			mutate: func(req *dataroomSvc.UploadFileRequest) {
				missing := int64(999)
				req.FolderID = &missing
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, maxBytes)
			req := pdfUpload("doc.pdf", nil)
			tt.mutate(req)

			_, err := f.svc.UploadFile(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if (f.blobs.puts > 0) != tt.wantPut {
				t.Errorf("blob puts = %d, wantPut = %v", f.blobs.puts, tt.wantPut)
			}
			if n := f.blobCount(t); n != 0 {
				t.Errorf("expected no blobs left, found %d", n)
			}
			contents, err := f.svc.Browse(context.Background(), nil)
			if err != nil {
				t.Fatalf("browse: %v", err)
			}
			if len(contents.Files) != 0 {
				t.Errorf("expected no file rows, found %d", len(contents.Files))
			}
		})
	}
}

func TestUploadDuplicateNameConflicts(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	f.mustUpload(t, "Q1.pdf", nil)

	_, err := f.svc.UploadFile(context.Background(), pdfUpload("q1.PDF", nil))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.blobs.puts != 1 {
		t.Fatalf("conflicting upload must not write a blob, puts=%d", f.blobs.puts)
	}
}

func TestUploadAndRenameShareCaseRule(t *testing.T) {
	ctx := context.Background()

	// SQLite's LOWER folds ASCII letters only
	tests := []struct {
		name         string
		wantConflict bool
	}{
		{name: "ÄRGER.pdf", wantConflict: true},
		{name: "ärger.pdf", wantConflict: false},
		{name: "Ärger.PDF", wantConflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFixture(t, config.DefaultMaxUploadBytes)
			up.mustUpload(t, "Ärger.pdf", nil)
			_, uploadErr := up.svc.UploadFile(ctx, pdfUpload(tt.name, nil))

			rn := newFixture(t, config.DefaultMaxUploadBytes)
			rn.mustUpload(t, "Ärger.pdf", nil)
			other := rn.mustUpload(t, "x.pdf", nil)
			_, renameErr := rn.svc.RenameFile(ctx, other.ID, tt.name)

			if got := errors.Is(uploadErr, domain.ErrConflict); got != tt.wantConflict {
				t.Errorf("upload conflict = %v (err %v), want %v", got, uploadErr, tt.wantConflict)
			}
			if got := errors.Is(renameErr, domain.ErrConflict); got != tt.wantConflict {
				t.Errorf("rename conflict = %v (err %v), want %v", got, renameErr, tt.wantConflict)
			}
			if !tt.wantConflict && (uploadErr != nil || renameErr != nil) {
				t.Errorf("unexpected errors: upload %v, rename %v", uploadErr, renameErr)
			}
		})
	}
}

func TestUploadWithoutDeclaredTypeIsSniffed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		declared string
	}{
		{name: "empty", declared: ""},
		{name: "octet stream", declared: "application/octet-stream"},
		{name: "octet stream with parameters", declared: "Application/Octet-Stream; charset=binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.DefaultMaxUploadBytes)
			req := pdfUpload("scan.pdf", nil)
			req.DeclaredMimeType = tt.declared

			file, err := f.svc.UploadFile(ctx, req)
			if err != nil {
				t.Fatalf("upload: %v", err)
			}
			if file.MimeType != "application/pdf" {
				t.Errorf("MimeType = %q, want application/pdf", file.MimeType)
			}
		})
	}

	t.Run("content still has to match", func(t *testing.T) {
		f := newFixture(t, config.DefaultMaxUploadBytes)
		req := pdfUpload("notes.pdf", nil)
		req.DeclaredMimeType = "application/octet-stream"
		req.Content = strings.NewReader("just some text")

		if _, err := f.svc.UploadFile(ctx, req); !errors.Is(err, domain.ErrUnsupportedMediaType) {
			t.Fatalf("expected unsupported media type, got %v", err)
		}
		if f.blobs.puts != 0 {
			t.Fatalf("rejected upload wrote %d blobs", f.blobs.puts)
		}
	})
}

func TestUploadRowFailureDeletesBlob(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	insertErr := &domain.ConflictError{Message: "lost the race", ResourceType: "file"}
	f.svc.repo = &failingCreateRepo{TreeRepository: f.repo, err: insertErr}

	_, err := f.svc.UploadFile(context.Background(), pdfUpload("race.pdf", nil))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected row error to surface, got %v", err)
	}
	if f.blobs.puts != 1 || f.blobs.deletes != 1 {
		t.Fatalf("expected one put and one compensating delete, got puts=%d deletes=%d", f.blobs.puts, f.blobs.deletes)
	}
	if n := f.blobCount(t); n != 0 {
		t.Fatalf("expected blob to be removed, %d left", n)
	}
}

func TestDeleteSurvivesBlobFailure(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	folder := f.mustFolder(t, "Folder", nil)
	file := f.mustUpload(t, "a.pdf", &folder.ID)
	other := f.mustUpload(t, "b.pdf", nil)
	f.blobs.deleteErr = errors.New("disk on fire")

	if err := f.svc.DeleteFile(ctx, other.ID); err != nil {
		t.Fatalf("delete file should succeed despite blob failure: %v", err)
	}
	if _, err := f.svc.GetFile(ctx, other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("row should be gone, got %v", err)
	}

	if err := f.svc.DeleteFolder(ctx, folder.ID); err != nil {
		t.Fatalf("delete folder should succeed despite blob failure: %v", err)
	}
	if _, err := f.svc.GetFile(ctx, file.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("row should be gone, got %v", err)
	}

	// Both blobs are now orphans for the collector
	if n := f.blobCount(t); n != 2 {
		t.Fatalf("expected 2 orphaned blobs, got %d", n)
	}
}

func TestDownloadMissingBlob(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	file := f.mustUpload(t, "a.pdf", nil)
	if err := f.blobs.BlobStore.Delete(ctx, file.StoredID); err != nil {
		t.Fatalf("remove blob: %v", err)
	}

	if _, err := f.svc.DownloadFile(ctx, file.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.DownloadFile(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown file, got %v", err)
	}
}

func TestUpdateFileMove(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	folder := f.mustFolder(t, "Target", nil)
	file := f.mustUpload(t, "a.pdf", nil)
	f.mustUpload(t, "b.pdf", &folder.ID)

	name := "b.pdf"
	_, err := f.svc.UpdateFile(ctx, file.ID, &dataroomSvc.UpdateFileRequest{
		Name:     &name,
		FolderID: dataroomSvc.OptionalParent{Present: true, Value: &folder.ID},
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict in target folder, got %v", err)
	}

	moved, err := f.svc.UpdateFile(ctx, file.ID, &dataroomSvc.UpdateFileRequest{
		FolderID: dataroomSvc.OptionalParent{Present: true, Value: &folder.ID},
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.FolderID == nil || *moved.FolderID != folder.ID || moved.Name != "a.pdf" {
		t.Fatalf("unexpected file: %+v", moved)
	}
}

func TestUpdateChecksFinalPlacement(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	src := f.mustFolder(t, "Src", nil)
	dst := f.mustFolder(t, "Dst", nil)

	t.Run("folder name taken only in source", func(t *testing.T) {
		draft := f.mustFolder(t, "Draft", &src.ID)
		f.mustFolder(t, "Final", &src.ID)

		name := "Final"
		got, err := f.svc.UpdateFolder(ctx, draft.ID, &dataroomSvc.UpdateFolderRequest{
			Name:     &name,
			ParentID: dataroomSvc.OptionalParent{Present: true, Value: &dst.ID},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != "Final" || got.ParentID == nil || *got.ParentID != dst.ID {
			t.Fatalf("unexpected folder: %+v", got)
		}
	})

	t.Run("folder old name taken in destination", func(t *testing.T) {
		notes := f.mustFolder(t, "Notes", &src.ID)
		f.mustFolder(t, "Notes", &dst.ID)

		name := "Memo"
		got, err := f.svc.UpdateFolder(ctx, notes.ID, &dataroomSvc.UpdateFolderRequest{
			Name:     &name,
			ParentID: dataroomSvc.OptionalParent{Present: true, Value: &dst.ID},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != "Memo" || got.ParentID == nil || *got.ParentID != dst.ID {
			t.Fatalf("unexpected folder: %+v", got)
		}
	})

	t.Run("file name taken only in source", func(t *testing.T) {
		draft := f.mustUpload(t, "draft.pdf", &src.ID)
		f.mustUpload(t, "final.pdf", &src.ID)

		name := "final.pdf"
		got, err := f.svc.UpdateFile(ctx, draft.ID, &dataroomSvc.UpdateFileRequest{
			Name:     &name,
			FolderID: dataroomSvc.OptionalParent{Present: true, Value: &dst.ID},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != "final.pdf" || got.FolderID == nil || *got.FolderID != dst.ID {
			t.Fatalf("unexpected file: %+v", got)
		}
	})

	t.Run("file old name taken in destination", func(t *testing.T) {
		memo := f.mustUpload(t, "memo.pdf", &src.ID)
		f.mustUpload(t, "memo.pdf", &dst.ID)

		name := "memo-v2.pdf"
		got, err := f.svc.UpdateFile(ctx, memo.ID, &dataroomSvc.UpdateFileRequest{
			Name:     &name,
			FolderID: dataroomSvc.OptionalParent{Present: true, Value: &dst.ID},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != "memo-v2.pdf" || got.FolderID == nil || *got.FolderID != dst.ID {
			t.Fatalf("unexpected file: %+v", got)
		}
	})

	t.Run("final placement still conflicts", func(t *testing.T) {
		other := f.mustFolder(t, "Other", &src.ID)
		name := "final"
		_, err := f.svc.UpdateFolder(ctx, other.ID, &dataroomSvc.UpdateFolderRequest{
			Name:     &name,
			ParentID: dataroomSvc.OptionalParent{Present: true, Value: &dst.ID},
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict with Dst/Final, got %v", err)
		}
		got, err := f.svc.GetFolder(ctx, other.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "Other" || got.ParentID == nil || *got.ParentID != src.ID {
			t.Fatalf("failed update must leave the folder untouched: %+v", got)
		}
	})
}

func TestReclaimOrphans(t *testing.T) {
	f := newFixture(t, config.DefaultMaxUploadBytes)
	ctx := context.Background()

	kept := f.mustUpload(t, "kept.pdf", nil)
	if _, err := f.blobs.Put(ctx, bytes.NewReader(pdfBytes)); err != nil {
		t.Fatalf("put orphan: %v", err)
	}

	reclaimed, err := f.svc.ReclaimOrphans(ctx, time.Hour)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("fresh orphan must survive the grace period, reclaimed %d", reclaimed)
	}

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	reclaimed, err = f.svc.ReclaimOrphans(ctx, time.Hour)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 orphan reclaimed, got %d", reclaimed)
	}

	download, err := f.svc.DownloadFile(ctx, kept.ID)
	if err != nil {
		t.Fatalf("referenced blob must survive: %v", err)
	}
	_ = download.Content.Close()
	if n := f.blobCount(t); n != 1 {
		t.Fatalf("expected 1 blob left, got %d", n)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\docs\q1.pdf`, "q1.pdf"},
		{"  spaced.pdf  ", "spaced.pdf"},
		{"bad\x07name.pdf", "badname.pdf"},
		{"..", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
