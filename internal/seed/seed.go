// Package seed populates an empty data room with a small sample tree.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	models "dataroom/internal/domain/models/dataroom"
	dataroomSvc "dataroom/internal/domain/services/dataroom"
)

// Node describes a folder to create and the sample documents it holds
type Node struct {
	Name      string
	Documents []string
	Children  []Node
}

// DefaultTree is the sample layout used by `dataroomctl seed`
var DefaultTree = []Node{
	{
		Name: "Diligence",
		Children: []Node{
			{Name: "Financials", Documents: []string{"Q1.pdf", "Q2.pdf"}},
			{Name: "Legal", Children: []Node{
				{Name: "Contracts", Documents: []string{"Master Services Agreement.pdf"}},
			}},
		},
	},
	{Name: "Board Minutes", Documents: []string{"2024-01 Board Meeting.pdf"}},
}

// Summary counts what a seed run created and what already existed
type Summary struct {
	FoldersCreated int `json:"folders_created"`
	FilesCreated   int `json:"files_created"`
	Skipped        int `json:"skipped"`
}

// Seeder creates sample content through the service so every rule applies
type Seeder struct {
	service dataroomSvc.DataRoomService
	logger  *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(service dataroomSvc.DataRoomService, logger *slog.Logger) *Seeder {
	return &Seeder{
		service: service,
		logger:  logger,
	}
}

// Seed creates tree under the root. Existing folders and documents with the
// same names are reused, so running it twice is harmless.
func (s *Seeder) Seed(ctx context.Context, tree []Node) (*Summary, error) {
	summary := &Summary{}
	if err := s.seedLevel(ctx, nil, tree, summary); err != nil {
		return summary, err
	}

	s.logger.Info("seed complete",
		"folders_created", summary.FoldersCreated,
		"files_created", summary.FilesCreated,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

func (s *Seeder) seedLevel(ctx context.Context, parentID *int64, nodes []Node, summary *Summary) error {
	for _, node := range nodes {
		contents, err := s.service.Browse(ctx, parentID)
		if err != nil {
			return err
		}

		folder := findFolder(contents.Folders, node.Name)
		if folder == nil {
			folder, err = s.service.CreateFolder(ctx, &dataroomSvc.CreateFolderRequest{
				Name:     node.Name,
				ParentID: parentID,
			})
			if err != nil {
				return fmt.Errorf("seed folder %q: %w", node.Name, err)
			}
			summary.FoldersCreated++
		} else {
			summary.Skipped++
		}

		if err := s.seedDocuments(ctx, folder, node.Documents, summary); err != nil {
			return err
		}
		if err := s.seedLevel(ctx, &folder.ID, node.Children, summary); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedDocuments(ctx context.Context, folder *models.Folder, names []string, summary *Summary) error {
	if len(names) == 0 {
		return nil
	}

	contents, err := s.service.Browse(ctx, &folder.ID)
	if err != nil {
		return err
	}

	for _, name := range names {
		if hasFile(contents.Files, name) {
			summary.Skipped++
			continue
		}

		content := SamplePDF(name)
		_, err := s.service.UploadFile(ctx, &dataroomSvc.UploadFileRequest{
			Content:          bytes.NewReader(content),
			Filename:         name,
			DeclaredMimeType: "application/pdf",
			Size:             int64(len(content)),
			FolderID:         &folder.ID,
		})
		if err != nil {
			return fmt.Errorf("seed document %q: %w", name, err)
		}
		summary.FilesCreated++
	}
	return nil
}

func findFolder(folders []models.Folder, name string) *models.Folder {
	for i := range folders {
		if strings.EqualFold(folders[i].Name, name) {
			return &folders[i]
		}
	}
	return nil
}

func hasFile(files []models.File, name string) bool {
	for _, f := range files {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// SamplePDF renders a one-page PDF with title as its only text
func SamplePDF(title string) []byte {
	text := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(title)
	stream := fmt.Sprintf("BT /F1 18 Tf 72 720 Td (%s) Tj ET", text)

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
