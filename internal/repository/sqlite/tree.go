package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	models "dataroom/internal/domain/models/dataroom"
	"dataroom/internal/domain/repositories"
	dataroomRepo "dataroom/internal/domain/repositories/dataroom"
	"dataroom/internal/repository"
)

const (
	folderColumns = "id, name, parent_id, created_at, updated_at"
	fileColumns   = "id, name, folder_id, mime_type, size, stored_id, created_at, updated_at"
)

// RepositoryConfig holds configuration for the SQLite repositories
type RepositoryConfig struct {
	DB     *sql.DB
	Tables *repository.TableNames
	Logger *slog.Logger
}

// SQLiteTreeRepository implements the TreeRepository interface
type SQLiteTreeRepository struct {
	db     *sql.DB
	tables *repository.TableNames
	tx     repositories.TransactionManager
	logger *slog.Logger
	now    func() time.Time
}

// NewTreeRepository creates a new tree repository
func NewTreeRepository(config *RepositoryConfig) dataroomRepo.TreeRepository {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteTreeRepository{
		db:     config.DB,
		tables: config.Tables,
		tx:     NewTransactionManager(config.DB, logger),
		logger: logger,
		now:    time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (*models.Folder, error) {
	var folder models.Folder
	var createdAt, updatedAt string
	err := row.Scan(
		&folder.ID,
		&folder.Name,
		&folder.ParentID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if folder.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if folder.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &folder, nil
}

func scanFile(row rowScanner) (*models.File, error) {
	var file models.File
	var createdAt, updatedAt string
	err := row.Scan(
		&file.ID,
		&file.Name,
		&file.FolderID,
		&file.MimeType,
		&file.Size,
		&file.StoredID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if file.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if file.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &file, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

// parentMatch renders "column IS NULL" for the root or "column = ?" otherwise
func parentMatch(column string, id *int64) (string, []any) {
	if id == nil {
		return fmt.Sprintf("%s IS NULL", column), nil
	}
	return fmt.Sprintf("%s = ?", column), []any{*id}
}

// inList renders a placeholder list for ids
func inList(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}

// ListChildren lists the direct child folders and files of parentID
func (r *SQLiteTreeRepository) ListChildren(ctx context.Context, parentID *int64) ([]models.Folder, []models.File, error) {
	where, args := parentMatch("parent_id", parentID)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY LOWER(name), name, id`,
		folderColumns, r.tables.Folders, where)

	folders, err := r.queryFolders(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list child folders: %w", err)
	}

	where, args = parentMatch("folder_id", parentID)
	query = fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY LOWER(name), name, id`,
		fileColumns, r.tables.Files, where)

	files, err := r.queryFiles(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list child files: %w", err)
	}

	return folders, files, nil
}

// GetFolder retrieves a folder by ID
func (r *SQLiteTreeRepository) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, folderColumns, r.tables.Folders)

	folder, err := scanFolder(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRowsError(err) {
			return nil, repository.FolderNotFound(id)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// GetFile retrieves a file by ID
func (r *SQLiteTreeRepository) GetFile(ctx context.Context, id int64) (*models.File, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, fileColumns, r.tables.Files)

	file, err := scanFile(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRowsError(err) {
			return nil, repository.FileNotFound(id)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

// CreateFolder creates a folder under parentID
func (r *SQLiteTreeRepository) CreateFolder(ctx context.Context, name string, parentID *int64) (*models.Folder, error) {
	var created *models.Folder

	err := r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if parentID != nil {
			if _, err := r.GetFolder(txCtx, *parentID); err != nil {
				return err
			}
		}

		existing, err := r.findFolderByName(txCtx, name, parentID, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.FolderConflict(name, existing.ID)
		}

		now := formatTime(r.now())
		query := fmt.Sprintf(`INSERT INTO %s (name, parent_id, created_at, updated_at)
VALUES (?, ?, ?, ?)
RETURNING %s`, r.tables.Folders, folderColumns)

		created, err = scanFolder(GetExecutor(txCtx, r.db).QueryRowContext(txCtx, query, name, parentID, now, now))
		if err != nil {
			return translateFolderWriteError(err, name, parentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// RenameFolder renames a folder in place
func (r *SQLiteTreeRepository) RenameFolder(ctx context.Context, id int64, newName string) (*models.Folder, error) {
	return r.relocateFolder(ctx, id, func(current *models.Folder) (string, *int64) {
		return newName, current.ParentID
	})
}

// MoveFolder re-parents a folder
func (r *SQLiteTreeRepository) MoveFolder(ctx context.Context, id int64, newParentID *int64) (*models.Folder, error) {
	return r.relocateFolder(ctx, id, func(current *models.Folder) (string, *int64) {
		return current.Name, newParentID
	})
}

// RelocateFolder sets a folder's name and parent in one step
func (r *SQLiteTreeRepository) RelocateFolder(ctx context.Context, id int64, name string, parentID *int64) (*models.Folder, error) {
	return r.relocateFolder(ctx, id, func(*models.Folder) (string, *int64) {
		return name, parentID
	})
}

// relocateFolder checks the final name and parent chosen by target, then writes both
func (r *SQLiteTreeRepository) relocateFolder(ctx context.Context, id int64, target func(current *models.Folder) (string, *int64)) (*models.Folder, error) {
	var updated *models.Folder

	err := r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := r.GetFolder(txCtx, id)
		if err != nil {
			return err
		}
		name, parentID := target(current)
		sameParent := repository.SameParent(current.ParentID, parentID)
		if current.Name == name && sameParent {
			updated = current
			return nil
		}

		if !sameParent && parentID != nil {
			cycle, err := repository.WouldCreateCycle(txCtx, id, *parentID, r.GetFolder)
			if err != nil {
				return err
			}
			if cycle {
				return repository.MoveCycle(id)
			}
		}

		existing, err := r.findFolderByName(txCtx, name, parentID, id)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.FolderConflict(name, existing.ID)
		}

		query := fmt.Sprintf(`UPDATE %s SET name = ?, parent_id = ?, updated_at = ? WHERE id = ? RETURNING %s`,
			r.tables.Folders, folderColumns)

		updated, err = scanFolder(GetExecutor(txCtx, r.db).QueryRowContext(txCtx, query, name, parentID, formatTime(r.now()), id))
		if err != nil {
			if isNoRowsError(err) {
				return repository.FolderNotFound(id)
			}
			return translateFolderWriteError(err, name, parentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteFolderCascade removes a folder, its descendant folders, and every file inside them
func (r *SQLiteTreeRepository) DeleteFolderCascade(ctx context.Context, id int64) (*dataroomRepo.CascadeResult, error) {
	result := &dataroomRepo.CascadeResult{}

	err := r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := r.GetFolder(txCtx, id); err != nil {
			return err
		}

		levels, err := repository.CollectSubtree(txCtx, id, r.childFolderIDs)
		if err != nil {
			return err
		}
		folderIDs := repository.Flatten(levels)

		placeholders, args := inList(folderIDs)
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE folder_id IN (%s) ORDER BY id`,
			fileColumns, r.tables.Files, placeholders)

		files, err := r.queryFiles(txCtx, query, args...)
		if err != nil {
			return fmt.Errorf("collect files for cascade: %w", err)
		}

		executor := GetExecutor(txCtx, r.db)

		deleteFiles := fmt.Sprintf(`DELETE FROM %s WHERE folder_id IN (%s)`, r.tables.Files, placeholders)
		if _, err := executor.ExecContext(txCtx, deleteFiles, args...); err != nil {
			return fmt.Errorf("delete files: %w", err)
		}

		// Deepest level first so no row ever points at a deleted parent
		for i := len(levels) - 1; i >= 0; i-- {
			levelPlaceholders, levelArgs := inList(levels[i])
			deleteFolders := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, r.tables.Folders, levelPlaceholders)
			if _, err := executor.ExecContext(txCtx, deleteFolders, levelArgs...); err != nil {
				return fmt.Errorf("delete folders: %w", err)
			}
		}

		result.DeletedFolderIDs = folderIDs
		result.DeletedFiles = files
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("folder cascade deleted",
		"folder_id", id,
		"folders", len(result.DeletedFolderIDs),
		"files", len(result.DeletedFiles),
	)
	return result, nil
}

// AncestorChain returns the folders from the root down to folderID
func (r *SQLiteTreeRepository) AncestorChain(ctx context.Context, folderID *int64) ([]models.Folder, error) {
	if folderID == nil {
		return []models.Folder{}, nil
	}
	return repository.WalkAncestors(ctx, *folderID, r.GetFolder)
}

// CreateFile inserts a file row
func (r *SQLiteTreeRepository) CreateFile(ctx context.Context, file *models.File) error {
	return r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if file.FolderID != nil {
			if _, err := r.GetFolder(txCtx, *file.FolderID); err != nil {
				return err
			}
		}

		existing, err := r.findFileByName(txCtx, file.Name, file.FolderID, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.FileConflict(file.Name, existing.ID)
		}

		now := formatTime(r.now())
		query := fmt.Sprintf(`INSERT INTO %s (name, folder_id, mime_type, size, stored_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING %s`, r.tables.Files, fileColumns)

		created, err := scanFile(GetExecutor(txCtx, r.db).QueryRowContext(txCtx, query,
			file.Name,
			file.FolderID,
			file.MimeType,
			file.Size,
			file.StoredID,
			now,
			now,
		))
		if err != nil {
			return translateFileWriteError(err, file.Name, file.FolderID)
		}

		file.ID = created.ID
		file.CreatedAt = created.CreatedAt
		file.UpdatedAt = created.UpdatedAt
		return nil
	})
}

// RenameFile renames a file within its folder
func (r *SQLiteTreeRepository) RenameFile(ctx context.Context, id int64, newName string) (*models.File, error) {
	return r.relocateFile(ctx, id, func(current *models.File) (string, *int64) {
		return newName, current.FolderID
	})
}

// MoveFile moves a file to another folder
func (r *SQLiteTreeRepository) MoveFile(ctx context.Context, id int64, newFolderID *int64) (*models.File, error) {
	return r.relocateFile(ctx, id, func(current *models.File) (string, *int64) {
		return current.Name, newFolderID
	})
}

// RelocateFile sets a file's name and folder in one step
func (r *SQLiteTreeRepository) RelocateFile(ctx context.Context, id int64, name string, folderID *int64) (*models.File, error) {
	return r.relocateFile(ctx, id, func(*models.File) (string, *int64) {
		return name, folderID
	})
}

// FindFileByName returns the file in folderID whose name matches case-insensitively, or nil
func (r *SQLiteTreeRepository) FindFileByName(ctx context.Context, name string, folderID *int64) (*models.File, error) {
	return r.findFileByName(ctx, name, folderID, 0)
}

func (r *SQLiteTreeRepository) relocateFile(ctx context.Context, id int64, target func(current *models.File) (string, *int64)) (*models.File, error) {
	var updated *models.File

	err := r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := r.GetFile(txCtx, id)
		if err != nil {
			return err
		}
		name, folderID := target(current)
		sameFolder := repository.SameParent(current.FolderID, folderID)
		if current.Name == name && sameFolder {
			updated = current
			return nil
		}

		if !sameFolder && folderID != nil {
			if _, err := r.GetFolder(txCtx, *folderID); err != nil {
				return err
			}
		}

		existing, err := r.findFileByName(txCtx, name, folderID, id)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.FileConflict(name, existing.ID)
		}

		query := fmt.Sprintf(`UPDATE %s SET name = ?, folder_id = ?, updated_at = ? WHERE id = ? RETURNING %s`,
			r.tables.Files, fileColumns)

		updated, err = scanFile(GetExecutor(txCtx, r.db).QueryRowContext(txCtx, query, name, folderID, formatTime(r.now()), id))
		if err != nil {
			if isNoRowsError(err) {
				return repository.FileNotFound(id)
			}
			return translateFileWriteError(err, name, folderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteFile removes a file row and returns it
func (r *SQLiteTreeRepository) DeleteFile(ctx context.Context, id int64) (*models.File, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? RETURNING %s`, r.tables.Files, fileColumns)

	file, err := scanFile(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRowsError(err) {
			return nil, repository.FileNotFound(id)
		}
		return nil, fmt.Errorf("delete file: %w", err)
	}
	return file, nil
}

// ListStoredIDs returns every blob key referenced by a file row
func (r *SQLiteTreeRepository) ListStoredIDs(ctx context.Context) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT stored_id FROM %s`, r.tables.Files)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stored ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var storedID string
		if err := rows.Scan(&storedID); err != nil {
			return nil, fmt.Errorf("scan stored id: %w", err)
		}
		ids[storedID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored ids: %w", err)
	}

	return ids, nil
}

func (r *SQLiteTreeRepository) childFolderIDs(ctx context.Context, parentIDs []int64) ([]int64, error) {
	placeholders, args := inList(parentIDs)
	query := fmt.Sprintf(`SELECT id FROM %s WHERE parent_id IN (%s)`, r.tables.Folders, placeholders)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// findFolderByName finds a sibling folder by case-insensitive name, skipping excludeID
func (r *SQLiteTreeRepository) findFolderByName(ctx context.Context, name string, parentID *int64, excludeID int64) (*models.Folder, error) {
	where, args := parentMatch("parent_id", parentID)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE LOWER(name) = LOWER(?) AND id <> ? AND %s LIMIT 1`,
		folderColumns, r.tables.Folders, where)

	args = append([]any{name, excludeID}, args...)
	folder, err := scanFolder(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find folder by name: %w", err)
	}
	return folder, nil
}

// findFileByName finds a file in folderID by case-insensitive name, skipping excludeID
func (r *SQLiteTreeRepository) findFileByName(ctx context.Context, name string, folderID *int64, excludeID int64) (*models.File, error) {
	where, args := parentMatch("folder_id", folderID)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE LOWER(name) = LOWER(?) AND id <> ? AND %s LIMIT 1`,
		fileColumns, r.tables.Files, where)

	args = append([]any{name, excludeID}, args...)
	file, err := scanFile(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find file by name: %w", err)
	}
	return file, nil
}

func (r *SQLiteTreeRepository) queryFolders(ctx context.Context, query string, args ...any) ([]models.Folder, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

func (r *SQLiteTreeRepository) queryFiles(ctx context.Context, query string, args ...any) ([]models.File, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func translateFolderWriteError(err error, name string, parentID *int64) error {
	switch {
	case isUniqueError(err):
		return repository.FolderConflict(name, 0)
	case isForeignKeyError(err) && parentID != nil:
		return repository.FolderNotFound(*parentID)
	default:
		return fmt.Errorf("write folder: %w", err)
	}
}

func translateFileWriteError(err error, name string, folderID *int64) error {
	switch {
	case isUniqueError(err):
		return repository.FileConflict(name, 0)
	case isForeignKeyError(err) && folderID != nil:
		return repository.FolderNotFound(*folderID)
	default:
		return fmt.Errorf("write file: %w", err)
	}
}
