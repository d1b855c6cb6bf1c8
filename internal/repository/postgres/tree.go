package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"dataroom/internal/domain"
	models "dataroom/internal/domain/models/dataroom"
	"dataroom/internal/domain/repositories"
	dataroomRepo "dataroom/internal/domain/repositories/dataroom"
	"dataroom/internal/repository"
)

const (
	folderColumns = "id, name, parent_id, created_at, updated_at"
	fileColumns   = "id, name, folder_id, mime_type, size, stored_id, created_at, updated_at"
)

// PostgresTreeRepository implements the TreeRepository interface
type PostgresTreeRepository struct {
	pool   *pgxpool.Pool
	tables *repository.TableNames
	tx     repositories.TransactionManager
	logger *slog.Logger
}

// NewTreeRepository creates a new tree repository
func NewTreeRepository(config *RepositoryConfig) dataroomRepo.TreeRepository {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTreeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		tx:     NewTransactionManager(config.Pool, logger),
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.Name,
		&folder.ParentID,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func scanFile(row rowScanner) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.Name,
		&file.FolderID,
		&file.MimeType,
		&file.Size,
		&file.StoredID,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// parentMatch renders "column IS NULL" for the root or "column = $pos" otherwise
func parentMatch(column string, id *int64, pos int) (string, []any) {
	if id == nil {
		return fmt.Sprintf("%s IS NULL", column), nil
	}
	return fmt.Sprintf("%s = $%d", column, pos), []any{*id}
}

// ListChildren lists the direct child folders and files of parentID
func (r *PostgresTreeRepository) ListChildren(ctx context.Context, parentID *int64) ([]models.Folder, []models.File, error) {
	executor := GetExecutor(ctx, r.pool)

	where, args := parentMatch("parent_id", parentID, 1)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY LOWER(name), name, id
	`, folderColumns, r.tables.Folders, where)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list child folders: %w", err)
	}
	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate folders: %w", err)
	}

	where, args = parentMatch("folder_id", parentID, 1)
	query = fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY LOWER(name), name, id
	`, fileColumns, r.tables.Files, where)

	files, err := r.queryFiles(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list child files: %w", err)
	}

	return folders, files, nil
}

// GetFolder retrieves a folder by ID
func (r *PostgresTreeRepository) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, folderColumns, r.tables.Folders)

	folder, err := scanFolder(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, repository.FolderNotFound(id)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// GetFile retrieves a file by ID
func (r *PostgresTreeRepository) GetFile(ctx context.Context, id int64) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, fileColumns, r.tables.Files)

	file, err := scanFile(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, repository.FileNotFound(id)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

// CreateFolder creates a folder under parentID
func (r *PostgresTreeRepository) CreateFolder(ctx context.Context, name string, parentID *int64) (*models.Folder, error) {
	var created *models.Folder

	err := r.tx.ExecTx(ctx, func(txCtx context.Context) error {
		if parentID != nil {
			if _, err := r.GetFolder(txCtx, *parentID); err != nil {
				return err
			}
		}

		// Guard against duplicates at the application level so the caller learns the existing ID
		existing, err := r.findFolderByName(txCtx, name, parentID, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return repository.FolderConflict(name, existing.ID)
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (name, parent_id)
			VALUES ($1, $2)
			RETURNING %s
		`, r.tables.Folders, folderColumns)

		created, err = scanFolder(GetExecutor(txCtx, r.pool).QueryRow(txCtx, query, name, parentID))
		if err != nil {
			return r.translateFolderWriteError(err, name, parentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// RenameFolder renames a folder in place
func (r *PostgresTreeRepository) RenameFolder(ctx context.Context, id int64, newName string) (*models.Folder, error) {
	return r.relocateFolder(ctx, id, func(current *models.Folder) (string, *int64) {
		return newName, current.ParentID
	})
}

// MoveFolder re-parents a folder
func (r *PostgresTreeRepository) MoveFolder(ctx context.Context, id int64, newParentID *int64) (*models.Folder, error) {
	return r.relocateFolder(ctx, id, func(current *models.Folder) (string, *int64) {
		return current.Name, newParentID
	})
}

// RelocateFolder sets a folder's name and parent in one step
func (r *PostgresTreeRepository) RelocateFolder(ctx context.Context, id int64, name string, parentID *int64) (*models.Folder, error) {
	return r.relocateFolder(ctx, id, func(*models.Folder) (string, *int64) {
		return name, parentID
	})
}

// relocateFolder checks the final name and parent chosen by target, then writes both
func (r *PostgresTreeRepository) relocateFolder(ctx context.Context, id int64, target func(current *models.Folder) (string, *int64)) (*models.Folder, error) {
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

		query := fmt.Sprintf(`
			UPDATE %s
			SET name = $1, parent_id = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING %s
		`, r.tables.Folders, folderColumns)

		updated, err = scanFolder(GetExecutor(txCtx, r.pool).QueryRow(txCtx, query, name, parentID, id))
		if err != nil {
			if isPgNoRowsError(err) {
				return repository.FolderNotFound(id)
			}
			return r.translateFolderWriteError(err, name, parentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteFolderCascade removes a folder, its descendant folders, and every file inside them
func (r *PostgresTreeRepository) DeleteFolderCascade(ctx context.Context, id int64) (*dataroomRepo.CascadeResult, error) {
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

		query := fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE folder_id = ANY($1)
			ORDER BY id
		`, fileColumns, r.tables.Files)

		files, err := r.queryFiles(txCtx, query, folderIDs)
		if err != nil {
			return fmt.Errorf("collect files for cascade: %w", err)
		}

		executor := GetExecutor(txCtx, r.pool)

		deleteFiles := fmt.Sprintf(`DELETE FROM %s WHERE folder_id = ANY($1)`, r.tables.Files)
		if _, err := executor.Exec(txCtx, deleteFiles, folderIDs); err != nil {
			return fmt.Errorf("delete files: %w", err)
		}

		// Deepest level first so no row ever points at a deleted parent
		deleteFolders := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, r.tables.Folders)
		for i := len(levels) - 1; i >= 0; i-- {
			if _, err := executor.Exec(txCtx, deleteFolders, levels[i]); err != nil {
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
func (r *PostgresTreeRepository) AncestorChain(ctx context.Context, folderID *int64) ([]models.Folder, error) {
	if folderID == nil {
		return []models.Folder{}, nil
	}
	return repository.WalkAncestors(ctx, *folderID, r.GetFolder)
}

// CreateFile inserts a file row
func (r *PostgresTreeRepository) CreateFile(ctx context.Context, file *models.File) error {
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

		query := fmt.Sprintf(`
			INSERT INTO %s (name, folder_id, mime_type, size, stored_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, r.tables.Files)

		err = GetExecutor(txCtx, r.pool).QueryRow(txCtx, query,
			file.Name,
			file.FolderID,
			file.MimeType,
			file.Size,
			file.StoredID,
		).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
		if err != nil {
			return r.translateFileWriteError(err, file.Name, file.FolderID)
		}
		return nil
	})
}

// RenameFile renames a file within its folder
func (r *PostgresTreeRepository) RenameFile(ctx context.Context, id int64, newName string) (*models.File, error) {
	return r.relocateFile(ctx, id, func(current *models.File) (string, *int64) {
		return newName, current.FolderID
	})
}

// MoveFile moves a file to another folder
func (r *PostgresTreeRepository) MoveFile(ctx context.Context, id int64, newFolderID *int64) (*models.File, error) {
	return r.relocateFile(ctx, id, func(current *models.File) (string, *int64) {
		return current.Name, newFolderID
	})
}

// RelocateFile sets a file's name and folder in one step
func (r *PostgresTreeRepository) RelocateFile(ctx context.Context, id int64, name string, folderID *int64) (*models.File, error) {
	return r.relocateFile(ctx, id, func(*models.File) (string, *int64) {
		return name, folderID
	})
}

// FindFileByName returns the file in folderID whose name matches case-insensitively, or nil
func (r *PostgresTreeRepository) FindFileByName(ctx context.Context, name string, folderID *int64) (*models.File, error) {
	return r.findFileByName(ctx, name, folderID, 0)
}

func (r *PostgresTreeRepository) relocateFile(ctx context.Context, id int64, target func(current *models.File) (string, *int64)) (*models.File, error) {
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

		query := fmt.Sprintf(`
			UPDATE %s
			SET name = $1, folder_id = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING %s
		`, r.tables.Files, fileColumns)

		updated, err = scanFile(GetExecutor(txCtx, r.pool).QueryRow(txCtx, query, name, folderID, id))
		if err != nil {
			if isPgNoRowsError(err) {
				return repository.FileNotFound(id)
			}
			return r.translateFileWriteError(err, name, folderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteFile removes a file row and returns it
func (r *PostgresTreeRepository) DeleteFile(ctx context.Context, id int64) (*models.File, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
		RETURNING %s
	`, r.tables.Files, fileColumns)

	file, err := scanFile(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, repository.FileNotFound(id)
		}
		return nil, fmt.Errorf("delete file: %w", err)
	}
	return file, nil
}

// ListStoredIDs returns every blob key referenced by a file row
func (r *PostgresTreeRepository) ListStoredIDs(ctx context.Context) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT stored_id FROM %s`, r.tables.Files)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query)
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

// childFolderIDs returns the IDs of every folder whose parent is in parentIDs
func (r *PostgresTreeRepository) childFolderIDs(ctx context.Context, parentIDs []int64) ([]int64, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE parent_id = ANY($1)`, r.tables.Folders)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, parentIDs)
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

// findFolderByName finds a sibling folder by case-insensitive name, skipping excludeID.
// Returns nil when no sibling matches.
func (r *PostgresTreeRepository) findFolderByName(ctx context.Context, name string, parentID *int64, excludeID int64) (*models.Folder, error) {
	where, args := parentMatch("parent_id", parentID, 3)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE LOWER(name) = LOWER($1) AND id <> $2 AND %s
		LIMIT 1
	`, folderColumns, r.tables.Folders, where)

	args = append([]any{name, excludeID}, args...)
	folder, err := scanFolder(GetExecutor(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find folder by name: %w", err)
	}
	return folder, nil
}

// findFileByName finds a file in folderID by case-insensitive name, skipping excludeID
func (r *PostgresTreeRepository) findFileByName(ctx context.Context, name string, folderID *int64, excludeID int64) (*models.File, error) {
	where, args := parentMatch("folder_id", folderID, 3)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE LOWER(name) = LOWER($1) AND id <> $2 AND %s
		LIMIT 1
	`, fileColumns, r.tables.Files, where)

	args = append([]any{name, excludeID}, args...)
	file, err := scanFile(GetExecutor(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find file by name: %w", err)
	}
	return file, nil
}

func (r *PostgresTreeRepository) queryFiles(ctx context.Context, query string, args ...any) ([]models.File, error) {
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
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

// translateFolderWriteError maps constraint violations raised by a folder write
func (r *PostgresTreeRepository) translateFolderWriteError(err error, name string, parentID *int64) error {
	switch {
	case isPgDuplicateError(err):
		return repository.FolderConflict(name, 0)
	case isPgForeignKeyError(err) && parentID != nil:
		return repository.FolderNotFound(*parentID)
	case isPgEncodingError(err):
		return &domain.ValidationError{Message: "folder name must be valid UTF-8"}
	default:
		return fmt.Errorf("write folder: %w", err)
	}
}

// translateFileWriteError maps constraint violations raised by a file write
func (r *PostgresTreeRepository) translateFileWriteError(err error, name string, folderID *int64) error {
	switch {
	case isPgDuplicateError(err):
		return repository.FileConflict(name, 0)
	case isPgForeignKeyError(err) && folderID != nil:
		return repository.FolderNotFound(*folderID)
	case isPgEncodingError(err):
		return &domain.ValidationError{Message: "file name must be valid UTF-8"}
	default:
		return fmt.Errorf("write file: %w", err)
	}
}
