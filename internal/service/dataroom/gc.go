package dataroom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dataroom/internal/storage"
)

// ReclaimOrphans deletes blobs that no file row references.
// Blobs younger than olderThan are skipped: an upload writes its blob
// before its row, so a fresh unreferenced blob may still be in flight.
func (s *dataRoomService) ReclaimOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)

	referenced, err := s.repo.ListStoredIDs(ctx)
	if err != nil {
		return 0, err
	}

	var orphans []string
	err = s.blobs.Walk(ctx, func(info storage.BlobInfo) error {
		if _, ok := referenced[info.StoredID]; ok {
			return nil
		}
		if info.ModTime.After(cutoff) {
			return nil
		}
		orphans = append(orphans, info.StoredID)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk blobs: %w", err)
	}

	var errs []error
	reclaimed := 0
	for _, storedID := range orphans {
		if err := s.blobs.Delete(ctx, storedID); err != nil {
			errs = append(errs, fmt.Errorf("delete orphan %s: %w", storedID, err))
			continue
		}
		reclaimed++
	}

	s.logger.Info("orphan blobs reclaimed",
		"reclaimed", reclaimed,
		"failed", len(errs),
		"referenced", len(referenced),
		"older_than", olderThan.String(),
	)
	return reclaimed, errors.Join(errs...)
}
