package modelvault

import (
	"context"
	"errors"
	"time"

	"github.com/avatarkit/modelvault/pkg/modelvault/objectkey"
)

// Reconcile compares one user's blobs against their asset records and the
// profile's active-model address against those records, reporting orphaned
// blobs and a dangling active pointer. With the request flags set it also
// repairs what it found. The sweep only ever deletes blobs that have no
// record and only ever clears (never repoints) the active address, so
// re-running it is safe.
func (s *service) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileReport, error) {
	report := &ReconcileReport{
		UserID:    req.UserID,
		CheckedAt: time.Now().UTC(),
	}

	assets, err := s.catalog.ListAssets(ctx, req.UserID)
	if err != nil {
		return nil, &CatalogError{Op: "list assets", Err: err}
	}

	known := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		known[objectkey.ForUser(a.UserID, a.FileName)] = struct{}{}
	}

	keys, err := s.blobs.List(ctx, objectkey.Prefix(req.UserID))
	if err != nil {
		return nil, &StorageError{Key: objectkey.Prefix(req.UserID), Op: "list", Err: err}
	}

	for _, key := range keys {
		if _, ok := known[key]; ok {
			continue
		}
		report.OrphanedKeys = append(report.OrphanedKeys, key)
		if !req.RemoveOrphanedBlobs {
			continue
		}
		if err := s.blobs.Remove(ctx, key); err != nil && !errors.Is(err, ErrBlobNotFound) {
			return report, &StorageError{Key: key, Op: "remove", Err: err}
		}
		report.RemovedKeys = append(report.RemovedKeys, key)
	}

	profile, err := s.catalog.GetProfile(ctx, req.UserID)
	if errors.Is(err, ErrProfileNotFound) {
		return report, nil
	}
	if err != nil {
		return report, &CatalogError{Op: "get profile", Err: err}
	}

	report.ActiveURL = profile.ModelURL
	if profile.ModelURL == "" {
		return report, nil
	}

	for _, a := range assets {
		if a.URL == profile.ModelURL {
			return report, nil
		}
	}
	report.ActiveDangling = true

	if req.ClearDanglingActive {
		updated := *profile
		updated.ModelURL = ""
		updated.UpdatedAt = time.Now().UTC()
		if err := s.catalog.UpsertProfile(ctx, &updated); err != nil {
			return report, &CatalogError{Op: "upsert profile", Err: err}
		}
		report.ActiveCleared = true
		if s.events != nil {
			_ = s.events.ActiveModelChanged(ctx, &updated)
		}
	}

	return report, nil
}
