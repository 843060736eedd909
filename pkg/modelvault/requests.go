package modelvault

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Request/Response DTOs

// UploadModelRequest contains parameters for the upload workflow.
//
// Profile is the caller's snapshot of the current profile; its fields are
// carried over unchanged into the upserted row (only the model URL moves).
// When nil, the service reads the current profile from the catalog, falling
// back to an empty profile for first-time users.
type UploadModelRequest struct {
	UserID   uuid.UUID
	FileName string
	Content  io.Reader
	Profile  *Profile
}

// UploadResult carries the authoritative post-upload state so callers can
// re-render from returned data instead of re-fetching.
type UploadResult struct {
	Asset   *Asset
	Profile *Profile
}

// DeleteAssetRequest contains parameters for the delete workflow. FileName
// is the asset's original filename, needed to derive the blob key.
type DeleteAssetRequest struct {
	UserID   uuid.UUID
	AssetID  uuid.UUID
	FileName string
}

// SetActiveModelRequest contains parameters for the selection workflow.
// Profile follows the same snapshot semantics as UploadModelRequest.
type SetActiveModelRequest struct {
	UserID  uuid.UUID
	AssetID uuid.UUID
	Profile *Profile
}

// UpdateProfileRequest contains parameters for replacing the profile's name
// fields. Avatar and model URLs are carried over from the current profile
// (or the provided snapshot) unchanged.
type UpdateProfileRequest struct {
	UserID   uuid.UUID
	FullName string
	Username string
	Profile  *Profile
}

// ReconcileRequest contains parameters for the per-user reconciliation
// sweep. With both flags false the sweep is a pure report.
type ReconcileRequest struct {
	UserID uuid.UUID

	// RemoveOrphanedBlobs deletes blobs that have no asset record.
	RemoveOrphanedBlobs bool

	// ClearDanglingActive empties the profile's model URL when it no longer
	// matches a live asset.
	ClearDanglingActive bool
}

// ReconcileReport describes what a sweep found and what it changed. The
// sweep is idempotent: re-running it over a consistent user is a no-op.
type ReconcileReport struct {
	UserID         uuid.UUID `json:"user_id"`
	OrphanedKeys   []string  `json:"orphaned_keys,omitempty"`
	RemovedKeys    []string  `json:"removed_keys,omitempty"`
	ActiveURL      string    `json:"active_url,omitempty"`
	ActiveDangling bool      `json:"active_dangling"`
	ActiveCleared  bool      `json:"active_cleared"`
	CheckedAt      time.Time `json:"checked_at"`
}
