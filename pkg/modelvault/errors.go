package modelvault

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrInvalidFormat indicates the file extension is not on the allow-list.
	// Rejected before any store call is made.
	ErrInvalidFormat = errors.New("invalid model format")

	// ErrUploadFailed indicates the blob upload failed; no catalog mutation
	// has happened.
	ErrUploadFailed = errors.New("upload failed")

	// ErrCatalogDeleteFailed indicates the asset record could not be removed
	// after the blob was already gone.
	ErrCatalogDeleteFailed = errors.New("catalog delete failed")

	// ErrUnknownAsset indicates a selection referenced an asset the user does
	// not own.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrAssetExists indicates an asset id collision on insert.
	ErrAssetExists = errors.New("asset already exists")

	// ErrAssetNotFound indicates an asset record was not found.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrBlobExists indicates an object already exists at the target key.
	// Blob uploads are non-upsert: an existing object is never overwritten.
	ErrBlobExists = errors.New("blob already exists")

	// ErrBlobNotFound indicates no object exists at the given key.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrProfileNotFound indicates no profile row exists for the user.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrActiveModelDangling indicates the profile's active-model address no
	// longer matches any of the user's assets. Reachable after deleting the
	// active asset; resolved by SetActiveModel or Reconcile.
	ErrActiveModelDangling = errors.New("active model address does not match a live asset")
)

// PartialState names which steps of a workflow landed before it failed.
type PartialState string

const (
	// PartialOrphanedBlob: the blob was uploaded but the asset record was not
	// created. The orphan is kept (data over silent loss) and is recoverable
	// by Reconcile.
	PartialOrphanedBlob PartialState = "orphaned_blob"

	// PartialProfileNotUpdated: blob and asset record both exist, but the
	// profile's active-model address was not moved. The asset is selectable
	// later via SetActiveModel.
	PartialProfileNotUpdated PartialState = "profile_not_updated"
)

// PartialError reports a workflow that mutated some but not all of its
// resources. State identifies exactly which mutations landed so callers can
// decide whether to retry, ignore, or reconcile.
type PartialError struct {
	State     PartialState
	UserID    uuid.UUID
	ObjectKey string
	Asset     *Asset // set when the asset record was created
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial failure (%s) for user %s at %s: %v", e.State, e.UserID, e.ObjectKey, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// StorageError represents an error from a blob store operation
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CatalogError represents an error from a catalog operation
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog operation %s failed: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
