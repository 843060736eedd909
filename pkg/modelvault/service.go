package modelvault

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the asset lifecycle and active-selection operations. Every
// workflow runs its store calls strictly in sequence; nothing is retried
// internally, and errors name exactly which resources were mutated.
//
// No mutual exclusion is provided across invocations: two concurrent
// workflows for the same user interleave at the store level and the last
// write wins.
type Service interface {
	// UploadAndActivate validates the filename, uploads the blob, records
	// the asset, and points the profile's active-model address at it.
	// Failures after the upload step return *PartialError.
	UploadAndActivate(ctx context.Context, req UploadModelRequest) (*UploadResult, error)

	// DeleteAsset removes the blob and the asset record. Idempotent: absence
	// of either is success. The profile's active-model address is left
	// untouched even when the deleted asset was active; callers detect the
	// dangling pointer via ActiveAsset and repoint with SetActiveModel.
	DeleteAsset(ctx context.Context, req DeleteAssetRequest) error

	// SetActiveModel points the profile at an existing asset. Fails with
	// ErrUnknownAsset, leaving the profile unchanged, when the asset is not
	// among the user's assets.
	SetActiveModel(ctx context.Context, req SetActiveModelRequest) (*Profile, error)

	// ListAssets returns the user's asset records.
	ListAssets(ctx context.Context, userID uuid.UUID) ([]*Asset, error)

	// ActiveAsset resolves the profile's active-model address against the
	// user's assets. Returns (nil, nil) when no model is active and
	// ErrActiveModelDangling when the address matches no live asset.
	ActiveAsset(ctx context.Context, userID uuid.UUID) (*Asset, error)

	// GetProfile returns the user's profile row.
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// UpdateProfile replaces the profile's name fields, carrying avatar and
	// model URLs over unchanged.
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Profile, error)

	// DownloadAsset streams the blob for one of the user's model files.
	DownloadAsset(ctx context.Context, userID uuid.UUID, fileName string) (io.ReadCloser, error)

	// Reconcile sweeps one user's blobs, assets, and profile pointer for the
	// inconsistencies the workflows can leave behind.
	Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileReport, error)
}
