package modelvault

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends holding model
// binaries. Objects are keyed "{userID}/{filename}" (see the objectkey
// package). Implementations confine side effects to the underlying object
// store and have no catalog awareness.
type BlobStore interface {
	// Upload stores content at objectKey. It must not overwrite an existing
	// object: implementations return ErrBlobExists when the key is taken.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download returns the content stored at objectKey, or ErrBlobNotFound.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Remove deletes the object at objectKey. Returns ErrBlobNotFound when
	// the object is absent; callers treating absence as success should check
	// for it explicitly.
	Remove(ctx context.Context, objectKey string) error

	// List returns the keys of all objects under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// ResolvePublicURL returns the public retrieval address for objectKey.
	// Pure and deterministic; does not verify the object exists.
	ResolvePublicURL(objectKey string) string
}

// Catalog defines the interface for asset and profile persistence. The
// catalog enforces no relationship between asset rows and the profile's
// model URL; that consistency belongs to the Service.
type Catalog interface {
	// Asset operations
	ListAssets(ctx context.Context, userID uuid.UUID) ([]*Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	// InsertAsset fails with ErrAssetExists if the asset id is taken.
	InsertAsset(ctx context.Context, asset *Asset) error
	// DeleteAsset fails with ErrAssetNotFound if no record exists.
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	// Profile operations
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// UpsertProfile replaces or inserts the full profile row keyed by user
	// id. Every field overwrites the stored value; there is no partial-field
	// merge at this layer.
	UpsertProfile(ctx context.Context, profile *Profile) error
}

// EventSink defines the interface for lifecycle event handling
type EventSink interface {
	// AssetUploaded is fired when an upload workflow created a new asset
	AssetUploaded(ctx context.Context, asset *Asset) error

	// AssetDeleted is fired when a delete workflow removed an asset record
	AssetDeleted(ctx context.Context, assetID uuid.UUID) error

	// ActiveModelChanged is fired when the profile's active-model address moved
	ActiveModelChanged(ctx context.Context, profile *Profile) error

	// ProfileUpdated is fired when profile fields were replaced
	ProfileUpdated(ctx context.Context, profile *Profile) error
}
