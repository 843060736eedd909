package modelvault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avatarkit/modelvault/pkg/modelvault/objectkey"
)

// DefaultAllowedExtensions is the extension allow-list applied when no
// WithAllowedExtensions option is given. VRM is the only format the viewer
// understands.
var DefaultAllowedExtensions = []string{".vrm"}

// service implements the Service interface
type service struct {
	catalog Catalog
	blobs   BlobStore
	events  EventSink
	allowed map[string]struct{}
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithCatalog sets the catalog for the service
func WithCatalog(c Catalog) Option {
	return func(s *service) {
		s.catalog = c
	}
}

// WithBlobStore sets the blob storage backend for the service
func WithBlobStore(b BlobStore) Option {
	return func(s *service) {
		s.blobs = b
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithAllowedExtensions replaces the upload allow-list. Extensions are
// matched case-insensitively and include the leading dot.
func WithAllowedExtensions(exts ...string) Option {
	return func(s *service) {
		s.allowed = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			s.allowed[strings.ToLower(ext)] = struct{}{}
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.allowed == nil {
		WithAllowedExtensions(DefaultAllowedExtensions...)(s)
	}

	return s, nil
}

// UploadAndActivate runs the upload workflow in fixed order: validate,
// upload blob, resolve URL, insert asset record, repoint profile. Each step
// starts only after the previous one's result is known.
func (s *service) UploadAndActivate(ctx context.Context, req UploadModelRequest) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if _, ok := s.allowed[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, req.FileName)
	}

	profile, err := s.profileSnapshot(ctx, req.UserID, req.Profile)
	if err != nil {
		return nil, err
	}

	key := objectkey.ForUser(req.UserID, req.FileName)
	if err := s.blobs.Upload(ctx, key, req.Content); err != nil {
		// Nothing has been mutated beyond the failed upload attempt.
		return nil, fmt.Errorf("%w: key %s: %w", ErrUploadFailed, key, err)
	}

	url := s.blobs.ResolvePublicURL(key)

	now := time.Now().UTC()
	asset := &Asset{
		ID:        uuid.New(),
		UserID:    req.UserID,
		URL:       url,
		FileName:  req.FileName,
		CreatedAt: now,
	}

	if err := s.catalog.InsertAsset(ctx, asset); err != nil {
		// The blob landed but has no record. Keep the orphan; Reconcile can
		// find it later.
		return nil, &PartialError{
			State:     PartialOrphanedBlob,
			UserID:    req.UserID,
			ObjectKey: key,
			Err:       err,
		}
	}

	updated := *profile
	updated.UserID = req.UserID
	updated.ModelURL = url
	updated.UpdatedAt = now
	if err := s.catalog.UpsertProfile(ctx, &updated); err != nil {
		// Asset exists and is selectable later, just not active yet.
		return nil, &PartialError{
			State:     PartialProfileNotUpdated,
			UserID:    req.UserID,
			ObjectKey: key,
			Asset:     asset,
			Err:       err,
		}
	}

	// Events are advisory; the workflow outcome stands regardless.
	if s.events != nil {
		_ = s.events.AssetUploaded(ctx, asset)
		_ = s.events.ActiveModelChanged(ctx, &updated)
	}

	return &UploadResult{Asset: asset, Profile: &updated}, nil
}

// DeleteAsset runs the delete workflow: blob first, record second. Absence
// of either counts as success, so replays of the same request succeed. The
// profile's active-model address is deliberately not repointed here; see
// Service.DeleteAsset.
func (s *service) DeleteAsset(ctx context.Context, req DeleteAssetRequest) error {
	key := objectkey.ForUser(req.UserID, req.FileName)
	if err := s.blobs.Remove(ctx, key); err != nil && !errors.Is(err, ErrBlobNotFound) {
		return &StorageError{Key: key, Op: "remove", Err: err}
	}

	if err := s.catalog.DeleteAsset(ctx, req.AssetID); err != nil && !errors.Is(err, ErrAssetNotFound) {
		// The blob is already gone and stays gone.
		return fmt.Errorf("%w: asset %s: %w", ErrCatalogDeleteFailed, req.AssetID, err)
	}

	if s.events != nil {
		_ = s.events.AssetDeleted(ctx, req.AssetID)
	}

	return nil
}

// SetActiveModel runs the selection workflow: membership check, then a full
// profile upsert with the asset's address.
func (s *service) SetActiveModel(ctx context.Context, req SetActiveModelRequest) (*Profile, error) {
	assets, err := s.catalog.ListAssets(ctx, req.UserID)
	if err != nil {
		return nil, &CatalogError{Op: "list assets", Err: err}
	}

	var target *Asset
	for _, a := range assets {
		if a.ID == req.AssetID {
			target = a
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, req.AssetID)
	}

	profile, err := s.profileSnapshot(ctx, req.UserID, req.Profile)
	if err != nil {
		return nil, err
	}

	updated := *profile
	updated.UserID = req.UserID
	updated.ModelURL = target.URL
	updated.UpdatedAt = time.Now().UTC()
	if err := s.catalog.UpsertProfile(ctx, &updated); err != nil {
		return nil, &CatalogError{Op: "upsert profile", Err: err}
	}

	if s.events != nil {
		_ = s.events.ActiveModelChanged(ctx, &updated)
	}

	return &updated, nil
}

func (s *service) ListAssets(ctx context.Context, userID uuid.UUID) ([]*Asset, error) {
	return s.catalog.ListAssets(ctx, userID)
}

// ActiveAsset enforces the active-selection consistency rule at read time:
// the stored address is only meaningful while it matches a live asset.
func (s *service) ActiveAsset(ctx context.Context, userID uuid.UUID) (*Asset, error) {
	profile, err := s.catalog.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &CatalogError{Op: "get profile", Err: err}
	}
	if profile.ModelURL == "" {
		return nil, nil
	}

	assets, err := s.catalog.ListAssets(ctx, userID)
	if err != nil {
		return nil, &CatalogError{Op: "list assets", Err: err}
	}
	for _, a := range assets {
		if a.URL == profile.ModelURL {
			return a, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrActiveModelDangling, profile.ModelURL)
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.catalog.GetProfile(ctx, userID)
}

// UpdateProfile replaces the name fields and writes the full row back,
// carrying the avatar and model URLs through unchanged.
func (s *service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Profile, error) {
	profile, err := s.profileSnapshot(ctx, req.UserID, req.Profile)
	if err != nil {
		return nil, err
	}

	updated := *profile
	updated.UserID = req.UserID
	updated.FullName = req.FullName
	updated.Username = req.Username
	updated.UpdatedAt = time.Now().UTC()
	if err := s.catalog.UpsertProfile(ctx, &updated); err != nil {
		return nil, &CatalogError{Op: "upsert profile", Err: err}
	}

	if s.events != nil {
		_ = s.events.ProfileUpdated(ctx, &updated)
	}

	return &updated, nil
}

func (s *service) DownloadAsset(ctx context.Context, userID uuid.UUID, fileName string) (io.ReadCloser, error) {
	key := objectkey.ForUser(userID, fileName)
	rc, err := s.blobs.Download(ctx, key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, err
		}
		return nil, &StorageError{Key: key, Op: "download", Err: err}
	}
	return rc, nil
}

// profileSnapshot returns the caller-provided snapshot, or reads the current
// row from the catalog. First-time users get an empty profile.
func (s *service) profileSnapshot(ctx context.Context, userID uuid.UUID, snapshot *Profile) (*Profile, error) {
	if snapshot != nil {
		return snapshot, nil
	}
	profile, err := s.catalog.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return &Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, &CatalogError{Op: "get profile", Err: err}
	}
	return profile, nil
}
