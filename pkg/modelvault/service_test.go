package modelvault_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarkit/modelvault/pkg/modelvault"
	catalogmemory "github.com/avatarkit/modelvault/pkg/modelvault/catalog/memory"
	"github.com/avatarkit/modelvault/pkg/modelvault/objectkey"
	storagememory "github.com/avatarkit/modelvault/pkg/modelvault/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []modelvault.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []modelvault.Option{},
			expectError: true,
		},
		{
			name: "catalog alone should fail",
			options: []modelvault.Option{
				modelvault.WithCatalog(catalogmemory.New()),
			},
			expectError: true,
		},
		{
			name: "catalog and blob store should succeed",
			options: []modelvault.Option{
				modelvault.WithCatalog(catalogmemory.New()),
				modelvault.WithBlobStore(storagememory.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := modelvault.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T) (modelvault.Service, modelvault.Catalog, modelvault.BlobStore) {
	t.Helper()

	catalog := catalogmemory.New()
	blobs := storagememory.New()

	svc, err := modelvault.New(
		modelvault.WithCatalog(catalog),
		modelvault.WithBlobStore(blobs),
		modelvault.WithEventSink(modelvault.NewNoopEventSink()),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc, catalog, blobs
}

func uploadModel(t *testing.T, svc modelvault.Service, userID uuid.UUID, fileName, body string) *modelvault.UploadResult {
	t.Helper()

	result, err := svc.UploadAndActivate(context.Background(), modelvault.UploadModelRequest{
		UserID:   userID,
		FileName: fileName,
		Content:  strings.NewReader(body),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestUploadAndActivate(t *testing.T) {
	svc, _, blobs := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result := uploadModel(t, svc, userID, "avatar.vrm", "vrm-bytes")

	assert.Equal(t, userID, result.Asset.UserID)
	assert.Equal(t, "avatar.vrm", result.Asset.FileName)
	assert.NotEqual(t, uuid.Nil, result.Asset.ID)
	assert.NotEmpty(t, result.Asset.URL)

	// The new asset is immediately the active one.
	assert.Equal(t, result.Asset.URL, result.Profile.ModelURL)
	assert.True(t, result.Asset.Active(result.Profile))

	// The blob landed under {userID}/{filename}.
	rc, err := blobs.Download(ctx, objectkey.ForUser(userID, "avatar.vrm"))
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "vrm-bytes", string(data))

	// The catalog lists the asset.
	assets, err := svc.ListAssets(ctx, userID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, result.Asset.ID, assets[0].ID)
}

func TestUploadAndActivateRejectsFormat(t *testing.T) {
	catalog := &countingCatalog{Catalog: catalogmemory.New()}
	blobs := &countingBlobStore{BlobStore: storagememory.New()}
	svc, err := modelvault.New(
		modelvault.WithCatalog(catalog),
		modelvault.WithBlobStore(blobs),
	)
	require.NoError(t, err)

	for _, name := range []string{"avatar.glb", "avatar", "avatar.vrm.png", ""} {
		_, err := svc.UploadAndActivate(context.Background(), modelvault.UploadModelRequest{
			UserID:   uuid.New(),
			FileName: name,
			Content:  strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, modelvault.ErrInvalidFormat, "file %q", name)
	}

	// A format rejection happens before any store or catalog call.
	assert.Zero(t, blobs.uploads)
	assert.Zero(t, catalog.inserts)
	assert.Zero(t, catalog.upserts)
}

func TestUploadAndActivateCaseInsensitiveExtension(t *testing.T) {
	svc, _, _ := setupTestService(t)

	result := uploadModel(t, svc, uuid.New(), "Avatar.VRM", "x")
	assert.Equal(t, "Avatar.VRM", result.Asset.FileName)
}

func TestUploadAndActivateDuplicateKey(t *testing.T) {
	svc, _, _ := setupTestService(t)
	userID := uuid.New()

	uploadModel(t, svc, userID, "avatar.vrm", "first")

	_, err := svc.UploadAndActivate(context.Background(), modelvault.UploadModelRequest{
		UserID:   userID,
		FileName: "avatar.vrm",
		Content:  strings.NewReader("second"),
	})
	assert.ErrorIs(t, err, modelvault.ErrUploadFailed)
	assert.ErrorIs(t, err, modelvault.ErrBlobExists)
}

func TestUploadAndActivateOrphanedBlob(t *testing.T) {
	catalog := &countingCatalog{Catalog: catalogmemory.New(), failInsert: errors.New("catalog down")}
	blobs := storagememory.New()
	svc, err := modelvault.New(
		modelvault.WithCatalog(catalog),
		modelvault.WithBlobStore(blobs),
	)
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	_, err = svc.UploadAndActivate(ctx, modelvault.UploadModelRequest{
		UserID:   userID,
		FileName: "avatar.vrm",
		Content:  strings.NewReader("x"),
	})

	var partial *modelvault.PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, modelvault.PartialOrphanedBlob, partial.State)
	assert.Equal(t, userID, partial.UserID)
	assert.Nil(t, partial.Asset)

	// Blob present, no record, profile untouched.
	_, err = blobs.Download(ctx, partial.ObjectKey)
	assert.NoError(t, err)
	assets, err := catalog.ListAssets(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, assets)
	_, err = catalog.GetProfile(ctx, userID)
	assert.ErrorIs(t, err, modelvault.ErrProfileNotFound)
}

func TestUploadAndActivateProfileNotUpdated(t *testing.T) {
	catalog := &countingCatalog{Catalog: catalogmemory.New(), failUpsert: errors.New("catalog down")}
	blobs := storagememory.New()
	svc, err := modelvault.New(
		modelvault.WithCatalog(catalog),
		modelvault.WithBlobStore(blobs),
	)
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	_, err = svc.UploadAndActivate(ctx, modelvault.UploadModelRequest{
		UserID:   userID,
		FileName: "avatar.vrm",
		Content:  strings.NewReader("x"),
	})

	var partial *modelvault.PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, modelvault.PartialProfileNotUpdated, partial.State)
	require.NotNil(t, partial.Asset)

	// The asset exists and remains selectable later.
	assets, err := catalog.ListAssets(ctx, userID)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, partial.Asset.ID, assets[0].ID)

	catalog.failUpsert = nil
	profile, err := svc.SetActiveModel(ctx, modelvault.SetActiveModelRequest{
		UserID:  userID,
		AssetID: partial.Asset.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, partial.Asset.URL, profile.ModelURL)
}

func TestDeleteAssetIdempotent(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result := uploadModel(t, svc, userID, "avatar.vrm", "x")

	req := modelvault.DeleteAssetRequest{
		UserID:   userID,
		AssetID:  result.Asset.ID,
		FileName: "avatar.vrm",
	}
	require.NoError(t, svc.DeleteAsset(ctx, req))

	assets, err := svc.ListAssets(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, assets)

	// Replaying the same delete is success, not an error.
	assert.NoError(t, svc.DeleteAsset(ctx, req))
}

func TestDeleteAssetKeepsActiveAddress(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result := uploadModel(t, svc, userID, "avatar.vrm", "x")

	require.NoError(t, svc.DeleteAsset(ctx, modelvault.DeleteAssetRequest{
		UserID:   userID,
		AssetID:  result.Asset.ID,
		FileName: "avatar.vrm",
	}))

	// The profile still points at the deleted asset's address.
	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, result.Asset.URL, profile.ModelURL)

	// ActiveAsset surfaces the dangle.
	_, err = svc.ActiveAsset(ctx, userID)
	assert.ErrorIs(t, err, modelvault.ErrActiveModelDangling)
}

func TestSetActiveModel(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first := uploadModel(t, svc, userID, "first.vrm", "a")
	second := uploadModel(t, svc, userID, "second.vrm", "b")

	// The second upload is active; switch back to the first.
	profile, err := svc.SetActiveModel(ctx, modelvault.SetActiveModelRequest{
		UserID:  userID,
		AssetID: first.Asset.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Asset.URL, profile.ModelURL)
	assert.NotEqual(t, second.Asset.URL, profile.ModelURL)

	active, err := svc.ActiveAsset(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.Asset.ID, active.ID)
}

func TestSetActiveModelUnknownAsset(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result := uploadModel(t, svc, userID, "avatar.vrm", "x")

	_, err := svc.SetActiveModel(ctx, modelvault.SetActiveModelRequest{
		UserID:  userID,
		AssetID: uuid.New(),
	})
	assert.ErrorIs(t, err, modelvault.ErrUnknownAsset)

	// Profile unchanged.
	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, result.Asset.URL, profile.ModelURL)
}

func TestSetActiveModelOtherUsersAsset(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	result := uploadModel(t, svc, owner, "avatar.vrm", "x")

	// Ownership is scoped to the requesting user's catalog entries.
	_, err := svc.SetActiveModel(ctx, modelvault.SetActiveModelRequest{
		UserID:  other,
		AssetID: result.Asset.ID,
	})
	assert.ErrorIs(t, err, modelvault.ErrUnknownAsset)
}

func TestSetActiveModelReselectSameAsset(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result := uploadModel(t, svc, userID, "avatar.vrm", "x")

	profile, err := svc.SetActiveModel(ctx, modelvault.SetActiveModelRequest{
		UserID:  userID,
		AssetID: result.Asset.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, result.Asset.URL, profile.ModelURL)
}

func TestActiveAssetNoProfile(t *testing.T) {
	svc, _, _ := setupTestService(t)

	active, err := svc.ActiveAsset(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, active)
}

func TestActiveAssetEmptyAddress(t *testing.T) {
	svc, catalog, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, catalog.UpsertProfile(ctx, &modelvault.Profile{
		UserID:   userID,
		Username: "kai",
	}))

	active, err := svc.ActiveAsset(ctx, userID)
	assert.NoError(t, err)
	assert.Nil(t, active)
}

func TestUpdateProfilePreservesURLs(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result := uploadModel(t, svc, userID, "avatar.vrm", "x")

	profile, err := svc.UpdateProfile(ctx, modelvault.UpdateProfileRequest{
		UserID:   userID,
		FullName: "Kai Aoki",
		Username: "kai",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kai Aoki", profile.FullName)
	assert.Equal(t, "kai", profile.Username)
	assert.Equal(t, result.Asset.URL, profile.ModelURL)
}

func TestUpdateProfileFirstTimeUser(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	profile, err := svc.UpdateProfile(ctx, modelvault.UpdateProfileRequest{
		UserID:   userID,
		FullName: "Kai Aoki",
		Username: "kai",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, profile.UserID)
	assert.Empty(t, profile.ModelURL)

	stored, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "kai", stored.Username)
}

func TestDownloadAsset(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	uploadModel(t, svc, userID, "avatar.vrm", "vrm-bytes")

	rc, err := svc.DownloadAsset(ctx, userID, "avatar.vrm")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "vrm-bytes", string(data))

	_, err = svc.DownloadAsset(ctx, userID, "missing.vrm")
	assert.ErrorIs(t, err, modelvault.ErrBlobNotFound)
}

func TestListAssetsIsolatedPerUser(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()
	uploadModel(t, svc, alice, "a.vrm", "a")
	uploadModel(t, svc, bob, "b.vrm", "b")

	assets, err := svc.ListAssets(ctx, alice)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "a.vrm", assets[0].FileName)
}

func TestReconcileFindsOrphans(t *testing.T) {
	svc, _, blobs := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	uploadModel(t, svc, userID, "kept.vrm", "x")

	// A blob with no catalog record, as left behind by a failed upload.
	orphanKey := objectkey.ForUser(userID, "orphan.vrm")
	require.NoError(t, blobs.Upload(ctx, orphanKey, strings.NewReader("x")))

	report, err := svc.Reconcile(ctx, modelvault.ReconcileRequest{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, []string{orphanKey}, report.OrphanedKeys)
	assert.Empty(t, report.RemovedKeys)
	assert.False(t, report.ActiveDangling)

	// Dry run: the orphan is still there.
	_, err = blobs.Download(ctx, orphanKey)
	assert.NoError(t, err)

	report, err = svc.Reconcile(ctx, modelvault.ReconcileRequest{
		UserID:              userID,
		RemoveOrphanedBlobs: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{orphanKey}, report.RemovedKeys)

	_, err = blobs.Download(ctx, orphanKey)
	assert.ErrorIs(t, err, modelvault.ErrBlobNotFound)
}

func TestReconcileClearsDanglingActive(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result := uploadModel(t, svc, userID, "avatar.vrm", "x")
	require.NoError(t, svc.DeleteAsset(ctx, modelvault.DeleteAssetRequest{
		UserID:   userID,
		AssetID:  result.Asset.ID,
		FileName: "avatar.vrm",
	}))

	report, err := svc.Reconcile(ctx, modelvault.ReconcileRequest{UserID: userID})
	require.NoError(t, err)
	assert.True(t, report.ActiveDangling)
	assert.False(t, report.ActiveCleared)
	assert.Equal(t, result.Asset.URL, report.ActiveURL)

	report, err = svc.Reconcile(ctx, modelvault.ReconcileRequest{
		UserID:              userID,
		ClearDanglingActive: true,
	})
	require.NoError(t, err)
	assert.True(t, report.ActiveCleared)

	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, profile.ModelURL)

	active, err := svc.ActiveAsset(ctx, userID)
	assert.NoError(t, err)
	assert.Nil(t, active)
}

// Full lifecycle of a single model: upload, re-select, delete, observe the
// stranded pointer, repoint.
func TestSingleModelLifecycle(t *testing.T) {
	svc, _, blobs := setupTestService(t)
	ctx := context.Background()
	u1 := uuid.New()

	result := uploadModel(t, svc, u1, "avatar.vrm", "v1")
	a1 := result.Asset
	assert.Equal(t, a1.URL, result.Profile.ModelURL)

	// Re-selecting the already-active asset succeeds with the same address.
	profile, err := svc.SetActiveModel(ctx, modelvault.SetActiveModelRequest{
		UserID:  u1,
		AssetID: a1.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, a1.URL, profile.ModelURL)

	require.NoError(t, svc.DeleteAsset(ctx, modelvault.DeleteAssetRequest{
		UserID:   u1,
		AssetID:  a1.ID,
		FileName: "avatar.vrm",
	}))

	// Blob gone, record gone, pointer still at the deleted address.
	_, err = blobs.Download(ctx, objectkey.ForUser(u1, "avatar.vrm"))
	assert.ErrorIs(t, err, modelvault.ErrBlobNotFound)
	assets, err := svc.ListAssets(ctx, u1)
	require.NoError(t, err)
	assert.Empty(t, assets)
	profile, err = svc.GetProfile(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, a1.URL, profile.ModelURL)

	// Uploading a replacement repoints the profile and resolves the dangle.
	replacement := uploadModel(t, svc, u1, "avatar2.vrm", "v2")
	active, err := svc.ActiveAsset(ctx, u1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, replacement.Asset.ID, active.ID)
}

// countingCatalog wraps a catalog with call counters and injectable failures.
type countingCatalog struct {
	modelvault.Catalog
	inserts    int
	upserts    int
	failInsert error
	failUpsert error
}

func (c *countingCatalog) InsertAsset(ctx context.Context, asset *modelvault.Asset) error {
	c.inserts++
	if c.failInsert != nil {
		return fmt.Errorf("insert asset: %w", c.failInsert)
	}
	return c.Catalog.InsertAsset(ctx, asset)
}

func (c *countingCatalog) UpsertProfile(ctx context.Context, profile *modelvault.Profile) error {
	c.upserts++
	if c.failUpsert != nil {
		return fmt.Errorf("upsert profile: %w", c.failUpsert)
	}
	return c.Catalog.UpsertProfile(ctx, profile)
}

type countingBlobStore struct {
	modelvault.BlobStore
	uploads int
}

func (b *countingBlobStore) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	b.uploads++
	return b.BlobStore.Upload(ctx, objectKey, reader)
}
