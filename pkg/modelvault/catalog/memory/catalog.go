package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/avatarkit/modelvault/pkg/modelvault"
)

// Catalog implements modelvault.Catalog using in-memory storage
type Catalog struct {
	mu           sync.RWMutex
	assets       map[uuid.UUID]*modelvault.Asset
	assetsByUser map[uuid.UUID][]uuid.UUID
	profiles     map[uuid.UUID]*modelvault.Profile
}

// New creates a new in-memory catalog
func New() modelvault.Catalog {
	return &Catalog{
		assets:       make(map[uuid.UUID]*modelvault.Asset),
		assetsByUser: make(map[uuid.UUID][]uuid.UUID),
		profiles:     make(map[uuid.UUID]*modelvault.Profile),
	}
}

// Asset operations

func (c *Catalog) ListAssets(ctx context.Context, userID uuid.UUID) ([]*modelvault.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*modelvault.Asset
	for _, id := range c.assetsByUser[userID] {
		if asset, exists := c.assets[id]; exists {
			assetCopy := *asset
			result = append(result, &assetCopy)
		}
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (c *Catalog) GetAsset(ctx context.Context, id uuid.UUID) (*modelvault.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	asset, exists := c.assets[id]
	if !exists {
		return nil, modelvault.ErrAssetNotFound
	}

	// Return a copy to prevent external modifications
	assetCopy := *asset
	return &assetCopy, nil
}

func (c *Catalog) InsertAsset(ctx context.Context, asset *modelvault.Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.assets[asset.ID]; exists {
		return modelvault.ErrAssetExists
	}

	// Store a copy to avoid external modifications
	assetCopy := *asset
	c.assets[asset.ID] = &assetCopy
	c.assetsByUser[asset.UserID] = append(c.assetsByUser[asset.UserID], asset.ID)

	return nil
}

func (c *Catalog) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	asset, exists := c.assets[id]
	if !exists {
		return modelvault.ErrAssetNotFound
	}

	delete(c.assets, id)

	ids := c.assetsByUser[asset.UserID]
	for i, assetID := range ids {
		if assetID == id {
			c.assetsByUser[asset.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	return nil
}

// Profile operations

func (c *Catalog) GetProfile(ctx context.Context, userID uuid.UUID) (*modelvault.Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	profile, exists := c.profiles[userID]
	if !exists {
		return nil, modelvault.ErrProfileNotFound
	}

	// Return a copy to prevent external modifications
	profileCopy := *profile
	return &profileCopy, nil
}

func (c *Catalog) UpsertProfile(ctx context.Context, profile *modelvault.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Full replace-or-insert keyed by user id
	profileCopy := *profile
	c.profiles[profile.UserID] = &profileCopy

	return nil
}
