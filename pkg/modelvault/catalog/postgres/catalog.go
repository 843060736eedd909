package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avatarkit/modelvault/pkg/modelvault"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Catalog implements modelvault.Catalog using PostgreSQL. The schema is
// shipped in schema.sql; note the deliberate absence of a foreign key from
// profiles.model_url to assets.url.
type Catalog struct {
	db DBTX
}

// New creates a new PostgreSQL catalog
func New(db DBTX) modelvault.Catalog {
	return &Catalog{db: db}
}

// NewWithPool creates a new PostgreSQL catalog with a connection pool
func NewWithPool(pool *pgxpool.Pool) modelvault.Catalog {
	return &Catalog{db: pool}
}

// handlePostgresError maps driver errors onto catalog sentinels
func (c *Catalog) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return modelvault.ErrAssetExists
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Asset operations

func (c *Catalog) ListAssets(ctx context.Context, userID uuid.UUID) ([]*modelvault.Asset, error) {
	query := `
        SELECT id, user_id, url, file_name, created_at
        FROM assets WHERE user_id = $1
        ORDER BY created_at DESC`

	rows, err := c.db.Query(ctx, query, userID)
	if err != nil {
		return nil, c.handlePostgresError("list assets", err)
	}
	defer rows.Close()

	var assets []*modelvault.Asset
	for rows.Next() {
		var asset modelvault.Asset
		if err := rows.Scan(&asset.ID, &asset.UserID, &asset.URL, &asset.FileName, &asset.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assets, nil
}

func (c *Catalog) GetAsset(ctx context.Context, id uuid.UUID) (*modelvault.Asset, error) {
	query := `
        SELECT id, user_id, url, file_name, created_at
        FROM assets WHERE id = $1`

	var asset modelvault.Asset
	err := c.db.QueryRow(ctx, query, id).Scan(
		&asset.ID, &asset.UserID, &asset.URL, &asset.FileName, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, modelvault.ErrAssetNotFound
		}
		return nil, c.handlePostgresError("get asset", err)
	}

	return &asset, nil
}

func (c *Catalog) InsertAsset(ctx context.Context, asset *modelvault.Asset) error {
	query := `
		INSERT INTO assets (id, user_id, url, file_name, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := c.db.Exec(ctx, query,
		asset.ID, asset.UserID, asset.URL, asset.FileName, asset.CreatedAt)
	if err != nil {
		return c.handlePostgresError("insert asset", err)
	}

	return nil
}

func (c *Catalog) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := c.db.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return c.handlePostgresError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return modelvault.ErrAssetNotFound
	}

	return nil
}

// Profile operations

func (c *Catalog) GetProfile(ctx context.Context, userID uuid.UUID) (*modelvault.Profile, error) {
	query := `
        SELECT user_id, full_name, username, avatar_url, model_url, updated_at
        FROM profiles WHERE user_id = $1`

	var profile modelvault.Profile
	err := c.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &profile.FullName, &profile.Username,
		&profile.AvatarURL, &profile.ModelURL, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, modelvault.ErrProfileNotFound
		}
		return nil, c.handlePostgresError("get profile", err)
	}

	return &profile, nil
}

func (c *Catalog) UpsertProfile(ctx context.Context, profile *modelvault.Profile) error {
	// Full replace-or-insert: every field overwrites the stored value
	query := `
		INSERT INTO profiles (user_id, full_name, username, avatar_url, model_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			model_url = EXCLUDED.model_url,
			updated_at = EXCLUDED.updated_at`

	_, err := c.db.Exec(ctx, query,
		profile.UserID, profile.FullName, profile.Username,
		profile.AvatarURL, profile.ModelURL, profile.UpdatedAt)
	if err != nil {
		return c.handlePostgresError("upsert profile", err)
	}

	return nil
}
