package modelvault

import (
	"time"

	"github.com/google/uuid"
)

// Asset is a catalog record describing one uploaded model blob. Assets are
// never updated in place: re-uploading a file produces a new Asset and a new
// blob under a different key.
type Asset struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the per-user profile row. ModelURL is the active-model address:
// the storage URL of the asset the user currently has selected, or empty when
// no model is active. The catalog stores it without referential enforcement;
// keeping it pointing at a live asset is the Service's job.
type Profile struct {
	UserID    uuid.UUID `json:"user_id"`
	FullName  string    `json:"full_name,omitempty"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	ModelURL  string    `json:"model_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the asset is the one the profile currently points
// at. Comparison is by storage address, matching how the catalog records
// relate to the profile row.
func (a *Asset) Active(p *Profile) bool {
	return p != nil && p.ModelURL != "" && p.ModelURL == a.URL
}

// ObjectMeta describes a stored blob as reported by its backend.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}
