// Package objectkey builds the storage keys for user-owned model blobs.
// Every blob lives under its owner's namespace: "{userID}/{filename}".
package objectkey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ForUser returns the storage key for a model file owned by the given user.
// The filename component is sanitized; the original name is preserved on the
// asset record, not in the key.
func ForUser(userID uuid.UUID, fileName string) string {
	return fmt.Sprintf("%s/%s", userID, SanitizeFilename(fileName))
}

// Prefix returns the per-user namespace prefix, suitable for listing all of
// a user's blobs.
func Prefix(userID uuid.UUID) string {
	return userID.String() + "/"
}

// SanitizeFilename replaces characters that are problematic as key or
// filesystem path components.
func SanitizeFilename(fileName string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(fileName)
}
