package modelvault

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful when no event handling is needed or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// AssetUploaded does nothing and returns nil
func (n *NoopEventSink) AssetUploaded(ctx context.Context, asset *Asset) error {
	return nil
}

// AssetDeleted does nothing and returns nil
func (n *NoopEventSink) AssetDeleted(ctx context.Context, assetID uuid.UUID) error {
	return nil
}

// ActiveModelChanged does nothing and returns nil
func (n *NoopEventSink) ActiveModelChanged(ctx context.Context, profile *Profile) error {
	return nil
}

// ProfileUpdated does nothing and returns nil
func (n *NoopEventSink) ProfileUpdated(ctx context.Context, profile *Profile) error {
	return nil
}

// LoggingEventSink logs lifecycle events through slog but takes no other
// action. Useful for development and debugging.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger falls
// back to slog.Default.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) AssetUploaded(ctx context.Context, asset *Asset) error {
	l.logger.InfoContext(ctx, "asset uploaded",
		"asset_id", asset.ID, "user_id", asset.UserID, "file_name", asset.FileName)
	return nil
}

func (l *LoggingEventSink) AssetDeleted(ctx context.Context, assetID uuid.UUID) error {
	l.logger.InfoContext(ctx, "asset deleted", "asset_id", assetID)
	return nil
}

func (l *LoggingEventSink) ActiveModelChanged(ctx context.Context, profile *Profile) error {
	l.logger.InfoContext(ctx, "active model changed",
		"user_id", profile.UserID, "model_url", profile.ModelURL)
	return nil
}

func (l *LoggingEventSink) ProfileUpdated(ctx context.Context, profile *Profile) error {
	l.logger.InfoContext(ctx, "profile updated", "user_id", profile.UserID)
	return nil
}
