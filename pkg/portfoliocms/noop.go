package portfoliocms

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) SectionUpdated(ctx context.Context, section Section, fields []*ContentField) error {
	return nil
}

func (n *NoopEventSink) VersionCreated(ctx context.Context, version *Version) error {
	return nil
}

func (n *NoopEventSink) VersionRestored(ctx context.Context, version *Version) error {
	return nil
}

func (n *NoopEventSink) MediaUploaded(ctx context.Context, media *Media) error {
	return nil
}

func (n *NoopEventSink) MediaDeleted(ctx context.Context, mediaID uuid.UUID) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// SectionUpdated logs the section update event
func (l *LoggingEventSink) SectionUpdated(ctx context.Context, section Section, fields []*ContentField) error {
	l.logger.InfoContext(ctx, "Section updated", "section", section, "fields", len(fields))
	return nil
}

// VersionCreated logs the version creation event
func (l *LoggingEventSink) VersionCreated(ctx context.Context, version *Version) error {
	l.logger.InfoContext(ctx, "Version created", "version_id", version.ID, "name", version.Name)
	return nil
}

// VersionRestored logs the restore event
func (l *LoggingEventSink) VersionRestored(ctx context.Context, version *Version) error {
	l.logger.InfoContext(ctx, "Version restored", "version_id", version.ID, "name", version.Name)
	return nil
}

// MediaUploaded logs the upload event
func (l *LoggingEventSink) MediaUploaded(ctx context.Context, media *Media) error {
	l.logger.InfoContext(ctx, "Media uploaded", "media_id", media.ID, "mime_type", media.MimeType, "size", media.Size)
	return nil
}

// MediaDeleted logs the deletion event
func (l *LoggingEventSink) MediaDeleted(ctx context.Context, mediaID uuid.UUID) error {
	l.logger.InfoContext(ctx, "Media deleted", "media_id", mediaID)
	return nil
}

// NoopCache never stores anything. Every read misses.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	return false, nil
}

func (NoopCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

func (NoopCache) DeletePrefix(ctx context.Context, prefix string) error {
	return nil
}
