package portfoliocms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// Version operations

// CreateVersion stores snapshot as the new active version. A nil snapshot
// captures the current content.
func (s *service) CreateVersion(ctx context.Context, name string, snapshot *StructuredContent) (*Version, error) {
	var version *Version
	err := s.repository.Transact(ctx, func(ctx context.Context, tx Repository) error {
		if snapshot == nil {
			current, err := s.loadStructured(ctx, tx)
			if err != nil {
				return err
			}
			snapshot = current
		}
		version = &Version{
			Name:      name,
			Snapshot:  *normalizeTree(snapshot),
			IsActive:  true,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.DeactivateVersions(ctx); err != nil {
			return err
		}
		return tx.CreateVersion(ctx, version)
	})
	if err != nil {
		return nil, wrap("create_version", err)
	}

	s.metrics.versions.WithLabelValues("created").Inc()
	s.logger.InfoContext(ctx, "version created", "version_id", version.ID, "name", version.Name)
	if err := s.eventSink.VersionCreated(ctx, version); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "version_created", "err", err)
	}
	return version, nil
}

// RestoreVersion replaces every content field with the snapshot of version id
// and marks it active. The current content is backed up first.
func (s *service) RestoreVersion(ctx context.Context, id int64) error {
	version, err := s.repository.GetVersion(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVersionNotFound) {
			return notFound("restore_version", "Version not found", err)
		}
		return wrap("restore_version", err)
	}

	now := s.now().UTC()
	backupName := fmt.Sprintf("Backup before restore of version %d %s", id, now.Format(time.RFC3339))
	if _, err := s.CreateVersion(ctx, backupName, nil); err != nil {
		return err
	}

	fields, err := version.Snapshot.Fields()
	if err != nil {
		return err
	}

	err = s.repository.Transact(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.DeleteAllFields(ctx); err != nil {
			return err
		}
		for _, f := range fields {
			f.CreatedAt = now
			f.UpdatedAt = now
			if err := tx.CreateField(ctx, f); err != nil {
				return fmt.Errorf("restore %s.%s: %w", f.Section, f.FieldName, err)
			}
		}
		return tx.ActivateVersion(ctx, version.ID)
	})
	if err != nil {
		return wrap("restore_version", err)
	}
	version.IsActive = true

	s.invalidateAll(ctx)
	s.metrics.versions.WithLabelValues("restored").Inc()
	s.logger.InfoContext(ctx, "version restored", "version_id", version.ID, "name", version.Name)
	if err := s.eventSink.VersionRestored(ctx, version); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "version_restored", "err", err)
	}
	return nil
}

// CleanupOldVersions keeps the newest keep versions. keep <= 0 uses the
// configured retention.
func (s *service) CleanupOldVersions(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		keep = s.retention
	}
	deleted, err := s.repository.PruneVersions(ctx, keep)
	if err != nil {
		return 0, wrap("cleanup_old_versions", err)
	}
	if deleted > 0 {
		s.metrics.versions.WithLabelValues("pruned").Add(float64(deleted))
		s.logger.InfoContext(ctx, "old versions pruned", "deleted", deleted, "keep", keep)
	}
	return deleted, nil
}

// RecoverFromError restores the most recent auto-backup. It is a no-op when
// no auto-backup exists.
func (s *service) RecoverFromError(ctx context.Context) error {
	version, err := s.repository.FindLatestVersionByPrefix(ctx, AutoBackupPrefix)
	if err != nil {
		if errors.Is(err, ErrVersionNotFound) {
			s.metrics.recoveries.WithLabelValues("skipped").Inc()
			s.logger.WarnContext(ctx, "no auto-backup available for recovery")
			return nil
		}
		s.metrics.recoveries.WithLabelValues("failed").Inc()
		return wrap("recover_from_error", err)
	}

	s.logger.InfoContext(ctx, "recovering from auto-backup", "version_id", version.ID, "name", version.Name)
	if err := s.RestoreVersion(ctx, version.ID); err != nil {
		s.metrics.recoveries.WithLabelValues("failed").Inc()
		return err
	}
	s.metrics.recoveries.WithLabelValues("restored").Inc()
	return nil
}

func (s *service) CreateEmergencyBackup(ctx context.Context) (*Version, error) {
	name := "Emergency backup " + s.now().UTC().Format(time.RFC3339)
	return s.CreateVersion(ctx, name, nil)
}

func (s *service) ListVersions(ctx context.Context, limit int) ([]*Version, error) {
	if limit <= 0 {
		limit = DefaultVersionListLimit
	}
	versions, err := s.repository.ListVersions(ctx, limit)
	if err != nil {
		return nil, wrap("list_versions", err)
	}
	return versions, nil
}

func (s *service) GetVersion(ctx context.Context, id int64) (*Version, error) {
	version, err := s.repository.GetVersion(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVersionNotFound) {
			return nil, notFound("get_version", "Version not found", err)
		}
		return nil, wrap("get_version", err)
	}
	return version, nil
}

func (s *service) GetActiveVersion(ctx context.Context) (*Version, error) {
	version, err := s.repository.GetActiveVersion(ctx)
	if err != nil {
		if errors.Is(err, ErrVersionNotFound) {
			return nil, notFound("get_active_version", "No active version", err)
		}
		return nil, wrap("get_active_version", err)
	}
	return version, nil
}

func (s *service) DeleteVersion(ctx context.Context, id int64) error {
	if err := s.repository.DeleteVersion(ctx, id); err != nil {
		if errors.Is(err, ErrVersionNotFound) {
			return notFound("delete_version", "Version not found", err)
		}
		return wrap("delete_version", err)
	}
	s.metrics.versions.WithLabelValues("deleted").Inc()
	return nil
}

// DiffVersion compares the snapshot of version id against the live content
// as indented JSON.
func (s *service) DiffVersion(ctx context.Context, id int64) (*VersionDiff, error) {
	version, err := s.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	current, err := s.loadStructured(ctx, s.repository)
	if err != nil {
		return nil, wrap("diff_version", err)
	}

	from, err := json.MarshalIndent(normalizeTree(&version.Snapshot), "", "  ")
	if err != nil {
		return nil, wrap("diff_version", err)
	}
	to, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, wrap("diff_version", err)
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(from) + "\n"),
		B:        difflib.SplitLines(string(to) + "\n"),
		FromFile: fmt.Sprintf("version-%d", version.ID),
		ToFile:   "current",
		Context:  3,
	})
	if err != nil {
		return nil, wrap("diff_version", err)
	}
	return &VersionDiff{VersionID: version.ID, Changed: unified != "", Unified: unified}, nil
}
