// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/podops/overseer/internal/model"
)

// CreateEpisode inserts a new draft episode row.
func (s *Store) CreateEpisode(ctx context.Context, e *model.Episode) error {
	meta, _ := json.Marshal(e.Metadata)
	query := `
	INSERT INTO episodes (id, group_id, snapshot_collection_id, status, script, edited_script, metadata, failure_reason, degraded_edit, publish_urls, created_at, updated_at, published_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	status := e.Status
	if status == "" {
		status = model.EpisodeDraft
	}
	_, err := s.DB.ExecContext(ctx, query,
		e.ID, e.GroupID, e.SnapshotCollectionID, status.String(), e.Script, e.EditedScript,
		string(meta), e.FailureReason, e.DegradedEdit, marshalStrings(e.PublishURLs),
		formatTime(e.CreatedAt), formatTime(e.CreatedAt), formatTime(e.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("store: create episode: %w", err)
	}
	return nil
}

// GetEpisode fetches one episode by ID.
func (s *Store) GetEpisode(ctx context.Context, id string) (*model.Episode, error) {
	query := `
	SELECT id, group_id, snapshot_collection_id, status, script, edited_script, metadata,
	       failure_reason, degraded_edit, publish_urls, created_at, updated_at, published_at
	FROM episodes WHERE id = ?
	`
	var e model.Episode
	var status, meta, urls, createdAt, updatedAt, publishedAt string
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.GroupID, &e.SnapshotCollectionID, &status, &e.Script, &e.EditedScript, &meta,
		&e.FailureReason, &e.DegradedEdit, &urls, &createdAt, &updatedAt, &publishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get episode: %w", err)
	}
	e.Status = model.EpisodeStatus(status)
	_ = json.Unmarshal([]byte(meta), &e.Metadata)
	e.PublishURLs = unmarshalStrings(urls)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.PublishedAt = parseTime(publishedAt)
	return &e, nil
}

// TransitionEpisode moves an episode to the next status, enforcing the
// monotonic state machine. The mutate callback applies stage output to the
// row before it is written.
func (s *Store) TransitionEpisode(ctx context.Context, id string, next model.EpisodeStatus, mutate func(*model.Episode)) (*model.Episode, error) {
	e, err := s.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("store: illegal episode transition %s -> %s", e.Status, next)
	}
	e.Status = next
	e.UpdatedAt = time.Now().UTC()
	if next == model.EpisodePublished {
		e.PublishedAt = e.UpdatedAt
	}
	if mutate != nil {
		mutate(e)
	}

	meta, _ := json.Marshal(e.Metadata)
	query := `
	UPDATE episodes
	SET status = ?, script = ?, edited_script = ?, metadata = ?, failure_reason = ?,
	    degraded_edit = ?, publish_urls = ?, updated_at = ?, published_at = ?
	WHERE id = ?
	`
	_, err = s.DB.ExecContext(ctx, query,
		e.Status.String(), e.Script, e.EditedScript, string(meta), e.FailureReason,
		e.DegradedEdit, marshalStrings(e.PublishURLs), formatTime(e.UpdatedAt), formatTime(e.PublishedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("store: transition episode: %w", err)
	}
	return e, nil
}

// LastEpisodeTime returns the creation time of the group's most recent
// episode that reached a non-failed state, or the zero time when none
// exists.
func (s *Store) LastEpisodeTime(ctx context.Context, groupID string) (time.Time, error) {
	var createdAt string
	err := s.DB.QueryRowContext(ctx, `
		SELECT created_at FROM episodes
		WHERE group_id = ? AND status != 'failed'
		ORDER BY created_at DESC LIMIT 1
	`, groupID).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: last episode time: %w", err)
	}
	return parseTime(createdAt), nil
}

// ActiveEpisodeForGroup returns a non-terminal episode of the group, if
// one exists. Used to verify the non-overlap invariant.
func (s *Store) ActiveEpisodeForGroup(ctx context.Context, groupID string) (*model.Episode, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id FROM episodes
		WHERE group_id = ? AND status NOT IN ('published', 'failed')
		LIMIT 1
	`, groupID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: active episode: %w", err)
	}
	return s.GetEpisode(ctx, id)
}

// InsertAudioFile persists the synthesized audio row for an episode.
func (s *Store) InsertAudioFile(ctx context.Context, f *model.AudioFile) error {
	query := `
	INSERT INTO audio_files (id, episode_id, storage_path, duration_seconds, byte_size, format, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.DB.ExecContext(ctx, query,
		f.ID, f.EpisodeID, f.StoragePath, f.DurationSeconds, f.ByteSize, f.Format, formatTime(f.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: insert audio file: %w", err)
	}
	return nil
}

// AudioFileForEpisode fetches the audio row bound to an episode.
func (s *Store) AudioFileForEpisode(ctx context.Context, episodeID string) (*model.AudioFile, error) {
	var f model.AudioFile
	var createdAt string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, episode_id, storage_path, duration_seconds, byte_size, format, created_at
		FROM audio_files WHERE episode_id = ?
	`, episodeID).Scan(&f.ID, &f.EpisodeID, &f.StoragePath, &f.DurationSeconds, &f.ByteSize, &f.Format, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: audio file: %w", err)
	}
	f.CreatedAt = parseTime(createdAt)
	return &f, nil
}
