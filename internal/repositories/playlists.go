package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/videocave/backend/internal/db"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/playlists"
	"github.com/videocave/backend/internal/views"
)

const playlistColumns = `id, owner_id, name, description, video_ids::TEXT[], created_at, updated_at`

func scanPlaylist(row scanner) (models.Playlist, error) {
	var p models.Playlist
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.VideoIDs, &p.CreatedAt, &p.UpdatedAt)
	if p.VideoIDs == nil {
		p.VideoIDs = []string{}
	}
	return p, err
}

// PostgresPlaylistRepository stores playlists. Video membership lives in an
// ordered UUID array so the stored order is the insertion order.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create stores a new playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	videoIDs := playlist.VideoIDs
	if videoIDs == nil {
		videoIDs = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, video_ids, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::UUID[], $6, $7)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, videoIDs, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return classify(err, "insert playlist")
	}
	return nil
}

// FindByID fetches a playlist by id.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := scanPlaylist(conn.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id))
	if err != nil {
		return models.Playlist{}, classify(err, "select playlist")
	}
	return playlist, nil
}

// ListByOwner returns the owner's playlists, most recently updated first.
func (r *PostgresPlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+playlistColumns+`
        FROM playlists
        WHERE owner_id = $1
        ORDER BY updated_at DESC, id ASC
    `, ownerID)
	if err != nil {
		return nil, classify(err, "query playlists")
	}
	defer rows.Close()

	out := []models.Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		out = append(out, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return out, nil
}

// Update changes the non-empty fields among name and description.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, name, description string) (models.Playlist, error) {
	return r.updateReturning(ctx, "update playlist", "", `
        UPDATE playlists
        SET name = COALESCE(NULLIF($2, ''), name),
            description = COALESCE(NULLIF($3, ''), description),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+playlistColumns, id, name, description)
}

// Delete removes a playlist.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return classify(err, "delete playlist")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVideo appends videoID, failing with ErrConflict when already present.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, id, videoID string) (models.Playlist, error) {
	return r.updateReturning(ctx, "add playlist video", id, `
        UPDATE playlists
        SET video_ids = array_append(video_ids, $2::UUID), updated_at = NOW()
        WHERE id = $1 AND NOT ($2::UUID = ANY (video_ids))
        RETURNING `+playlistColumns, id, videoID)
}

// RemoveVideo drops videoID, failing with ErrConflict when absent.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, id, videoID string) (models.Playlist, error) {
	return r.updateReturning(ctx, "remove playlist video", id, `
        UPDATE playlists
        SET video_ids = array_remove(video_ids, $2::UUID), updated_at = NOW()
        WHERE id = $1 AND $2::UUID = ANY (video_ids)
        RETURNING `+playlistColumns, id, videoID)
}

// updateReturning runs an UPDATE ... RETURNING. When guardID is set and no row
// matched, it tells a missing playlist from a failed condition.
func (r *PostgresPlaylistRepository) updateReturning(ctx context.Context, op, guardID, sql string, args ...any) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	playlist, err := scanPlaylist(conn.QueryRow(ctx, sql, args...))
	if err == nil {
		return playlist, nil
	}
	err = classify(err, op)
	if guardID != "" && errors.Is(err, ErrNotFound) {
		return models.Playlist{}, missingOrConflict(ctx, conn, "playlists", guardID)
	}
	return models.Playlist{}, err
}

var _ playlists.Store = (*PostgresPlaylistRepository)(nil)
var _ views.PlaylistSource = (*PostgresPlaylistRepository)(nil)
