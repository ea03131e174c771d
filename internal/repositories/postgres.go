package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videocave/backend/internal/auth"
	"github.com/videocave/backend/internal/db"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/views"
)

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `
        id, handle, email, full_name, password_hash,
        avatar_url, avatar_public_id, cover_url, cover_public_id,
        watch_history::TEXT[], email_verified,
        COALESCE(verification_token, ''), COALESCE(refresh_token, ''),
        profile_completed, created_at, updated_at`

func scanUser(row scanner) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Handle, &user.Email, &user.FullName, &user.PasswordHash,
		&user.AvatarURL, &user.AvatarPublicID, &user.CoverURL, &user.CoverPublicID,
		&user.WatchHistory, &user.EmailVerified,
		&user.VerificationToken, &user.RefreshToken,
		&user.ProfileCompleted, &user.CreatedAt, &user.UpdatedAt,
	)
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}
	return user, err
}

// PostgresUserRepository provides PostgreSQL-backed persistence for identities
// and their watch history.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	history := user.WatchHistory
	if history == nil {
		history = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO users (
            id, handle, email, full_name, password_hash,
            avatar_url, avatar_public_id, cover_url, cover_public_id,
            watch_history, email_verified, verification_token, refresh_token,
            profile_completed, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::UUID[], $11, NULLIF($12, ''), NULLIF($13, ''), $14, $15, $16)
    `, user.ID, user.Handle, user.Email, user.FullName, user.PasswordHash,
		user.AvatarURL, user.AvatarPublicID, user.CoverURL, user.CoverPublicID,
		history, user.EmailVerified, user.VerificationToken, user.RefreshToken,
		user.ProfileCompleted, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return classify(err, "insert user")
	}

	return nil
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

// FindByHandle fetches a user by handle.
func (r *PostgresUserRepository) FindByHandle(ctx context.Context, handle string) (models.User, error) {
	return r.findOne(ctx, "handle = $1", handle)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, classify(err, "select user")
	}
	return user, nil
}

// FindByIDs fetches the users with the given ids in no particular order.
// Unknown ids are skipped.
func (r *PostgresUserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::UUID[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// SetVerificationToken replaces the stored verification token.
func (r *PostgresUserRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, "set verification token", `
        UPDATE users SET verification_token = NULLIF($2, ''), updated_at = NOW()
        WHERE id = $1
    `, id, token)
}

// MarkEmailVerified flags the email as verified and clears the verification
// token. It fails with ErrConflict when the email is already verified or the
// stored token differs from token.
func (r *PostgresUserRepository) MarkEmailVerified(ctx context.Context, id, token string) error {
	return r.execGuarded(ctx, "mark email verified", id, `
        UPDATE users
        SET email_verified = TRUE, verification_token = NULL, updated_at = NOW()
        WHERE id = $1 AND NOT email_verified AND verification_token = $2
    `, id, token)
}

// CompleteProfile sets the chosen handle and images. It fails with
// ErrConflict when the profile is already complete or the handle is taken.
// A nil cover leaves the current cover unchanged.
func (r *PostgresUserRepository) CompleteProfile(ctx context.Context, id, handle string, avatar models.AssetRef, cover *models.AssetRef) error {
	var coverURL, coverID *string
	if cover != nil {
		coverURL, coverID = &cover.URL, &cover.PublicID
	}
	return r.execGuarded(ctx, "complete profile", id, `
        UPDATE users
        SET handle = $2,
            avatar_url = $3,
            avatar_public_id = $4,
            cover_url = COALESCE($5::TEXT, cover_url),
            cover_public_id = COALESCE($6::TEXT, cover_public_id),
            profile_completed = TRUE,
            updated_at = NOW()
        WHERE id = $1 AND NOT profile_completed
    `, id, handle, avatar.URL, avatar.PublicID, coverURL, coverID)
}

// UpdateAccount changes email and full name. Empty values leave the field
// unchanged.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, email, fullName string) error {
	return r.exec(ctx, "update account", `
        UPDATE users
        SET email = COALESCE(NULLIF($2, ''), email),
            full_name = COALESCE(NULLIF($3, ''), full_name),
            updated_at = NOW()
        WHERE id = $1
    `, id, email, fullName)
}

// UpdateAvatar stores a new avatar reference.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id string, asset models.AssetRef) error {
	return r.exec(ctx, "update avatar", `
        UPDATE users SET avatar_url = $2, avatar_public_id = $3, updated_at = NOW()
        WHERE id = $1
    `, id, asset.URL, asset.PublicID)
}

// UpdateCover stores a new cover image reference.
func (r *PostgresUserRepository) UpdateCover(ctx context.Context, id string, asset models.AssetRef) error {
	return r.exec(ctx, "update cover", `
        UPDATE users SET cover_url = $2, cover_public_id = $3, updated_at = NOW()
        WHERE id = $1
    `, id, asset.URL, asset.PublicID)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, "update password", `
        UPDATE users SET password_hash = $2, updated_at = NOW()
        WHERE id = $1
    `, id, hash)
}

// SetRefreshToken replaces the stored refresh token unconditionally.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, "set refresh token", `
        UPDATE users SET refresh_token = NULLIF($2, ''), updated_at = NOW()
        WHERE id = $1
    `, id, token)
}

// RotateRefreshToken swaps presented for next only while presented is still
// the stored token. A lost race fails with ErrConflict.
func (r *PostgresUserRepository) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	return r.execGuarded(ctx, "rotate refresh token", id, `
        UPDATE users SET refresh_token = $3, updated_at = NOW()
        WHERE id = $1 AND refresh_token = $2
    `, id, presented, next)
}

// ClearRefreshToken removes the stored refresh token.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.exec(ctx, "clear refresh token", `
        UPDATE users SET refresh_token = NULL, updated_at = NOW()
        WHERE id = $1
    `, id)
}

// RecordView appends videoID to the watch history, moving an existing entry
// to the end.
func (r *PostgresUserRepository) RecordView(ctx context.Context, id, videoID string) error {
	return r.exec(ctx, "record view", `
        UPDATE users
        SET watch_history = array_append(array_remove(watch_history, $2::UUID), $2::UUID),
            updated_at = NOW()
        WHERE id = $1
    `, id, videoID)
}

// RemoveFromHistory drops videoID from the watch history. The history holds
// UUIDs only, so a malformed videoID is absent and the call succeeds.
func (r *PostgresUserRepository) RemoveFromHistory(ctx context.Context, id, videoID string) error {
	if _, err := uuid.Parse(videoID); err != nil {
		return nil
	}
	return r.exec(ctx, "remove from history", `
        UPDATE users SET watch_history = array_remove(watch_history, $2::UUID), updated_at = NOW()
        WHERE id = $1
    `, id, videoID)
}

// ClearHistory empties the watch history.
func (r *PostgresUserRepository) ClearHistory(ctx context.Context, id string) error {
	return r.exec(ctx, "clear history", `
        UPDATE users SET watch_history = ARRAY[]::UUID[], updated_at = NOW()
        WHERE id = $1
    `, id)
}

// exec runs a single-row update and reports ErrNotFound when no row matched.
func (r *PostgresUserRepository) exec(ctx context.Context, op, sql string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		return classify(err, op)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// execGuarded runs a conditional single-row update. When no row matched it
// distinguishes a missing user (ErrNotFound) from a failed condition
// (ErrConflict).
func (r *PostgresUserRepository) execGuarded(ctx context.Context, op, id, sql string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		return classify(err, op)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return missingOrConflict(ctx, conn, "users", id)
}

func missingOrConflict(ctx context.Context, conn *pgxpool.Conn, table, id string) error {
	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return classify(err, "check "+table+" existence")
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

var _ auth.IdentityStore = (*PostgresUserRepository)(nil)
var _ views.UserSource = (*PostgresUserRepository)(nil)
