package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videocave/backend/internal/db"
	"github.com/videocave/backend/internal/likes"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/views"
)

// PostgresSubscriptionRepository stores channel subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create records a subscription. Subscribing twice to the same channel yields
// ErrConflict; an unknown subscriber or channel yields ErrNotFound.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub models.Subscription) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt)
	if err != nil {
		return classify(err, "insert subscription")
	}
	return nil
}

// ListByChannel returns the subscriptions to channelID, oldest first.
func (r *PostgresSubscriptionRepository) ListByChannel(ctx context.Context, channelID string) ([]models.Subscription, error) {
	return r.list(ctx, "channel_id", channelID)
}

// ListBySubscriber returns the subscriptions held by subscriberID, oldest first.
func (r *PostgresSubscriptionRepository) ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error) {
	return r.list(ctx, "subscriber_id", subscriberID)
}

func (r *PostgresSubscriptionRepository) list(ctx context.Context, column, id string) ([]models.Subscription, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, subscriber_id, channel_id, created_at
        FROM subscriptions
        WHERE `+column+` = $1
        ORDER BY created_at ASC, id ASC
    `, id)
	if err != nil {
		return nil, classify(err, "query subscriptions")
	}
	defer rows.Close()

	out := []models.Subscription{}
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.SubscriberID, &sub.ChannelID, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

// PostgresLikeRepository stores likes on videos, comments and tweets.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle removes the existing like of like.LikedBy on like.Target or records
// like when there is none. It reports whether the like was added.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, like models.Like) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return false, fmt.Errorf("begin toggle like: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	kind, targetID := string(like.Target.Kind()), like.Target.ID()

	tag, err := tx.Exec(ctx, `
        DELETE FROM likes WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3
    `, like.LikedBy, kind, targetID)
	if err != nil {
		return false, classify(err, "delete like")
	}
	added := tag.RowsAffected() == 0

	if added {
		if _, err := tx.Exec(ctx, `
            INSERT INTO likes (id, liked_by, target_kind, target_id, created_at)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (liked_by, target_kind, target_id) DO NOTHING
        `, like.ID, like.LikedBy, kind, targetID, like.CreatedAt); err != nil {
			return false, classify(err, "insert like")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, classify(err, "commit toggle like")
	}
	return added, nil
}

// ListByUser returns the likes recorded by userID in the order they were made.
func (r *PostgresLikeRepository) ListByUser(ctx context.Context, userID string) ([]models.Like, error) {
	return r.list(ctx, `WHERE liked_by = $1`, userID)
}

// ListByTarget returns the likes on target.
func (r *PostgresLikeRepository) ListByTarget(ctx context.Context, target models.LikeTarget) ([]models.Like, error) {
	return r.list(ctx, `WHERE target_kind = $1 AND target_id = $2`, string(target.Kind()), target.ID())
}

func (r *PostgresLikeRepository) list(ctx context.Context, where string, args ...any) ([]models.Like, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, liked_by, target_kind, target_id, created_at
        FROM likes `+where+`
        ORDER BY created_at ASC, id ASC
    `, args...)
	if err != nil {
		return nil, classify(err, "query likes")
	}
	defer rows.Close()

	out := []models.Like{}
	for rows.Next() {
		var (
			like     models.Like
			kind     string
			targetID string
		)
		if err := rows.Scan(&like.ID, &like.LikedBy, &kind, &targetID, &like.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		target, err := models.NewLikeTarget(models.TargetKind(kind), targetID)
		if err != nil {
			return nil, fmt.Errorf("decode like %s: %w", like.ID, err)
		}
		like.Target = target
		out = append(out, like)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}
	return out, nil
}

var _ likes.Store = (*PostgresLikeRepository)(nil)
var _ views.LikeSource = (*PostgresLikeRepository)(nil)
var _ views.SubscriptionSource = (*PostgresSubscriptionRepository)(nil)
