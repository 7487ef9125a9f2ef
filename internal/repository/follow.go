package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"socialmaps/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create reports whether a new edge was written. A repeated follow is a no-op.
func (r *followRepository) Create(ctx context.Context, q sqlx.ExtContext, followerID, followingID string) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, following_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`
	result, err := q.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, q sqlx.ExtContext, followerID, followingID string) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`
	result, err := q.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFollowing
	}

	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE following_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return n, nil
}

func (r *followRepository) CountFollowing(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE follower_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return n, nil
}

// GetFollowers returns users following userID, newest edge first.
// Pages are keyed on (created_at, user id): pass the returned cursor to get the next page.
func (r *followRepository) GetFollowers(ctx context.Context, userID string, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error) {
	users, next, err := r.page(ctx, "follower_id", "following_id", userID, cursor, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return users, next, nil
}

// GetFollowing returns users that userID follows. Same paging rules as GetFollowers.
func (r *followRepository) GetFollowing(ctx context.Context, userID string, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error) {
	users, next, err := r.page(ctx, "following_id", "follower_id", userID, cursor, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get following: %w", err)
	}
	return users, next, nil
}

// page joins users on joinCol and filters on filterCol. Both are fixed column names.
func (r *followRepository) page(ctx context.Context, joinCol, filterCol, userID string, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error) {
	query := `
		SELECT u.id, u.username, u.first_name, u.last_name, u.avatar_url, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.` + joinCol + `
		WHERE f.` + filterCol + ` = $1
		  AND ($2::timestamptz IS NULL OR (f.created_at, f.` + joinCol + `) < ($2::timestamptz, $3::text))
		ORDER BY f.created_at DESC, f.` + joinCol + ` DESC
		LIMIT $4
	`

	type userWithTime struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	// fetch one extra row to learn whether another page exists
	var results []userWithTime
	var after, afterID interface{}
	if cursor != nil {
		after, afterID = cursor.CreatedAt, cursor.UserID
	}
	if err := r.db.SelectContext(ctx, &results, query, userID, after, afterID, limit+1); err != nil {
		return nil, nil, err
	}

	var nextCursor *model.FollowCursor
	if len(results) > limit {
		results = results[:limit]
		last := results[len(results)-1]
		nextCursor = &model.FollowCursor{CreatedAt: last.CreatedAt, UserID: last.ID}
	}

	users := make([]model.UserSummary, 0, len(results))
	for _, result := range results {
		users = append(users, result.UserSummary)
	}

	return users, nextCursor, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	query := `SELECT follower_id FROM follows WHERE following_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	query := `SELECT following_id FROM follows WHERE follower_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get following ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) CheckFollows(ctx context.Context, followerID string, followingIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(followingIDs))
	if len(followingIDs) == 0 {
		return result, nil
	}

	query := `SELECT following_id FROM follows WHERE follower_id = $1 AND following_id = ANY($2)`
	var followedIDs []string
	if err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(followingIDs)); err != nil {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}

	for _, id := range followingIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}

	return result, nil
}
