package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialmaps/internal/logger"
	"socialmaps/internal/metrics"
	"socialmaps/internal/model"
	"socialmaps/internal/queue"
	"socialmaps/internal/repository"
)

const (
	DefaultFollowListLimit = 20
	MaxFollowListLimit     = 100
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	tx         repository.TxManager
	publisher  queue.Publisher
	metrics    metrics.Recorder
	log        *zap.Logger
}

// NewFollowService wires the follow graph. publisher and rec may be nil.
func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	tx repository.TxManager,
	publisher queue.Publisher,
	rec metrics.Recorder,
) *FollowService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		tx:         tx,
		publisher:  publisher,
		metrics:    rec,
		log:        logger.Named("follow_service"),
	}
}

// FollowUser adds the edge follower -> following. A second call returns ErrAlreadyFollowing
// and leaves exactly one edge.
func (s *FollowService) FollowUser(ctx context.Context, followerID, followingID string) error {
	err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		inserted, err := s.createEdge(ctx, q, followerID, followingID)
		if err != nil {
			return err
		}
		if !inserted {
			return model.ErrAlreadyFollowing
		}
		return nil
	})
	s.metrics.RecordOperation("follow", metrics.Outcome(err))
	if err != nil {
		return err
	}

	publishEvent(ctx, s.publisher, s.log, queue.NewUserFollowedEvent(followerID, followingID))
	return nil
}

// createEdge validates both ends and inserts the edge on q. It reports whether a row was written.
func (s *FollowService) createEdge(ctx context.Context, q sqlx.ExtContext, followerID, followingID string) (bool, error) {
	if followerID == followingID {
		return false, model.ErrCannotFollowSelf
	}

	exists, err := s.userRepo.Exists(ctx, followingID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, model.ErrUserNotFound
	}

	return s.followRepo.Create(ctx, q, followerID, followingID)
}

func (s *FollowService) UnfollowUser(ctx context.Context, followerID, followingID string) error {
	err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.followRepo.Delete(ctx, q, followerID, followingID)
	})
	s.metrics.RecordOperation("unfollow", metrics.Outcome(err))
	if err != nil {
		return err
	}

	publishEvent(ctx, s.publisher, s.log, queue.NewUserUnfollowedEvent(followerID, followingID))
	return nil
}

// IsFollowing reports whether the edge follower -> following exists.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followingID)
}

// FetchFollowData returns both id lists of userID. The two reads run concurrently.
func (s *FollowService) FetchFollowData(ctx context.Context, userID string) (*model.FollowData, error) {
	data := &model.FollowData{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.followRepo.GetFollowerIDs(gctx, userID)
		data.Followers = ids
		return err
	})
	g.Go(func() error {
		ids, err := s.followRepo.GetFollowingIDs(gctx, userID)
		data.Following = ids
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if data.Followers == nil {
		data.Followers = []string{}
	}
	if data.Following == nil {
		data.Following = []string{}
	}
	return data, nil
}

// GetFollowers pages through userID's followers. viewerID may be empty for anonymous enrichment.
func (s *FollowService) GetFollowers(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error) {
	users, nextCursor, err := s.followRepo.GetFollowers(ctx, userID, cursor, clampLimit(limit, DefaultFollowListLimit, MaxFollowListLimit))
	if err != nil {
		return nil, err
	}
	return s.listResponse(ctx, users, nextCursor, viewerID), nil
}

func (s *FollowService) GetFollowing(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error) {
	users, nextCursor, err := s.followRepo.GetFollowing(ctx, userID, cursor, clampLimit(limit, DefaultFollowListLimit, MaxFollowListLimit))
	if err != nil {
		return nil, err
	}
	return s.listResponse(ctx, users, nextCursor, viewerID), nil
}

func (s *FollowService) listResponse(ctx context.Context, users []model.UserSummary, nextCursor *model.FollowCursor, viewerID string) *model.FollowListResponse {
	if viewerID != "" {
		users = enrichWithFollowStatus(ctx, s.followRepo, viewerID, users)
	}
	if users == nil {
		users = []model.UserSummary{}
	}

	var nextCursorStr *string
	if nextCursor != nil {
		str := nextCursor.Encode()
		nextCursorStr = &str
	}

	return &model.FollowListResponse{
		Users:      users,
		NextCursor: nextCursorStr,
		HasMore:    nextCursor != nil,
	}
}

// enrichWithFollowStatus sets IsFollowing with one batched query. On failure users are
// returned unenriched rather than failing the whole list.
func enrichWithFollowStatus(ctx context.Context, followRepo repository.FollowRepository, viewerID string, users []model.UserSummary) []model.UserSummary {
	if len(users) == 0 {
		return users
	}

	userIDs := make([]string, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}

	followMap, err := followRepo.CheckFollows(ctx, viewerID, userIDs)
	if err != nil {
		return users
	}

	for i := range users {
		users[i].IsFollowing = followMap[users[i].ID]
	}
	return users
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
