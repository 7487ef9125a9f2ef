package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialmaps/internal/logger"
	"socialmaps/internal/model"
	"socialmaps/internal/repository"
)

// UserService handles business logic for user operations
type UserService struct {
	repo       repository.UserRepository
	followRepo repository.FollowRepository
	notifRepo  repository.NotificationRepository
	media      *MediaService
	log        *zap.Logger
}

func NewUserService(
	repo repository.UserRepository,
	followRepo repository.FollowRepository,
	notifRepo repository.NotificationRepository,
	media *MediaService,
) *UserService {
	return &UserService{
		repo:       repo,
		followRepo: followRepo,
		notifRepo:  notifRepo,
		media:      media,
		log:        logger.Named("user_service"),
	}
}

// FindUsers matches term inside usernames, case-insensitively. A blank term returns an
// empty result without touching the store.
func (s *UserService) FindUsers(ctx context.Context, term string, limit int, viewerID string) ([]model.UserSummary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.UserSummary{}, nil
	}

	users, err := s.repo.Search(ctx, term, clampLimit(limit, model.DefaultSearchLimit, model.MaxSearchLimit))
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.UserSummary{}
	}

	if viewerID != "" {
		users = enrichWithFollowStatus(ctx, s.followRepo, viewerID, users)
	}
	return users, nil
}

// GetProfile loads userID with follow counts and, for another viewer, the follow button state.
func (s *UserService) GetProfile(ctx context.Context, userID, viewerID string) (*model.ProfileResponse, error) {
	resp := &model.ProfileResponse{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.repo.GetByID(gctx, userID)
		resp.User = user
		return err
	})
	g.Go(func() error {
		n, err := s.followRepo.CountFollowers(gctx, userID)
		resp.FollowerCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.followRepo.CountFollowing(gctx, userID)
		resp.FollowingCount = n
		return err
	})
	if viewerID != "" && viewerID != userID {
		g.Go(func() error {
			ok, err := s.followRepo.Exists(gctx, viewerID, userID)
			resp.IsFollowing = ok
			return err
		})
		g.Go(func() error {
			ok, err := s.notifRepo.HasPendingRequest(gctx, userID, viewerID)
			resp.RequestPending = ok
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.User, error) {
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	return s.repo.UpdateProfile(ctx, userID, req)
}

// UpdateAvatar uploads a normalized avatar and points the profile at it.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	result, err := s.media.UploadAvatar(ctx, userID, file, header)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetAvatarURL(ctx, userID, result.URL); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *UserService) SetPushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if !IsExpoToken(token) {
		return model.ErrInvalidPushToken
	}
	return s.repo.SetPushToken(ctx, userID, token)
}

// ProvisionUser creates or refreshes the row for an identity provider account. A username
// already taken by someone else is dropped rather than failing the whole provisioning.
func (s *UserService) ProvisionUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return nil, model.ErrInvalidIdentity
	}

	user, err := s.repo.Upsert(ctx, identity)
	if errors.Is(err, model.ErrUsernameExists) && identity.Username != nil {
		s.log.Warn("username taken, provisioning without it",
			zap.String("user_id", identity.ID),
			zap.String("username", *identity.Username),
		)
		identity.Username = nil
		user, err = s.repo.Upsert(ctx, identity)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
