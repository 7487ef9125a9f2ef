package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"socialmaps/internal/logger"
	"socialmaps/internal/metrics"
	"socialmaps/internal/model"
	"socialmaps/internal/queue"
	"socialmaps/internal/repository"
)

// NotificationService owns the follow request lifecycle:
// none -> requested -> accepted | rejected | cancelled.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	follows   *FollowService
	tx        repository.TxManager
	publisher queue.Publisher
	metrics   metrics.Recorder
	log       *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	follows *FollowService,
	tx repository.TxManager,
	publisher queue.Publisher,
	rec metrics.Recorder,
) *NotificationService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &NotificationService{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		follows:   follows,
		tx:        tx,
		publisher: publisher,
		metrics:   rec,
		log:       logger.Named("notification_service"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// SendFollowRequest puts a follow request from followerID into followingID's inbox.
// Empty snapshot fields in `in` fall back to the follower's current profile.
func (s *NotificationService) SendFollowRequest(ctx context.Context, followerID, followingID string, in model.FollowRequestInput) (*model.Notification, error) {
	n, err := s.sendFollowRequest(ctx, followerID, followingID, in)
	s.metrics.RecordOperation("send_request", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.log, queue.NewNotificationCreatedEvent(n))
	return n, nil
}

func (s *NotificationService) sendFollowRequest(ctx context.Context, followerID, followingID string, in model.FollowRequestInput) (*model.Notification, error) {
	if followerID == followingID {
		return nil, model.ErrCannotFollowSelf
	}

	exists, err := s.userRepo.Exists(ctx, followingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}

	following, err := s.follows.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if following {
		return nil, model.ErrAlreadyFollowing
	}

	follower, err := s.userRepo.GetByID(ctx, followerID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = follower.DisplayUsername()
	}
	avatar := strings.TrimSpace(in.AvatarURL)
	if avatar == "" {
		avatar = follower.DisplayAvatar()
	}

	n := &model.Notification{
		ID:             s.newID(),
		UserID:         followingID,
		ActorID:        followerID,
		Kind:           model.NotificationKindFollowRequest,
		Title:          model.TitleFollowRequest,
		ActorUsername:  optional(username),
		ActorAvatarURL: optional(avatar),
		CreatedAt:      s.now(),
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		inserted, err := s.notifRepo.CreateRequest(ctx, q, n)
		if err != nil {
			return err
		}
		if !inserted {
			return model.ErrRequestAlreadyPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// HasPendingRequest reports whether followerID has an open request in followingID's inbox.
func (s *NotificationService) HasPendingRequest(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.notifRepo.HasPendingRequest(ctx, followingID, followerID)
}

// DeleteNotifications removes every pending request from followerID in followingID's inbox
// and returns how many were removed.
func (s *NotificationService) DeleteNotifications(ctx context.Context, followerID, followingID string) (int64, error) {
	var removed int64
	err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		n, err := s.notifRepo.DeleteRequests(ctx, q, followingID, followerID)
		removed = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CancelRequest withdraws requesterID's pending request to targetID.
func (s *NotificationService) CancelRequest(ctx context.Context, requesterID, targetID string) error {
	removed, err := s.DeleteNotifications(ctx, requesterID, targetID)
	if err == nil && removed == 0 {
		err = model.ErrNoPendingRequest
	}
	s.metrics.RecordOperation("cancel_request", metrics.Outcome(err))
	return err
}

// ResendNotifications appends a notification to the original requester's inbox with the
// other party as actor. Kind defaults to message; follow requests cannot be sent this way.
func (s *NotificationService) ResendNotifications(ctx context.Context, in model.ResendInput) (*model.Notification, error) {
	n, err := s.buildResend(in)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.notifRepo.Create(ctx, q, n)
	})
	s.metrics.RecordOperation("resend", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.log, queue.NewNotificationCreatedEvent(n))
	return n, nil
}

func (s *NotificationService) buildResend(in model.ResendInput) (*model.Notification, error) {
	if in.FollowerID == "" || in.FollowingID == "" {
		return nil, model.ErrInvalidNotification
	}

	kind := in.Kind
	if kind == "" {
		kind = model.NotificationKindMessage
	}
	if kind == model.NotificationKindFollowRequest {
		return nil, model.ErrInvalidNotification
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		if kind != model.NotificationKindFollowAccepted {
			return nil, model.ErrInvalidNotification
		}
		title = model.TitleFollowAccepted
	}

	return &model.Notification{
		ID:             s.newID(),
		UserID:         in.FollowerID,
		ActorID:        in.FollowingID,
		Kind:           kind,
		Title:          title,
		Message:        optional(in.Message),
		ActorUsername:  optional(in.Username),
		ActorAvatarURL: optional(in.AvatarURL),
		CreatedAt:      s.now(),
	}, nil
}

// ShowNotifications returns ownID's whole inbox, newest first.
func (s *NotificationService) ShowNotifications(ctx context.Context, ownID string) ([]model.Notification, error) {
	return s.notifRepo.ListForUser(ctx, ownID)
}

// AcceptRequest runs the accept flow in one transaction: the pending request is consumed,
// the edge requester -> accepter is created and the requester gets one follow_accepted entry.
// Nothing is written when there is no pending request.
func (s *NotificationService) AcceptRequest(ctx context.Context, requesterID, accepterID string) (*model.Notification, error) {
	n, err := s.acceptRequest(ctx, requesterID, accepterID)
	s.metrics.RecordOperation("accept_request", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.log, queue.NewUserFollowedEvent(requesterID, accepterID))
	publishEvent(ctx, s.publisher, s.log, queue.NewNotificationCreatedEvent(n))
	return n, nil
}

func (s *NotificationService) acceptRequest(ctx context.Context, requesterID, accepterID string) (*model.Notification, error) {
	accepter, err := s.userRepo.GetByID(ctx, accepterID)
	if err != nil {
		return nil, err
	}

	n, err := s.buildResend(model.ResendInput{
		FollowerID:  requesterID,
		FollowingID: accepterID,
		Username:    accepter.DisplayUsername(),
		AvatarURL:   accepter.DisplayAvatar(),
		Message:     model.MessageFollowAccepted,
		Title:       model.TitleFollowAccepted,
		Kind:        model.NotificationKindFollowAccepted,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		removed, err := s.notifRepo.DeleteRequests(ctx, q, accepterID, requesterID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return model.ErrNoPendingRequest
		}

		// already following is fine here: the request is still consumed
		if _, err := s.follows.createEdge(ctx, q, requesterID, accepterID); err != nil {
			return err
		}

		return s.notifRepo.Create(ctx, q, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// RejectRequest drops the pending request. The requester is not notified.
func (s *NotificationService) RejectRequest(ctx context.Context, requesterID, rejecterID string) error {
	removed, err := s.DeleteNotifications(ctx, requesterID, rejecterID)
	if err == nil && removed == 0 {
		err = model.ErrNoPendingRequest
	}
	s.metrics.RecordOperation("reject_request", metrics.Outcome(err))
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
