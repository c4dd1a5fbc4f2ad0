package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/outbox"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

type PlanningService struct {
	repo       *repository.PlanningRepository
	outboxRepo *outbox.Repository
	tokenSalt  string
	logger     *zap.Logger
}

func NewPlanningService(repo *repository.PlanningRepository, tokenSalt string, logger *zap.Logger) *PlanningService {
	return &PlanningService{
		repo:       repo,
		outboxRepo: outbox.NewRepository(repo.Pool()),
		tokenSalt:  tokenSalt,
		logger:     logger,
	}
}

// CreateGroup creates a group with a derived join token and adds the owner as
// the first participant. Both rows commit in one transaction.
func (s *PlanningService) CreateGroup(ctx context.Context, ownerID int, name string, year int, ownerName string) (*model.PlanningGroup, error) {
	groupKey := fmt.Sprintf("%d:%s:%d", ownerID, name, time.Now().UnixNano())
	g := &model.PlanningGroup{
		OwnerID:   ownerID,
		Name:      name,
		Year:      year,
		JoinToken: util.DeriveJoinToken(groupKey, s.tokenSalt),
	}
	owner := &model.PlanningParticipant{
		UserID:      ownerID,
		DisplayName: ownerName,
	}
	if err := s.repo.CreateGroupWithOwner(ctx, g, owner); err != nil {
		return nil, err
	}
	return g, nil
}

// JoinGroup resolves the token and adds the user. Joining twice is a no-op
// that returns the existing membership.
func (s *PlanningService) JoinGroup(ctx context.Context, token string, userID int, displayName string) (*model.PlanningGroup, error) {
	g, err := s.repo.FindGroupByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	p := &model.PlanningParticipant{
		GroupID:     g.ID,
		UserID:      userID,
		DisplayName: displayName,
	}
	if err := s.repo.AddParticipant(ctx, p); err != nil {
		if !util.IsUniqueViolation(err) {
			return nil, err
		}
		// 重复加入按幂等处理
		s.logger.Debug("User already in planning group",
			zap.Int("group_id", g.ID),
			zap.Int("user_id", userID),
		)
	}

	return g, nil
}

func (s *PlanningService) ListGroups(ctx context.Context, userID int) ([]model.PlanningGroup, error) {
	groups, err := s.repo.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// 只有群主能看到邀请 token
	for i := range groups {
		if groups[i].OwnerID != userID {
			groups[i].JoinToken = ""
		}
	}
	return groups, nil
}

// GroupDetail returns the group with its participants. The join token is only
// included for the owner.
func (s *PlanningService) GroupDetail(ctx context.Context, groupID, userID int) (*model.PlanningGroupDetail, error) {
	g, err := s.repo.FindGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	if _, err := s.repo.FindParticipant(ctx, groupID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}

	participants, err := s.repo.ListParticipants(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if g.OwnerID != userID {
		g.JoinToken = ""
	}

	return &model.PlanningGroupDetail{
		PlanningGroup: *g,
		Participants:  participants,
	}, nil
}

func (s *PlanningService) SubmitIdea(ctx context.Context, groupID, userID int, title, description string) (*model.PlanningIdea, error) {
	p, err := s.participant(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	idea := &model.PlanningIdea{
		GroupID:       groupID,
		ParticipantID: p.ID,
		Title:         title,
		Description:   description,
	}
	if err := s.repo.InsertIdea(ctx, idea); err != nil {
		return nil, err
	}
	return idea, nil
}

func (s *PlanningService) ListIdeas(ctx context.Context, groupID, userID int) ([]model.PlanningIdea, error) {
	p, err := s.participant(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListIdeasWithVotes(ctx, groupID, p.ID)
}

// Vote casts the user's vote for an idea. Voting twice returns ErrAlreadyVoted.
func (s *PlanningService) Vote(ctx context.Context, groupID, ideaID, userID int) error {
	p, err := s.participant(ctx, groupID, userID)
	if err != nil {
		return err
	}

	idea, err := s.repo.FindIdeaByID(ctx, ideaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGroupNotFound
		}
		return err
	}
	if idea.GroupID != groupID {
		return ErrGroupNotFound
	}

	if err := s.repo.InsertVote(ctx, ideaID, p.ID); err != nil {
		if util.IsUniqueViolation(err) {
			metrics.IncrementPlanningVote("duplicate")
			return ErrAlreadyVoted
		}
		return err
	}
	metrics.IncrementPlanningVote("accepted")
	return nil
}

// Unvote retracts the user's vote. Missing vote returns ErrNoVote.
func (s *PlanningService) Unvote(ctx context.Context, groupID, ideaID, userID int) error {
	p, err := s.participant(ctx, groupID, userID)
	if err != nil {
		return err
	}

	rows, err := s.repo.DeleteVote(ctx, ideaID, p.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNoVote
	}
	metrics.IncrementPlanningVote("retracted")
	return nil
}

// PromoteIdea turns an open idea into a scheduled event. Only the group owner
// may promote. The event insert and the idea.promoted outbox record commit in
// one transaction.
func (s *PlanningService) PromoteIdea(ctx context.Context, groupID, ideaID, userID, scheduledMonth int) (*model.PlanningEvent, error) {
	g, err := s.repo.FindGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if g.OwnerID != userID {
		return nil, ErrNotOwner
	}

	idea, err := s.repo.FindIdeaByID(ctx, ideaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if idea.GroupID != groupID {
		return nil, ErrGroupNotFound
	}
	if idea.Status == model.IdeaPromoted {
		return nil, ErrAlreadyPromoted
	}

	tx, err := s.repo.Pool().Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ev := &model.PlanningEvent{
		GroupID:        groupID,
		IdeaID:         ideaID,
		Title:          idea.Title,
		ScheduledMonth: scheduledMonth,
	}
	if err := s.repo.PromoteIdeaTx(ctx, tx, ev); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// 并发提升时状态守卫生效
			return nil, ErrAlreadyPromoted
		}
		return nil, err
	}

	payload := mqcontracts.IdeaPromotedPayload{
		EventID:        ev.ID,
		IdeaID:         ideaID,
		GroupID:        groupID,
		Title:          ev.Title,
		ScheduledMonth: scheduledMonth,
		PromotedBy:     userID,
	}
	evID64 := int64(ev.ID)
	if err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "planning_event", &evID64,
		mqcontracts.RoutingKeyIdeaPromoted, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Idea promoted to event",
		zap.Int("group_id", groupID),
		zap.Int("idea_id", ideaID),
		zap.Int("event_id", ev.ID),
		zap.Int("scheduled_month", scheduledMonth),
	)
	return ev, nil
}

func (s *PlanningService) ListEvents(ctx context.Context, groupID, userID int) ([]model.PlanningEvent, error) {
	if _, err := s.participant(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, groupID)
}

func (s *PlanningService) participant(ctx context.Context, groupID, userID int) (*model.PlanningParticipant, error) {
	p, err := s.repo.FindParticipant(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	return p, nil
}
