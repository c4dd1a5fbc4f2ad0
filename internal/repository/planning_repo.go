package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

type PlanningRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPlanningRepository(db *pgxpool.Pool, logger *zap.Logger) *PlanningRepository {
	return &PlanningRepository{db: db, logger: logger}
}

// Pool exposes the underlying pool for service-level transactions.
func (r *PlanningRepository) Pool() *pgxpool.Pool {
	return r.db
}

// CreateGroupWithOwner inserts the group and its owner membership in one
// transaction. A failed membership insert rolls the group back so no orphaned
// group (invisible to everyone) is left behind.
func (r *PlanningRepository) CreateGroupWithOwner(ctx context.Context, g *model.PlanningGroup, owner *model.PlanningParticipant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertGroup := `
        INSERT INTO planning_groups (owner_id, name, year, join_token)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	if err := tx.QueryRow(ctx, insertGroup, g.OwnerID, g.Name, g.Year, g.JoinToken).
		Scan(&g.ID, &g.CreatedAt); err != nil {
		r.logger.Error("Failed to create planning group",
			zap.Error(err),
			zap.Int("owner_id", g.OwnerID),
		)
		return err
	}

	owner.GroupID = g.ID
	insertOwner := `
        INSERT INTO planning_participants (group_id, user_id, display_name)
        VALUES ($1, $2, $3)
        RETURNING id, joined_at
    `
	if err := tx.QueryRow(ctx, insertOwner, owner.GroupID, owner.UserID, owner.DisplayName).
		Scan(&owner.ID, &owner.JoinedAt); err != nil {
		r.logger.Error("Failed to add group owner as participant",
			zap.Error(err),
			zap.Int("group_id", g.ID),
			zap.Int("owner_id", g.OwnerID),
		)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.Info("Planning group created",
		zap.Int("group_id", g.ID),
		zap.Int("owner_id", g.OwnerID),
		zap.Int("year", g.Year),
	)
	return nil
}

func (r *PlanningRepository) FindGroupByToken(ctx context.Context, token string) (*model.PlanningGroup, error) {
	query := `
        SELECT id, owner_id, name, year, join_token, created_at
        FROM planning_groups
        WHERE join_token = $1
    `
	var g model.PlanningGroup
	err := r.db.QueryRow(ctx, query, token).Scan(
		&g.ID, &g.OwnerID, &g.Name, &g.Year, &g.JoinToken, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *PlanningRepository) FindGroupByID(ctx context.Context, groupID int) (*model.PlanningGroup, error) {
	query := `
        SELECT id, owner_id, name, year, join_token, created_at
        FROM planning_groups
        WHERE id = $1
    `
	var g model.PlanningGroup
	err := r.db.QueryRow(ctx, query, groupID).Scan(
		&g.ID, &g.OwnerID, &g.Name, &g.Year, &g.JoinToken, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGroupsForUser returns groups the user participates in.
func (r *PlanningRepository) ListGroupsForUser(ctx context.Context, userID int) ([]model.PlanningGroup, error) {
	query := `
        SELECT g.id, g.owner_id, g.name, g.year, g.join_token, g.created_at
        FROM planning_groups g
        JOIN planning_participants p ON p.group_id = g.id
        WHERE p.user_id = $1
        ORDER BY g.created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query planning groups",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	groups := []model.PlanningGroup{}
	for rows.Next() {
		var g model.PlanningGroup
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Year, &g.JoinToken, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *PlanningRepository) ListParticipants(ctx context.Context, groupID int) ([]model.PlanningParticipant, error) {
	query := `
        SELECT id, group_id, user_id, display_name, joined_at
        FROM planning_participants
        WHERE group_id = $1
        ORDER BY joined_at ASC
    `
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []model.PlanningParticipant{}
	for rows.Next() {
		var p model.PlanningParticipant
		if err := rows.Scan(&p.ID, &p.GroupID, &p.UserID, &p.DisplayName, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *PlanningRepository) AddParticipant(ctx context.Context, p *model.PlanningParticipant) error {
	query := `
        INSERT INTO planning_participants (group_id, user_id, display_name)
        VALUES ($1, $2, $3)
        RETURNING id, joined_at
    `
	return r.db.QueryRow(ctx, query, p.GroupID, p.UserID, p.DisplayName).
		Scan(&p.ID, &p.JoinedAt)
}

// FindParticipant returns the membership row for a user in a group.
func (r *PlanningRepository) FindParticipant(ctx context.Context, groupID, userID int) (*model.PlanningParticipant, error) {
	query := `
        SELECT id, group_id, user_id, display_name, joined_at
        FROM planning_participants
        WHERE group_id = $1 AND user_id = $2
    `
	var p model.PlanningParticipant
	err := r.db.QueryRow(ctx, query, groupID, userID).Scan(
		&p.ID, &p.GroupID, &p.UserID, &p.DisplayName, &p.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanningRepository) InsertIdea(ctx context.Context, idea *model.PlanningIdea) error {
	query := `
        INSERT INTO planning_ideas (group_id, participant_id, title, description)
        VALUES ($1, $2, $3, $4)
        RETURNING id, status, created_at
    `
	err := r.db.QueryRow(ctx, query,
		idea.GroupID,
		idea.ParticipantID,
		idea.Title,
		idea.Description,
	).Scan(&idea.ID, &idea.Status, &idea.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert idea",
			zap.Error(err),
			zap.Int("group_id", idea.GroupID),
		)
		return err
	}
	return nil
}

func (r *PlanningRepository) FindIdeaByID(ctx context.Context, ideaID int) (*model.PlanningIdea, error) {
	query := `
        SELECT id, group_id, participant_id, title, description, status, created_at
        FROM planning_ideas
        WHERE id = $1
    `
	var idea model.PlanningIdea
	err := r.db.QueryRow(ctx, query, ideaID).Scan(
		&idea.ID,
		&idea.GroupID,
		&idea.ParticipantID,
		&idea.Title,
		&idea.Description,
		&idea.Status,
		&idea.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &idea, nil
}

// ListIdeasWithVotes returns the group's ideas with vote counts and whether
// the given participant has voted for each.
func (r *PlanningRepository) ListIdeasWithVotes(ctx context.Context, groupID, participantID int) ([]model.PlanningIdea, error) {
	query := `
        SELECT i.id, i.group_id, i.participant_id, i.title, i.description,
               i.status, i.created_at,
               COUNT(v.id) AS vote_count,
               BOOL_OR(v.participant_id = $2) AS my_vote
        FROM planning_ideas i
        LEFT JOIN planning_votes v ON v.idea_id = i.id
        WHERE i.group_id = $1
        GROUP BY i.id
        ORDER BY vote_count DESC, i.created_at ASC
    `
	rows, err := r.db.Query(ctx, query, groupID, participantID)
	if err != nil {
		r.logger.Error("Failed to query ideas",
			zap.Error(err),
			zap.Int("group_id", groupID),
		)
		return nil, err
	}
	defer rows.Close()

	ideas := []model.PlanningIdea{}
	for rows.Next() {
		var idea model.PlanningIdea
		var myVote *bool
		if err := rows.Scan(
			&idea.ID,
			&idea.GroupID,
			&idea.ParticipantID,
			&idea.Title,
			&idea.Description,
			&idea.Status,
			&idea.CreatedAt,
			&idea.VoteCount,
			&myVote,
		); err != nil {
			return nil, err
		}
		// BOOL_OR over zero votes is NULL
		idea.MyVote = myVote != nil && *myVote
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// InsertVote relies on the (idea_id, participant_id) unique constraint to
// reject double votes.
func (r *PlanningRepository) InsertVote(ctx context.Context, ideaID, participantID int) error {
	query := `
        INSERT INTO planning_votes (idea_id, participant_id)
        VALUES ($1, $2)
    `
	_, err := r.db.Exec(ctx, query, ideaID, participantID)
	return err
}

func (r *PlanningRepository) DeleteVote(ctx context.Context, ideaID, participantID int) (int64, error) {
	query := `
        DELETE FROM planning_votes
        WHERE idea_id = $1 AND participant_id = $2
    `
	result, err := r.db.Exec(ctx, query, ideaID, participantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// PromoteIdeaTx flips the idea to promoted and records the event, inside the
// caller's transaction.
func (r *PlanningRepository) PromoteIdeaTx(ctx context.Context, tx pgx.Tx, ev *model.PlanningEvent) error {
	updateQuery := `
        UPDATE planning_ideas
        SET status = 'promoted'
        WHERE id = $1 AND status = 'open'
    `
	result, err := tx.Exec(ctx, updateQuery, ev.IdeaID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	insertQuery := `
        INSERT INTO planning_events (group_id, idea_id, title, scheduled_month)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	return tx.QueryRow(ctx, insertQuery,
		ev.GroupID,
		ev.IdeaID,
		ev.Title,
		ev.ScheduledMonth,
	).Scan(&ev.ID, &ev.CreatedAt)
}

func (r *PlanningRepository) ListEvents(ctx context.Context, groupID int) ([]model.PlanningEvent, error) {
	query := `
        SELECT id, group_id, idea_id, title, scheduled_month, created_at
        FROM planning_events
        WHERE group_id = $1
        ORDER BY scheduled_month ASC, created_at ASC
    `
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.PlanningEvent{}
	for rows.Next() {
		var ev model.PlanningEvent
		if err := rows.Scan(&ev.ID, &ev.GroupID, &ev.IdeaID, &ev.Title, &ev.ScheduledMonth, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
