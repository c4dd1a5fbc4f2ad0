package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

type ClientRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewClientRepository(db *pgxpool.Pool, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{db: db, logger: logger}
}

func (r *ClientRepository) Insert(ctx context.Context, c *model.Client) error {
	r.logger.Debug("Inserting client",
		zap.Int("coach_id", c.CoachID),
		zap.String("identifier", c.Identifier),
	)
	query := `
        INSERT INTO clients (coach_id, identifier, display_name, email, notes, user_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		c.CoachID,
		c.Identifier,
		c.DisplayName,
		c.Email,
		c.Notes,
		c.UserID,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert client",
			zap.Error(err),
			zap.Int("coach_id", c.CoachID),
			zap.String("identifier", c.Identifier),
		)
		return err
	}
	r.logger.Info("Client inserted successfully",
		zap.Int("client_id", c.ID),
		zap.Int("coach_id", c.CoachID),
	)
	return nil
}

func (r *ClientRepository) ListByCoach(ctx context.Context, coachID int) ([]model.Client, error) {
	query := `
        SELECT id, coach_id, identifier, display_name, email, notes, user_id, created_at
        FROM clients
        WHERE coach_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		r.logger.Error("Failed to query clients",
			zap.Error(err),
			zap.Int("coach_id", coachID),
		)
		return nil, err
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(
			&c.ID,
			&c.CoachID,
			&c.Identifier,
			&c.DisplayName,
			&c.Email,
			&c.Notes,
			&c.UserID,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// FindByID returns a client only if it belongs to the given coach.
func (r *ClientRepository) FindByID(ctx context.Context, coachID, clientID int) (*model.Client, error) {
	query := `
        SELECT id, coach_id, identifier, display_name, email, notes, user_id, created_at
        FROM clients
        WHERE id = $1 AND coach_id = $2
    `
	var c model.Client
	err := r.db.QueryRow(ctx, query, clientID, coachID).Scan(
		&c.ID,
		&c.CoachID,
		&c.Identifier,
		&c.DisplayName,
		&c.Email,
		&c.Notes,
		&c.UserID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *model.Client) (int64, error) {
	query := `
        UPDATE clients
        SET identifier = $1, display_name = $2, email = $3, notes = $4
        WHERE id = $5 AND coach_id = $6
    `
	result, err := r.db.Exec(ctx, query,
		c.Identifier,
		c.DisplayName,
		c.Email,
		c.Notes,
		c.ID,
		c.CoachID,
	)
	if err != nil {
		r.logger.Error("Failed to update client",
			zap.Error(err),
			zap.Int("client_id", c.ID),
		)
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Delete removes the client; assignments and wheel scores go with it via FK cascade.
func (r *ClientRepository) Delete(ctx context.Context, coachID, clientID int) (int64, error) {
	query := `
        DELETE FROM clients
        WHERE id = $1 AND coach_id = $2
    `
	result, err := r.db.Exec(ctx, query, clientID, coachID)
	if err != nil {
		r.logger.Error("Failed to delete client",
			zap.Error(err),
			zap.Int("client_id", clientID),
		)
		return 0, err
	}
	r.logger.Info("Client deleted",
		zap.Int("client_id", clientID),
		zap.Int("coach_id", coachID),
		zap.Int64("rows_affected", result.RowsAffected()),
	)
	return result.RowsAffected(), nil
}
