package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

type WheelRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewWheelRepository(db *pgxpool.Pool, logger *zap.Logger) *WheelRepository {
	return &WheelRepository{db: db, logger: logger}
}

// InsertScores appends a new assessment row per area. History is kept so the
// wheel can show deltas between assessments.
func (r *WheelRepository) InsertScores(ctx context.Context, clientID int, scores map[string]int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO wheel_assessments (client_id, area, score)
        VALUES ($1, $2, $3)
    `
	for area, score := range scores {
		if _, err := tx.Exec(ctx, query, clientID, area, score); err != nil {
			r.logger.Error("Failed to insert wheel score",
				zap.Error(err),
				zap.Int("client_id", clientID),
				zap.String("area", area),
			)
			return err
		}
	}

	return tx.Commit(ctx)
}

// LatestScores returns the newest score per area with the previous one for
// delta display.
func (r *WheelRepository) LatestScores(ctx context.Context, clientID int) ([]model.WheelScore, error) {
	query := `
        SELECT area, score, prev_score, assessed_at
        FROM (
            SELECT area, score, assessed_at,
                   LEAD(score) OVER (PARTITION BY area ORDER BY assessed_at DESC) AS prev_score,
                   ROW_NUMBER() OVER (PARTITION BY area ORDER BY assessed_at DESC) AS rn
            FROM wheel_assessments
            WHERE client_id = $1
        ) ranked
        WHERE rn = 1
        ORDER BY area
    `
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		r.logger.Error("Failed to query wheel scores",
			zap.Error(err),
			zap.Int("client_id", clientID),
		)
		return nil, err
	}
	defer rows.Close()

	scores := []model.WheelScore{}
	for rows.Next() {
		var s model.WheelScore
		if err := rows.Scan(&s.Area, &s.Score, &s.Previous, &s.AssessedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
