package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

type MessageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMessageRepository(db *pgxpool.Pool, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{db: db, logger: logger}
}

// InsertTx inserts a message inside an existing transaction so the caller can
// write the outbox event atomically with it.
func (r *MessageRepository) InsertTx(ctx context.Context, tx pgx.Tx, m *model.Message) error {
	query := `
        INSERT INTO messages (sender_id, recipient_id, body)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	return tx.QueryRow(ctx, query, m.SenderID, m.RecipientID, m.Body).
		Scan(&m.ID, &m.CreatedAt)
}

// ListConversation returns the two-way conversation, oldest first.
func (r *MessageRepository) ListConversation(ctx context.Context, userID, peerID, limit, offset int) ([]model.Message, error) {
	query := `
        SELECT id, sender_id, recipient_id, body, is_read, created_at
        FROM messages
        WHERE (sender_id = $1 AND recipient_id = $2)
           OR (sender_id = $2 AND recipient_id = $1)
        ORDER BY created_at ASC
        LIMIT $3 OFFSET $4
    `
	rows, err := r.db.Query(ctx, query, userID, peerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to query conversation",
			zap.Error(err),
			zap.Int("user_id", userID),
			zap.Int("peer_id", peerID),
		)
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.RecipientID,
			&m.Body,
			&m.IsRead,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkConversationRead marks everything the peer sent to this user as read.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, userID, peerID int) (int64, error) {
	query := `
        UPDATE messages
        SET is_read = TRUE
        WHERE recipient_id = $1 AND sender_id = $2 AND is_read = FALSE
    `
	result, err := r.db.Exec(ctx, query, userID, peerID)
	if err != nil {
		r.logger.Error("Failed to mark conversation read",
			zap.Error(err),
			zap.Int("user_id", userID),
			zap.Int("peer_id", peerID),
		)
		return 0, err
	}
	return result.RowsAffected(), nil
}

// UnreadCounts groups unread messages by sender.
func (r *MessageRepository) UnreadCounts(ctx context.Context, userID int) ([]model.UnreadCount, error) {
	query := `
        SELECT sender_id, COUNT(*)
        FROM messages
        WHERE recipient_id = $1 AND is_read = FALSE
        GROUP BY sender_id
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query unread counts",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	counts := []model.UnreadCount{}
	for rows.Next() {
		var c model.UnreadCount
		if err := rows.Scan(&c.PeerID, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
