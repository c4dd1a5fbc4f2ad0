package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/outbox"
)

const previewLen = 80

type MessageService struct {
	db         *pgxpool.Pool
	msgRepo    *repository.MessageRepository
	userRepo   *repository.UserRepository
	outboxRepo *outbox.Repository
	rdb        *goredis.Client
	logger     *zap.Logger
}

func NewMessageService(
	db *pgxpool.Pool,
	msgRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	rdb *goredis.Client,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		db:         db,
		msgRepo:    msgRepo,
		userRepo:   userRepo,
		outboxRepo: outbox.NewRepository(db),
		rdb:        rdb,
		logger:     logger,
	}
}

// UnreadKey Redis 未读计数器的 key，worker 负责递增，已读时删除
func UnreadKey(userID, peerID int) string {
	return fmt.Sprintf("unread:%d:%d", userID, peerID)
}

// messagePreview truncates the body on a rune boundary so multibyte text
// stays valid UTF-8 in the event payload.
func messagePreview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLen {
		return body
	}
	return string(runes[:previewLen])
}

// Send stores the message and its message.created outbox event in one
// transaction. Delivery to the recipient happens through the worker.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID int, body string) (*model.Message, error) {
	if _, err := s.userRepo.FindByID(ctx, recipientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	m := &model.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
	}
	if err := s.msgRepo.InsertTx(ctx, tx, m); err != nil {
		metrics.IncrementMessageSent("failed")
		return nil, err
	}

	payload := mqcontracts.MessageCreatedPayload{
		MessageID:   m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Preview:     messagePreview(m.Body),
		CreatedAt:   m.CreatedAt,
	}
	msgID64 := int64(m.ID)
	if err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "message", &msgID64,
		mqcontracts.RoutingKeyMessageCreated, payload); err != nil {
		metrics.IncrementMessageSent("failed")
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.IncrementMessageSent("failed")
		return nil, err
	}

	metrics.IncrementMessageSent("success")
	s.logger.Info("Message sent",
		zap.Int("message_id", m.ID),
		zap.Int("sender_id", senderID),
		zap.Int("recipient_id", recipientID),
	)
	return m, nil
}

// Conversation returns the thread with a peer and marks the fetched incoming
// messages read, mirroring a chat window being opened.
func (s *MessageService) Conversation(ctx context.Context, userID, peerID, limit, offset int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	messages, err := s.msgRepo.ListConversation(ctx, userID, peerID, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.MarkRead(ctx, userID, peerID); err != nil {
		// 标记已读失败不影响读取
		s.logger.Warn("Failed to mark conversation read",
			zap.Int("user_id", userID),
			zap.Int("peer_id", peerID),
			zap.Error(err),
		)
	}

	return messages, nil
}

// MarkRead marks everything the peer sent as read and resets the Redis
// unread counter.
func (s *MessageService) MarkRead(ctx context.Context, userID, peerID int) error {
	if _, err := s.msgRepo.MarkConversationRead(ctx, userID, peerID); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, UnreadKey(userID, peerID)).Err(); err != nil {
		s.logger.Warn("Failed to reset unread counter",
			zap.Int("user_id", userID),
			zap.Int("peer_id", peerID),
			zap.Error(err),
		)
	}
	return nil
}

// UnreadCounts reads the Redis counters maintained by the worker and falls
// back to the database when Redis is empty or unavailable.
func (s *MessageService) UnreadCounts(ctx context.Context, userID int) ([]model.UnreadCount, error) {
	counts, err := s.unreadFromRedis(ctx, userID)
	if err == nil && len(counts) > 0 {
		return counts, nil
	}
	if err != nil {
		s.logger.Warn("Unread counters unavailable in Redis, falling back to DB",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
	return s.msgRepo.UnreadCounts(ctx, userID)
}

func (s *MessageService) unreadFromRedis(ctx context.Context, userID int) ([]model.UnreadCount, error) {
	pattern := fmt.Sprintf("unread:%d:*", userID)
	prefix := fmt.Sprintf("unread:%d:", userID)

	counts := []model.UnreadCount{}
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		peerID, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		count, err := s.rdb.Get(ctx, key).Int64()
		if err != nil {
			continue
		}
		if count > 0 {
			counts = append(counts, model.UnreadCount{PeerID: peerID, Count: count})
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
