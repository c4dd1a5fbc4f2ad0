package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/outbox"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

type TaskService struct {
	db         *pgxpool.Pool
	taskRepo   *repository.TaskRepository
	clientRepo *repository.ClientRepository
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewTaskService(
	db *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	clientRepo *repository.ClientRepository,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		db:         db,
		taskRepo:   taskRepo,
		clientRepo: clientRepo,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

func (s *TaskService) Create(ctx context.Context, coachID int, title, description string) (*model.Task, error) {
	t := &model.Task{
		CoachID:     coachID,
		Title:       title,
		Description: description,
	}
	if err := s.taskRepo.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) List(ctx context.Context, coachID int) ([]model.Task, error) {
	return s.taskRepo.ListByCoach(ctx, coachID)
}

func (s *TaskService) Update(ctx context.Context, t *model.Task) error {
	rows, err := s.taskRepo.Update(ctx, t)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *TaskService) Delete(ctx context.Context, coachID, taskID int) error {
	rows, err := s.taskRepo.Delete(ctx, coachID, taskID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Assign links a task to a client. The assignment row and its task.assigned
// outbox event commit atomically. Both the task and the client must belong to
// the calling coach.
func (s *TaskService) Assign(ctx context.Context, coachID, taskID, clientID int, dueDate *time.Time) (*model.ClientTask, error) {
	task, err := s.taskRepo.FindByID(ctx, coachID, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	client, err := s.clientRepo.FindByID(ctx, coachID, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ct := &model.ClientTask{
		TaskID:   taskID,
		ClientID: clientID,
		DueDate:  dueDate,
	}
	if err := s.taskRepo.AssignTx(ctx, tx, ct); err != nil {
		if util.IsUniqueViolation(err) {
			return nil, ErrAlreadyAssigned
		}
		return nil, err
	}
	ct.TaskTitle = task.Title

	payload := mqcontracts.TaskAssignedPayload{
		AssignmentID: ct.ID,
		TaskID:       taskID,
		ClientID:     clientID,
		CoachID:      coachID,
		ClientUserID: client.UserID,
		Title:        task.Title,
		DueDate:      dueDate,
	}
	ctID64 := int64(ct.ID)
	if err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "client_task", &ctID64,
		mqcontracts.RoutingKeyTaskAssigned, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Task assigned",
		zap.Int("assignment_id", ct.ID),
		zap.Int("task_id", taskID),
		zap.Int("client_id", clientID),
		zap.Int("coach_id", coachID),
	)
	return ct, nil
}

func (s *TaskService) MarkDone(ctx context.Context, coachID, assignmentID int) error {
	rows, err := s.taskRepo.MarkAssignmentDone(ctx, coachID, assignmentID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (s *TaskService) ListAssignments(ctx context.Context, coachID, clientID int) ([]model.ClientTask, error) {
	if _, err := s.clientRepo.FindByID(ctx, coachID, clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return s.taskRepo.ListAssignmentsByClient(ctx, coachID, clientID)
}
