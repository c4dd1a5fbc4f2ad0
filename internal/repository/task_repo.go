package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	query := `
        INSERT INTO tasks (coach_id, title, description)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, t.CoachID, t.Title, t.Description).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int("coach_id", t.CoachID),
		)
		return err
	}
	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("coach_id", t.CoachID),
	)
	return nil
}

func (r *TaskRepository) ListByCoach(ctx context.Context, coachID int) ([]model.Task, error) {
	query := `
        SELECT id, coach_id, title, description, created_at
        FROM tasks
        WHERE coach_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		r.logger.Error("Failed to query tasks",
			zap.Error(err),
			zap.Int("coach_id", coachID),
		)
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.CoachID, &t.Title, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// FindByID returns a task only if it belongs to the given coach.
func (r *TaskRepository) FindByID(ctx context.Context, coachID, taskID int) (*model.Task, error) {
	query := `
        SELECT id, coach_id, title, description, created_at
        FROM tasks
        WHERE id = $1 AND coach_id = $2
    `
	var t model.Task
	err := r.db.QueryRow(ctx, query, taskID, coachID).
		Scan(&t.ID, &t.CoachID, &t.Title, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *model.Task) (int64, error) {
	query := `
        UPDATE tasks
        SET title = $1, description = $2
        WHERE id = $3 AND coach_id = $4
    `
	result, err := r.db.Exec(ctx, query, t.Title, t.Description, t.ID, t.CoachID)
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.Error(err),
			zap.Int("task_id", t.ID),
		)
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *TaskRepository) Delete(ctx context.Context, coachID, taskID int) (int64, error) {
	query := `
        DELETE FROM tasks
        WHERE id = $1 AND coach_id = $2
    `
	result, err := r.db.Exec(ctx, query, taskID, coachID)
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.Error(err),
			zap.Int("task_id", taskID),
		)
		return 0, err
	}
	return result.RowsAffected(), nil
}

// AssignTx links a task to a client inside the caller's transaction so the
// outbox event commits with it. The (task_id, client_id) unique constraint
// rejects duplicate assignments.
func (r *TaskRepository) AssignTx(ctx context.Context, tx pgx.Tx, ct *model.ClientTask) error {
	query := `
        INSERT INTO client_tasks (task_id, client_id, status, due_date)
        VALUES ($1, $2, 'pending', $3)
        RETURNING id, assigned_at
    `
	err := tx.QueryRow(ctx, query, ct.TaskID, ct.ClientID, ct.DueDate).
		Scan(&ct.ID, &ct.AssignedAt)
	if err != nil {
		return err
	}
	ct.Status = model.AssignmentPending
	return nil
}

// MarkAssignmentDone completes an assignment. Ownership is checked through
// the client's coach.
func (r *TaskRepository) MarkAssignmentDone(ctx context.Context, coachID, assignmentID int) (int64, error) {
	query := `
        UPDATE client_tasks ct
        SET status = 'done', completed_at = NOW()
        FROM clients c
        WHERE ct.id = $1
          AND ct.client_id = c.id
          AND c.coach_id = $2
          AND ct.status = 'pending'
    `
	result, err := r.db.Exec(ctx, query, assignmentID, coachID)
	if err != nil {
		r.logger.Error("Failed to complete assignment",
			zap.Error(err),
			zap.Int("assignment_id", assignmentID),
		)
		return 0, err
	}
	rowsAffected := result.RowsAffected()
	r.logger.Info("Assignment marked done",
		zap.Int("assignment_id", assignmentID),
		zap.Int64("rows_affected", rowsAffected),
	)
	return rowsAffected, nil
}

// ListAssignmentsByClient returns assignments with the task title joined in.
func (r *TaskRepository) ListAssignmentsByClient(ctx context.Context, coachID, clientID int) ([]model.ClientTask, error) {
	query := `
        SELECT ct.id, ct.task_id, ct.client_id, ct.status, ct.due_date,
               ct.assigned_at, ct.completed_at, t.title
        FROM client_tasks ct
        JOIN tasks t ON t.id = ct.task_id
        JOIN clients c ON c.id = ct.client_id
        WHERE ct.client_id = $1 AND c.coach_id = $2
        ORDER BY ct.assigned_at DESC
    `
	rows, err := r.db.Query(ctx, query, clientID, coachID)
	if err != nil {
		r.logger.Error("Failed to query assignments",
			zap.Error(err),
			zap.Int("client_id", clientID),
		)
		return nil, err
	}
	defer rows.Close()

	assignments := []model.ClientTask{}
	for rows.Next() {
		var ct model.ClientTask
		var dueDate, completedAt *time.Time
		if err := rows.Scan(
			&ct.ID,
			&ct.TaskID,
			&ct.ClientID,
			&ct.Status,
			&dueDate,
			&ct.AssignedAt,
			&completedAt,
			&ct.TaskTitle,
		); err != nil {
			return nil, err
		}
		ct.DueDate = dueDate
		ct.CompletedAt = completedAt
		assignments = append(assignments, ct)
	}
	return assignments, rows.Err()
}
