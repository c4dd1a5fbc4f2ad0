package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

var ErrIdentifierTaken = errors.New("client identifier already in use")

type ClientService struct {
	clientRepo *repository.ClientRepository
}

func NewClientService(clientRepo *repository.ClientRepository) *ClientService {
	return &ClientService{clientRepo: clientRepo}
}

// Create adds a client to the coach's roster. The identifier must be unique
// within that coach.
func (s *ClientService) Create(ctx context.Context, c *model.Client) error {
	if err := s.clientRepo.Insert(ctx, c); err != nil {
		if util.IsUniqueViolation(err) {
			return ErrIdentifierTaken
		}
		return err
	}
	return nil
}

func (s *ClientService) List(ctx context.Context, coachID int) ([]model.Client, error) {
	return s.clientRepo.ListByCoach(ctx, coachID)
}

func (s *ClientService) Get(ctx context.Context, coachID, clientID int) (*model.Client, error) {
	c, err := s.clientRepo.FindByID(ctx, coachID, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, c *model.Client) error {
	rows, err := s.clientRepo.Update(ctx, c)
	if err != nil {
		if util.IsUniqueViolation(err) {
			return ErrIdentifierTaken
		}
		return err
	}
	if rows == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (s *ClientService) Delete(ctx context.Context, coachID, clientID int) error {
	rows, err := s.clientRepo.Delete(ctx, coachID, clientID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrClientNotFound
	}
	return nil
}
