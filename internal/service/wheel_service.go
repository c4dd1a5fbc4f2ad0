package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
)

var ErrInvalidWheelScores = errors.New("invalid wheel scores")

type WheelService struct {
	wheelRepo  *repository.WheelRepository
	clientRepo *repository.ClientRepository
}

func NewWheelService(wheelRepo *repository.WheelRepository, clientRepo *repository.ClientRepository) *WheelService {
	return &WheelService{wheelRepo: wheelRepo, clientRepo: clientRepo}
}

// RecordAssessment validates and stores a full wheel assessment for a client.
// Every area must be one of the known wheel areas with a score in [0, 10].
func (s *WheelService) RecordAssessment(ctx context.Context, coachID, clientID int, scores map[string]int) error {
	if _, err := s.clientRepo.FindByID(ctx, coachID, clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrClientNotFound
		}
		return err
	}

	if len(scores) == 0 {
		return fmt.Errorf("%w: no scores given", ErrInvalidWheelScores)
	}
	for area, score := range scores {
		if !isWheelArea(area) {
			return fmt.Errorf("%w: unknown area %q", ErrInvalidWheelScores, area)
		}
		if score < 0 || score > 10 {
			return fmt.Errorf("%w: score %d for %q out of range", ErrInvalidWheelScores, score, area)
		}
	}

	return s.wheelRepo.InsertScores(ctx, clientID, scores)
}

func (s *WheelService) LatestScores(ctx context.Context, coachID, clientID int) ([]model.WheelScore, error) {
	if _, err := s.clientRepo.FindByID(ctx, coachID, clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return s.wheelRepo.LatestScores(ctx, clientID)
}

func isWheelArea(area string) bool {
	for _, a := range model.WheelAreas {
		if a == area {
			return true
		}
	}
	return false
}
