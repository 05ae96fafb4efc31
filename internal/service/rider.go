package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RiderService handles rider registration and lookup.
type RiderService struct {
	riderRepo repository.RiderRepository
}

// NewRiderService creates a new RiderService.
func NewRiderService(riderRepo repository.RiderRepository) *RiderService {
	return &RiderService{riderRepo: riderRepo}
}

// RegisterRiderRequest contains the parameters for registering a rider.
type RegisterRiderRequest struct {
	Name  string
	Email string
	Phone string
}

// RegisterRider creates a new rider.
func (s *RiderService) RegisterRider(ctx context.Context, req RegisterRiderRequest) (*domain.Rider, error) {
	if req.Name == "" {
		return nil, ErrInvalidName
	}
	if req.Email == "" {
		return nil, ErrInvalidEmail
	}

	existing, err := s.riderRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	rider := &domain.Rider{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: time.Now(),
	}
	if err := s.riderRepo.Create(ctx, rider); err != nil {
		return nil, err
	}
	return rider, nil
}

// GetRider retrieves a rider by ID.
func (s *RiderService) GetRider(ctx context.Context, riderID string) (*domain.Rider, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.riderRepo.GetByID(ctx, riderID)
}

// ListRiders returns all registered riders.
func (s *RiderService) ListRiders(ctx context.Context) ([]*domain.Rider, error) {
	return s.riderRepo.GetAll(ctx)
}
