package coa

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, businessID uuid.UUID) ([]Account, error) {
	return s.repo.ListByBusiness(ctx, businessID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, acc Account) (Account, error) {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	acc.IsActive = true
	return s.repo.Create(ctx, acc)
}

// ChangeType updates an account's type. Refused once postings exist: the
// historical balance sign convention would silently flip.
func (s *Service) ChangeType(ctx context.Context, id uuid.UUID, newType AccountType) error {
	has, err := s.repo.HasPostings(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrTypeImmutable
	}
	return s.repo.UpdateType(ctx, id, newType)
}

// Deactivate soft-deletes an account. The row stays for historical queries.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, false)
}

// RolesFor loads the business's chart and binds the well-known roles once,
// before an import starts.
func (s *Service) RolesFor(ctx context.Context, businessID uuid.UUID) (Roles, []Account, error) {
	accounts, err := s.repo.ListByBusiness(ctx, businessID)
	if err != nil {
		return Roles{}, nil, err
	}
	return BuildRoles(accounts), accounts, nil
}
