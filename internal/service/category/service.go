package category

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository/category"
)

type Service struct {
	repo category.Repository
	// onChange runs after every successful write, used to drop cached listings.
	onChange func(ctx context.Context)
}

func New(repo category.Repository) *Service {
	return &Service{repo: repo}
}

// OnChange registers fn to be called after categories change.
func (s *Service) OnChange(fn func(ctx context.Context)) {
	s.onChange = fn
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("please provide category name")
	}
	c, err := s.repo.Create(ctx, name)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.Invalid("category already exists")
	}
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return c, nil
}

func (s *Service) Rename(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("please provide category name")
	}
	c, err := s.repo.Rename(ctx, id, name)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return nil, domain.Invalid("category already exists")
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.NotFound("category not found")
	case err != nil:
		return nil, err
	}
	s.changed(ctx)
	return c, nil
}

// Delete removes the category; its products keep existing without one.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("category not found")
	}
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *Service) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}
