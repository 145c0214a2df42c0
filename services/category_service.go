package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/gosimple/slug"
)

type CategoryService interface {
	Create(ctx context.Context, actor models.Actor, name string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

type categoryService struct {
	categories repositories.CategoryRepository
}

func NewCategoryService(categories repositories.CategoryRepository) CategoryService {
	return &categoryService{categories: categories}
}

func (s *categoryService) Create(ctx context.Context, actor models.Actor, name string) (*models.Category, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	clean, err := requireText("name", name, 2, 64)
	if err != nil {
		return nil, err
	}
	id := slug.Make(clean)
	if id == "" {
		return nil, validationError("name must contain letters or digits")
	}

	category := &models.Category{ID: id, Name: clean}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repositories.ErrCategoryConflict) {
			return nil, ErrCategoryConflict
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *categoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}
