package service

import (
	"context"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
)

type CategoryService interface {
	List(ctx context.Context, search string, p dto.PageParams) ([]dto.CategoryResponse, int64, error)
	Create(ctx context.Context, req dto.SlugEntityRequest) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, slug string) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(r repository.CategoryRepository) CategoryService {
	return &categoryService{repo: r}
}

func (s *categoryService) List(ctx context.Context, search string, p dto.PageParams) ([]dto.CategoryResponse, int64, error) {
	list, total, err := s.repo.List(ctx, search, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.CategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, dto.CategoryFromModel(c))
	}
	return out, total, nil
}

func (s *categoryService) Create(ctx context.Context, req dto.SlugEntityRequest) (*dto.CategoryResponse, error) {
	name, slug, err := validateSlugEntity(ctx, req, s.repo.SlugTaken)
	if err != nil {
		return nil, err
	}
	c := &models.Category{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	resp := dto.CategoryFromModel(*c)
	return &resp, nil
}

// Delete leaves the category's titles in place without a category.
func (s *categoryService) Delete(ctx context.Context, slug string) error {
	return notFound(s.repo.DeleteBySlug(ctx, slug), "Category")
}
