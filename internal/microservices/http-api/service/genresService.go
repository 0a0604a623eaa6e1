package service

import (
	"context"
	"strings"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
)

type GenreService interface {
	List(ctx context.Context, search string, p dto.PageParams) ([]dto.GenreResponse, int64, error)
	Create(ctx context.Context, req dto.SlugEntityRequest) (*dto.GenreResponse, error)
	Delete(ctx context.Context, slug string) error
}

type genreService struct {
	repo repository.GenreRepository
}

func NewGenreService(r repository.GenreRepository) GenreService {
	return &genreService{repo: r}
}

func (s *genreService) List(ctx context.Context, search string, p dto.PageParams) ([]dto.GenreResponse, int64, error) {
	list, total, err := s.repo.List(ctx, search, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.GenreResponse, 0, len(list))
	for _, g := range list {
		out = append(out, dto.GenreFromModel(g))
	}
	return out, total, nil
}

func (s *genreService) Create(ctx context.Context, req dto.SlugEntityRequest) (*dto.GenreResponse, error) {
	name, slug, err := validateSlugEntity(ctx, req, s.repo.SlugTaken)
	if err != nil {
		return nil, err
	}
	g := &models.Genre{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	resp := dto.GenreFromModel(*g)
	return &resp, nil
}

func (s *genreService) Delete(ctx context.Context, slug string) error {
	return notFound(s.repo.DeleteBySlug(ctx, slug), "Genre")
}

// validateSlugEntity checks a {name, slug} payload shared by genres and categories.
// A blank slug is derived from the name.
func validateSlugEntity(ctx context.Context, req dto.SlugEntityRequest, taken func(context.Context, string) (bool, error)) (string, string, error) {
	name := strings.TrimSpace(req.Name)
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = slugify(name)
	}

	errs := apperr.FieldErrors{}
	checkName(errs, name)
	checkSlug(errs, slug)
	if !errs.Has("slug") {
		exists, err := taken(ctx, slug)
		if err != nil {
			return "", "", err
		}
		if exists {
			errs.Add("slug", "An entry with this slug already exists.")
		}
	}
	return name, slug, errs.Err()
}
