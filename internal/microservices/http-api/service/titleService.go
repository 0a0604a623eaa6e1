package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
)

type TitleService interface {
	List(ctx context.Context, f dto.TitleFilter, p dto.PageParams) ([]dto.TitleResponse, int64, error)
	Get(ctx context.Context, id int64) (*dto.TitleResponse, error)
	Create(ctx context.Context, req dto.TitleRequest) (*dto.TitleResponse, error)
	// Update applies req to the title. partial=false is a full replacement (PUT).
	Update(ctx context.Context, id int64, req dto.TitleRequest, partial bool) (*dto.TitleResponse, error)
	Delete(ctx context.Context, id int64) error
}

type titleService struct {
	titles     repository.TitleRepository
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	reviews    repository.ReviewRepository
	now        func() time.Time
}

func NewTitleService(
	titles repository.TitleRepository,
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
	reviews repository.ReviewRepository,
) TitleService {
	return &titleService{
		titles:     titles,
		categories: categories,
		genres:     genres,
		reviews:    reviews,
		now:        time.Now,
	}
}

func (s *titleService) List(ctx context.Context, f dto.TitleFilter, p dto.PageParams) ([]dto.TitleResponse, int64, error) {
	list, total, err := s.titles.List(ctx, f, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	ratings, err := s.reviews.AverageScores(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]dto.TitleResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.FromModelToTitleResponse(t, ratingOf(ratings, t.ID)))
	}
	return out, total, nil
}

func (s *titleService) Get(ctx context.Context, id int64) (*dto.TitleResponse, error) {
	t, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Title")
	}
	ratings, err := s.reviews.AverageScores(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	resp := dto.FromModelToTitleResponse(*t, ratingOf(ratings, id))
	return &resp, nil
}

func (s *titleService) Create(ctx context.Context, req dto.TitleRequest) (*dto.TitleResponse, error) {
	t := &models.Title{}
	errs := apperr.FieldErrors{}
	s.applyScalars(errs, t, req, false)
	if req.Genre == nil {
		errs.Add("genre", msgRequired)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.resolveCategory(ctx, t, req.Category); err != nil {
		return nil, err
	}
	genreIDs, err := s.resolveGenres(ctx, *req.Genre)
	if err != nil {
		return nil, err
	}

	if err := s.titles.Create(ctx, t, genreIDs); err != nil {
		return nil, err
	}
	return s.Get(ctx, t.ID)
}

func (s *titleService) Update(ctx context.Context, id int64, req dto.TitleRequest, partial bool) (*dto.TitleResponse, error) {
	t, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Title")
	}

	errs := apperr.FieldErrors{}
	s.applyScalars(errs, t, req, partial)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if req.Category != nil || !partial {
		if err := s.resolveCategory(ctx, t, req.Category); err != nil {
			return nil, err
		}
	}

	// absent genre keeps the links on PATCH and clears them on PUT
	replaceGenres := req.Genre != nil || !partial
	var genreIDs []int64
	if req.Genre != nil && len(*req.Genre) > 0 {
		if genreIDs, err = s.resolveGenres(ctx, *req.Genre); err != nil {
			return nil, err
		}
	}

	t.Category = nil
	t.Genres = nil
	if err := s.titles.Update(ctx, t, genreIDs, replaceGenres); err != nil {
		return nil, err
	}
	return s.Get(ctx, t.ID)
}

func (s *titleService) Delete(ctx context.Context, id int64) error {
	return notFound(s.titles.Delete(ctx, id), "Title")
}

// applyScalars validates and copies name, year and description. With partial
// set, absent fields are left as they are; otherwise name and year are required.
func (s *titleService) applyScalars(errs apperr.FieldErrors, t *models.Title, req dto.TitleRequest, partial bool) {
	if req.Name != nil {
		checkName(errs, *req.Name)
		t.Name = strings.TrimSpace(*req.Name)
	} else if !partial {
		errs.Add("name", msgRequired)
	}

	if req.Year != nil {
		if current := s.now().Year(); *req.Year > current {
			errs.Add("year", "Year cannot be later than "+strconv.Itoa(current)+".")
		}
		t.Year = *req.Year
	} else if !partial {
		errs.Add("year", msgRequired)
	}

	if req.Description != nil {
		t.Description = *req.Description
	} else if !partial {
		t.Description = ""
	}
}

// resolveCategory points t at the category with the given slug. nil or blank clears it.
func (s *titleService) resolveCategory(ctx context.Context, t *models.Title, slug *string) error {
	if slug == nil || strings.TrimSpace(*slug) == "" {
		t.CategoryID = nil
		return nil
	}
	c, err := s.categories.FindBySlug(ctx, strings.TrimSpace(*slug))
	if err != nil {
		return notFound(err, "Category")
	}
	t.CategoryID = &c.ID
	return nil
}

// resolveGenres maps slugs to genre ids. Unknown slugs are skipped, but at least one must resolve.
func (s *titleService) resolveGenres(ctx context.Context, slugs []string) ([]int64, error) {
	genres, err := s.genres.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		return nil, apperr.Invalid("genre", "None of the given genres exist.")
	}
	ids := make([]int64, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

func ratingOf(ratings map[int64]float64, id int64) *float64 {
	if avg, ok := ratings[id]; ok {
		return &avg
	}
	return nil
}
