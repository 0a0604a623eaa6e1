package service

import (
	"context"
	"errors"
	"strings"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/permission"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
)

const (
	minScore = 1
	maxScore = 10
)

type ReviewService interface {
	List(ctx context.Context, titleID int64, p dto.PageParams) ([]dto.ReviewResponse, int64, error)
	Get(ctx context.Context, titleID, reviewID int64) (*dto.ReviewResponse, error)
	Create(ctx context.Context, caller *permission.Caller, titleID int64, req dto.ReviewRequest) (*dto.ReviewResponse, error)
	Update(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, req dto.ReviewRequest) (*dto.ReviewResponse, error)
	Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID int64) error
}

type reviewService struct {
	reviews repository.ReviewRepository
	titles  repository.TitleRepository
}

func NewReviewService(reviews repository.ReviewRepository, titles repository.TitleRepository) ReviewService {
	return &reviewService{reviews: reviews, titles: titles}
}

func (s *reviewService) List(ctx context.Context, titleID int64, p dto.PageParams) ([]dto.ReviewResponse, int64, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}
	list, total, err := s.reviews.ListByTitle(ctx, titleID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.ReviewResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.FromModelToReviewResponse(&list[i]))
	}
	return out, total, nil
}

func (s *reviewService) Get(ctx context.Context, titleID, reviewID int64) (*dto.ReviewResponse, error) {
	review, err := s.reviews.GetByID(ctx, titleID, reviewID)
	if err != nil {
		return nil, notFound(err, "Review")
	}
	resp := dto.FromModelToReviewResponse(review)
	return &resp, nil
}

// Create adds the caller's review. A second review of the same title by the same
// author is a conflict on "author".
func (s *reviewService) Create(ctx context.Context, caller *permission.Caller, titleID int64, req dto.ReviewRequest) (*dto.ReviewResponse, error) {
	if !permission.CanCreateContent(permission.Write, caller) {
		return nil, apperr.Unauthorized(msgNoAuth)
	}

	errs := apperr.FieldErrors{}
	if req.Text == nil {
		errs.Add("text", msgRequired)
	}
	if req.Score == nil {
		errs.Add("score", msgRequired)
	}
	review := &models.Review{TitleID: titleID, AuthorID: caller.UserID}
	applyReview(errs, review, req)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	if err := s.reviews.CreateUnique(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperr.Conflict("author", "You have already reviewed this title.")
		}
		return nil, err
	}
	return s.Get(ctx, titleID, review.ID)
}

func (s *reviewService) Update(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, req dto.ReviewRequest) (*dto.ReviewResponse, error) {
	review, err := s.authorize(ctx, caller, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	errs := apperr.FieldErrors{}
	applyReview(errs, review, req)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	resp := dto.FromModelToReviewResponse(review)
	return &resp, nil
}

// Delete removes the review together with its comments.
func (s *reviewService) Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID int64) error {
	review, err := s.authorize(ctx, caller, titleID, reviewID)
	if err != nil {
		return err
	}
	return s.reviews.Delete(ctx, review.ID)
}

// authorize loads the review and checks the caller may modify it.
func (s *reviewService) authorize(ctx context.Context, caller *permission.Caller, titleID, reviewID int64) (*models.Review, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized(msgNoAuth)
	}
	review, err := s.reviews.GetByID(ctx, titleID, reviewID)
	if err != nil {
		return nil, notFound(err, "Review")
	}
	if !permission.CanModifyContent(permission.Write, caller, review.AuthorID) {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return review, nil
}

func (s *reviewService) requireTitle(ctx context.Context, titleID int64) error {
	ok, err := s.titles.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Title")
	}
	return nil
}

func applyReview(errs apperr.FieldErrors, review *models.Review, req dto.ReviewRequest) {
	if req.Text != nil {
		if strings.TrimSpace(*req.Text) == "" {
			errs.Add("text", "This field may not be blank.")
		}
		review.Text = *req.Text
	}
	if req.Score != nil {
		if *req.Score < minScore || *req.Score > maxScore {
			errs.Add("score", "Score must be between 1 and 10.")
		}
		review.Score = *req.Score
	}
}
