package service

import (
	"context"
	"strings"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/permission"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
)

type CommentService interface {
	List(ctx context.Context, titleID, reviewID int64, p dto.PageParams) ([]dto.CommentResponse, int64, error)
	Get(ctx context.Context, titleID, reviewID, commentID int64) (*dto.CommentResponse, error)
	Create(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, req dto.CommentRequest) (*dto.CommentResponse, error)
	Update(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64, req dto.CommentRequest) (*dto.CommentResponse, error)
	Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64) error
}

type commentService struct {
	comments repository.CommentRepository
	reviews  repository.ReviewRepository
}

func NewCommentService(comments repository.CommentRepository, reviews repository.ReviewRepository) CommentService {
	return &commentService{comments: comments, reviews: reviews}
}

func (s *commentService) List(ctx context.Context, titleID, reviewID int64, p dto.PageParams) ([]dto.CommentResponse, int64, error) {
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	list, total, err := s.comments.ListByReview(ctx, reviewID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.CommentResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.FromModelToCommentResponse(&list[i]))
	}
	return out, total, nil
}

func (s *commentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*dto.CommentResponse, error) {
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, reviewID, commentID)
	if err != nil {
		return nil, notFound(err, "Comment")
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

// Create attaches a comment by the caller to the review.
func (s *commentService) Create(ctx context.Context, caller *permission.Caller, titleID, reviewID int64, req dto.CommentRequest) (*dto.CommentResponse, error) {
	if !permission.CanCreateContent(permission.Write, caller) {
		return nil, apperr.Unauthorized(msgNoAuth)
	}

	errs := apperr.FieldErrors{}
	if req.Text == nil {
		errs.Add("text", msgRequired)
	}
	comment := &models.Comment{ReviewID: reviewID, AuthorID: caller.UserID}
	applyComment(errs, comment, req)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.Get(ctx, titleID, reviewID, comment.ID)
}

func (s *commentService) Update(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64, req dto.CommentRequest) (*dto.CommentResponse, error) {
	comment, err := s.authorize(ctx, caller, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	errs := apperr.FieldErrors{}
	applyComment(errs, comment, req)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

func (s *commentService) Delete(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64) error {
	comment, err := s.authorize(ctx, caller, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	return notFound(s.comments.Delete(ctx, comment.ID), "Comment")
}

func (s *commentService) authorize(ctx context.Context, caller *permission.Caller, titleID, reviewID, commentID int64) (*models.Comment, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized(msgNoAuth)
	}
	if err := s.requireReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, reviewID, commentID)
	if err != nil {
		return nil, notFound(err, "Comment")
	}
	if !permission.CanModifyContent(permission.Write, caller, comment.AuthorID) {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return comment, nil
}

// requireReview checks the review exists under the title in the path.
func (s *commentService) requireReview(ctx context.Context, titleID, reviewID int64) error {
	if _, err := s.reviews.GetByID(ctx, titleID, reviewID); err != nil {
		return notFound(err, "Review")
	}
	return nil
}

func applyComment(errs apperr.FieldErrors, comment *models.Comment, req dto.CommentRequest) {
	if req.Text != nil {
		if strings.TrimSpace(*req.Text) == "" {
			errs.Add("text", "This field may not be blank.")
		}
		comment.Text = *req.Text
	}
}
