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

type UserService interface {
	List(ctx context.Context, search string, p dto.PageParams) ([]dto.UserResponse, int64, error)
	Get(ctx context.Context, username string) (*dto.UserResponse, error)
	Create(ctx context.Context, req dto.UserRequest) (*dto.UserResponse, error)
	Update(ctx context.Context, caller *permission.Caller, username string, req dto.UserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, username string) error
	Me(ctx context.Context, caller *permission.Caller) (*dto.UserResponse, error)
	UpdateMe(ctx context.Context, caller *permission.Caller, req dto.UserRequest) (*dto.UserResponse, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) List(ctx context.Context, search string, p dto.PageParams) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, search, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.FromModelToUserResponse(&users[i]))
	}
	return out, total, nil
}

func (s *userService) Get(ctx context.Context, username string) (*dto.UserResponse, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "User")
	}
	resp := dto.FromModelToUserResponse(user)
	return &resp, nil
}

// Create is the admin path; username and email are required, role defaults to user.
func (s *userService) Create(ctx context.Context, req dto.UserRequest) (*dto.UserResponse, error) {
	user := &models.User{Role: models.RoleUser}
	if req.Username == nil {
		req.Username = new(string)
	}
	if req.Email == nil {
		req.Email = new(string)
	}
	if err := s.apply(ctx, user, req, true); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, uniqueUserErr(ctx, s.repo, user, err)
	}
	resp := dto.FromModelToUserResponse(user)
	return &resp, nil
}

func (s *userService) Update(ctx context.Context, caller *permission.Caller, username string, req dto.UserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if !permission.CanEditProfile(caller, user.ID) {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return s.save(ctx, user, req, permission.CanChangeRole(caller))
}

func (s *userService) Delete(ctx context.Context, username string) error {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return notFound(err, "User")
	}
	return notFound(s.repo.Delete(ctx, user.ID), "User")
}

func (s *userService) Me(ctx context.Context, caller *permission.Caller) (*dto.UserResponse, error) {
	user, err := s.self(ctx, caller)
	if err != nil {
		return nil, err
	}
	resp := dto.FromModelToUserResponse(user)
	return &resp, nil
}

// UpdateMe never touches the role, whoever the caller is.
func (s *userService) UpdateMe(ctx context.Context, caller *permission.Caller, req dto.UserRequest) (*dto.UserResponse, error) {
	user, err := s.self(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, user, req, false)
}

func (s *userService) self(ctx context.Context, caller *permission.Caller) (*models.User, error) {
	if !caller.Authenticated() {
		return nil, apperr.Unauthorized(msgNoAuth)
	}
	user, err := s.repo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if !permission.CanEditProfile(caller, user.ID) {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return user, nil
}

func (s *userService) save(ctx context.Context, user *models.User, req dto.UserRequest, allowRole bool) (*dto.UserResponse, error) {
	if err := s.apply(ctx, user, req, allowRole); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, uniqueUserErr(ctx, s.repo, user, err)
	}
	resp := dto.FromModelToUserResponse(user)
	return &resp, nil
}

// apply validates the non-nil fields of req and copies them onto user.
func (s *userService) apply(ctx context.Context, user *models.User, req dto.UserRequest, allowRole bool) error {
	errs := apperr.FieldErrors{}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if user.ID == 0 || username != user.Username {
			if err := checkUsername(ctx, errs, s.repo.UsernameTaken, username, user.ID); err != nil {
				return err
			}
		}
		user.Username = username
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if user.ID == 0 || email != user.Email {
			if err := checkEmail(ctx, errs, s.repo.EmailTaken, email, user.ID); err != nil {
				return err
			}
		}
		user.Email = email
	}
	if req.FirstName != nil {
		if len([]rune(*req.FirstName)) > maxUsernameLen {
			errs.Add("first_name", tooLong(maxUsernameLen))
		}
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		if len([]rune(*req.LastName)) > maxUsernameLen {
			errs.Add("last_name", tooLong(maxUsernameLen))
		}
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Role != nil && allowRole {
		role := models.Role(*req.Role)
		if !role.Valid() {
			errs.Add("role", `"`+*req.Role+`" is not a valid choice.`)
		}
		user.Role = role
	}

	return errs.Err()
}
