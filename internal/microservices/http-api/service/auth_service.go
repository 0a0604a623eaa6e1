package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/freemirror/yamdb-final/internal/config"
	"github.com/freemirror/yamdb-final/internal/mailer"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/permission"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
	"github.com/freemirror/yamdb-final/internal/middleware/auth"
	"github.com/freemirror/yamdb-final/pkg/logger"
)

var ErrInvalidToken = errors.New("invalid token")

func invalidCode() error {
	return apperr.Invalid("confirmation_code", "Invalid confirmation code.")
}

// Claims is the access token payload.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// Signup registers an unconfirmed account and mails it a confirmation code.
	Signup(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error)
	// RequestCode mails a fresh code to an existing account whose email matches.
	RequestCode(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error)
	// Token exchanges a confirmation code for an access token.
	Token(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error)
	// Authenticate resolves a bearer token to the caller behind it.
	Authenticate(ctx context.Context, tokenString string) (*permission.Caller, error)
}

type authService struct {
	userRepo       repository.UserRepository
	codes          *auth.CodeGenerator
	mailer         mailer.Mailer
	jwtSecret      string
	accessTokenTTL time.Duration
	now            func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	codes *auth.CodeGenerator,
	m mailer.Mailer,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		codes:          codes,
		mailer:         m,
		jwtSecret:      cfg.JWTSecret,
		accessTokenTTL: cfg.AccessTokenTTL,
		now:            time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	errs := apperr.FieldErrors{}
	if err := checkUsername(ctx, errs, s.userRepo.UsernameTaken, username, 0); err != nil {
		return nil, err
	}
	if err := checkEmail(ctx, errs, s.userRepo.EmailTaken, email, 0); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, uniqueUserErr(ctx, s.userRepo, user, err)
	}

	if err := s.issueCode(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("User signed up", zap.Int64("user_id", user.ID), zap.String("username", user.Username))

	return &dto.SignupResponse{Username: user.Username, Email: user.Email}, nil
}

func (s *authService) RequestCode(ctx context.Context, req dto.SignupRequest) (*dto.SignupResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, notFound(err, "User")
	}
	// same answer as an unknown username
	if !strings.EqualFold(user.Email, strings.TrimSpace(req.Email)) {
		return nil, apperr.NotFound("User")
	}

	if err := s.issueCode(ctx, user); err != nil {
		return nil, err
	}
	return &dto.SignupResponse{Username: user.Username, Email: user.Email}, nil
}

// issueCode makes a code for user and mails it. Delivery is best-effort:
// failures are logged, never returned. The server wires a mailer.Queue, so
// Send only enqueues.
func (s *authService) issueCode(ctx context.Context, user *models.User) error {
	code, err := s.codes.Make(auth.CodeSubject{UserID: user.ID, Email: user.Email, LastLogin: user.LastLogin})
	if err != nil {
		return fmt.Errorf("make confirmation code: %w", err)
	}

	msg := mailer.Message{
		To:      []string{user.Email},
		Subject: "YaMDb sign-up",
		Body:    "Confirmation code: " + code,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logger.Log.Warn("Confirmation mail not delivered",
			zap.String("username", user.Username),
			zap.Error(err),
		)
	}
	return nil
}

func (s *authService) Token(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error) {
	errs := apperr.FieldErrors{}
	if strings.TrimSpace(req.Username) == "" {
		errs.Add("username", msgRequired)
	}
	if strings.TrimSpace(req.ConfirmationCode) == "" {
		errs.Add("confirmation_code", msgRequired)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, notFound(err, "User")
	}

	subject := auth.CodeSubject{UserID: user.ID, Email: user.Email, LastLogin: user.LastLogin}
	if !s.codes.Check(subject, req.ConfirmationCode) {
		return nil, invalidCode()
	}

	// stamping last login spends the code; only the exchange that moves it wins
	now := s.now().UTC().Truncate(time.Microsecond)
	spent, err := s.userRepo.StampLastLogin(ctx, user.ID, user.LastLogin, now)
	if err != nil {
		return nil, err
	}
	if !spent {
		return nil, invalidCode()
	}

	token, err := s.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	logger.Log.Info("Access token issued", zap.Int64("user_id", user.ID))

	return &dto.TokenResponse{Token: token}, nil
}

func (s *authService) generateAccessToken(user *models.User, now time.Time) (string, error) {
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(s.jwtSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*permission.Caller, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "Given token not valid.", Cause: err}
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("User not found.")
		}
		return nil, err
	}
	return permission.CallerFromUser(user), nil
}
