// Package server assembles the HTTP API: repositories, services, handlers and
// the middleware chain around them.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/freemirror/yamdb-final/internal/config"
	"github.com/freemirror/yamdb-final/internal/mailer"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/handler"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/middleware"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
	"github.com/freemirror/yamdb-final/internal/middleware/auth"
)

// APIPrefix is where every resource route is mounted.
const APIPrefix = "/api/v1"

type Options struct {
	DB     *gorm.DB
	Config *config.Config
	Mailer mailer.Mailer
	// Limiter guards the auth endpoints. nil turns rate limiting off.
	Limiter middleware.Limiter
	Log     *zap.Logger
}

// New builds the gin engine serving the API.
func New(opts Options) *gin.Engine {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			log.Error("Panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		}),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method \"" + c.Request.Method + "\" not allowed."})
	})

	r.GET("/check-conn", checkConn(opts.DB))

	// Repositories
	userRepo := repository.NewUserRepository(opts.DB)
	categoryRepo := repository.NewCategoryRepo(opts.DB)
	genreRepo := repository.NewGenreRepo(opts.DB)
	titleRepo := repository.NewTitleRepo(opts.DB)
	reviewRepo := repository.NewReviewRepository(opts.DB)
	commentRepo := repository.NewCommentRepository(opts.DB)

	// Services
	codes := auth.NewCodeGenerator([]byte(cfg.JWTSecret), cfg.ConfirmationCodeTTL, nil)
	authService := service.NewAuthService(userRepo, codes, opts.Mailer, cfg)
	userService := service.NewUserService(userRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	genreService := service.NewGenreService(genreRepo)
	titleService := service.NewTitleService(titleRepo, categoryRepo, genreRepo, reviewRepo)
	reviewService := service.NewReviewService(reviewRepo, titleRepo)
	commentService := service.NewCommentService(commentRepo, reviewRepo)

	pages := dto.PageConfig{DefaultLimit: cfg.PageSizeDefault, MaxLimit: cfg.PageSizeMax}

	api := r.Group(APIPrefix, middleware.Authenticate(authService))

	var authGuards []gin.HandlerFunc
	if opts.Limiter != nil {
		authGuards = append(authGuards, middleware.RateLimit(opts.Limiter, "auth"))
	}
	handler.NewAuthHandler(authService).RegisterRoutes(api, authGuards...)
	handler.NewUserHandler(userService, pages).RegisterRoutes(api)
	handler.NewCategoryHandler(categoryService, pages).RegisterRoutes(api)
	handler.NewGenreHandler(genreService, pages).RegisterRoutes(api)
	handler.NewTitleHandler(titleService, pages).RegisterRoutes(api)
	handler.NewReviewHandler(reviewService, pages).RegisterRoutes(api)
	handler.NewCommentHandler(commentService, pages).RegisterRoutes(api)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func checkConn(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "API is alive but the database is unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "API is alive and database connected"})
	}
}
