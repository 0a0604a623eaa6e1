package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/middleware"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
)

type CommentHandler struct {
	commentService service.CommentService
	pages          dto.PageConfig
}

func NewCommentHandler(commentService service.CommentService, pages dto.PageConfig) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		pages:          pages,
	}
}

// RegisterRoutes registers comment routes nested under a review
func (h *CommentHandler) RegisterRoutes(router *gin.RouterGroup) {
	comments := router.Group("/titles/:title_id/reviews/:review_id/comments")
	{
		// Public routes
		comments.GET("", h.List)
		comments.GET("/:comment_id", h.Get)

		// Author, moderator or admin; checked by the service
		write := comments.Group("", middleware.RequireAuthenticated())
		write.POST("", h.Create)
		write.PATCH("/:comment_id", h.Update)
		write.DELETE("/:comment_id", h.Delete)
	}
}

// reviewPath reads :title_id and :review_id, writing a 404 when either is malformed.
func reviewPath(c *gin.Context) (titleID, reviewID int64, ok bool) {
	if titleID, ok = pathID(c, "title_id"); !ok {
		return
	}
	reviewID, ok = pathID(c, "review_id")
	return
}

func (h *CommentHandler) List(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	p := h.pages.ParsePageParams(c.Request.URL.Query())

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	comments, total, err := h.commentService.List(ctx, titleID, reviewID, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(comments, total, p, c.Request.URL))
}

func (h *CommentHandler) Get(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	comment, err := h.commentService.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Create(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	comment, err := h.commentService.Create(ctx, middleware.CallerFrom(c), titleID, reviewID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Update(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	comment, err := h.commentService.Update(ctx, middleware.CallerFrom(c), titleID, reviewID, commentID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.commentService.Delete(ctx, middleware.CallerFrom(c), titleID, reviewID, commentID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
