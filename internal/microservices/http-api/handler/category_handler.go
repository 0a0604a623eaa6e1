package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/middleware"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
)

type CategoryHandler struct {
	svc   service.CategoryService
	pages dto.PageConfig
}

func NewCategoryHandler(svc service.CategoryService, pages dto.PageConfig) *CategoryHandler {
	return &CategoryHandler{svc: svc, pages: pages}
}

func (h *CategoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	categories := rg.Group("/categories", middleware.ReadAnyWriteAdmin())
	categories.GET("", h.List)
	categories.POST("", h.Create)
	categories.DELETE("/:slug", h.Delete)
}

func (h *CategoryHandler) List(c *gin.Context) {
	p := h.pages.ParsePageParams(c.Request.URL.Query())

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	list, total, err := h.svc.List(ctx, c.Query("search"), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(list, total, p, c.Request.URL))
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var in dto.SlugEntityRequest
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	category, err := h.svc.Create(ctx, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, c.Param("slug")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
