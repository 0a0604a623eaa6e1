package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/middleware"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
)

type GenreHandler struct {
	svc   service.GenreService
	pages dto.PageConfig
}

func NewGenreHandler(svc service.GenreService, pages dto.PageConfig) *GenreHandler {
	return &GenreHandler{svc: svc, pages: pages}
}

func (h *GenreHandler) RegisterRoutes(rg *gin.RouterGroup) {
	genres := rg.Group("/genres", middleware.ReadAnyWriteAdmin())
	genres.GET("", h.List)
	genres.POST("", h.Create)
	genres.DELETE("/:slug", h.Delete)
}

func (h *GenreHandler) List(c *gin.Context) {
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

func (h *GenreHandler) Create(c *gin.Context) {
	var in dto.SlugEntityRequest
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	genre, err := h.svc.Create(ctx, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, genre)
}

func (h *GenreHandler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, c.Param("slug")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
