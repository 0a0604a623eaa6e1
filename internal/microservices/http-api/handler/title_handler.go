package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/middleware"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
)

type TitleHandler struct {
	titleService service.TitleService
	pages        dto.PageConfig
}

func NewTitleHandler(titleService service.TitleService, pages dto.PageConfig) *TitleHandler {
	return &TitleHandler{titleService: titleService, pages: pages}
}

func (h *TitleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	titles := rg.Group("/titles", middleware.ReadAnyWriteAdmin())
	titles.GET("", h.List)
	titles.POST("", h.Create)
	titles.GET("/:title_id", h.Get)
	titles.PATCH("/:title_id", h.Patch)
	titles.PUT("/:title_id", h.Put)
	titles.DELETE("/:title_id", h.Delete)
}

// List supports ?category=, ?genre= (slugs), ?name= (substring) and ?year=.
func (h *TitleHandler) List(c *gin.Context) {
	query := c.Request.URL.Query()
	filter, ok := dto.TitleFilterFromQuery(query)
	if !ok {
		writeError(c, apperr.Invalid("year", "Enter a whole number."))
		return
	}
	p := h.pages.ParsePageParams(query)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	titles, total, err := h.titleService.List(ctx, filter, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPage(titles, total, p, c.Request.URL))
}

func (h *TitleHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	title, err := h.titleService.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

func (h *TitleHandler) Create(c *gin.Context) {
	var req dto.TitleRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	title, err := h.titleService.Create(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, title)
}

func (h *TitleHandler) Patch(c *gin.Context) { h.update(c, true) }

func (h *TitleHandler) Put(c *gin.Context) { h.update(c, false) }

func (h *TitleHandler) update(c *gin.Context, partial bool) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	var req dto.TitleRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	title, err := h.titleService.Update(ctx, id, req, partial)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, title)
}

func (h *TitleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.titleService.Delete(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
