package product

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rankforge/core/internal/pkg/pagination"
	"github.com/rankforge/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/products", authMW)

	g.POST("/sync", h.sync)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
	g.POST("/analyze", h.analyze)
}

func (h *Handler) sync(c *gin.Context) {
	var dto SyncDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.Sync(dto.Products)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	rows, p, err := h.svc.List(q, c.Query("product_type"), c.Query("vendor"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, p)
}

func (h *Handler) get(c *gin.Context) {
	row, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, errProductNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, row)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, errProductNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) analyze(c *gin.Context) {
	var dto AnalyzeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	analysis, err := h.svc.Analyze(dto)
	if err != nil {
		switch {
		case errors.Is(err, errNothingToAnalyze):
			response.BadRequest(c, "provide product_ids or inline products to analyze")
		case errors.Is(err, errProductNotFound):
			response.NotFoundMsg(c, "one or more products were not found")
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, analysis)
}
