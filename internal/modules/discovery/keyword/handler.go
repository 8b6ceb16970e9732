package keyword

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rankforge/core/internal/pkg/pagination"
	"github.com/rankforge/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/keywords", authMW)

	g.POST("/discover", h.discover)
	g.GET("/sets", h.listSets)
	g.GET("/sets/:id", h.getSet)
	g.PATCH("/sets/:id/selection", h.patchSelection)
	g.DELETE("/sets/:id", h.deleteSet)
}

func (h *Handler) discover(c *gin.Context) {
	var dto DiscoverDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	set, err := h.svc.Discover(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, errSeedMissing):
			response.BadRequest(c, err.Error())
		case errors.Is(err, errNotConfigured):
			response.ServiceUnavailable(c, err.Error())
		case errors.Is(err, ErrProviderUnavailable):
			response.ServiceUnavailable(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, set)
}

func (h *Handler) listSets(c *gin.Context) {
	q := pagination.FromContext(c)
	rows, p, err := h.svc.List(q, c.Query("product_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, p)
}

func (h *Handler) getSet(c *gin.Context) {
	set, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, errSetNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, set)
}

func (h *Handler) patchSelection(c *gin.Context) {
	var dto SelectionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	set, err := h.svc.PatchSelection(c.Param("id"), dto.Selected)
	if err != nil {
		if errors.Is(err, errSetNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, set)
}

func (h *Handler) deleteSet(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, errSetNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
