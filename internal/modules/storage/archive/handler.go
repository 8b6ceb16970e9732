package archive

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rankforge/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/archives", authMW)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:filename", h.download)
	g.DELETE("/:filename", h.delete)
}

// POST /archives  [auth]
func (h *Handler) create(c *gin.Context) {
	artifact, err := h.svc.CreateAndUpload(c.Request.Context(), time.Now())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, artifact)
}

// GET /archives  [auth]
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.svc.List())
}

// GET /archives/:filename  [auth]
func (h *Handler) download(c *gin.Context) {
	filename, err := sanitizeFilename(c.Param("filename"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	data, err := h.svc.Read(filename)
	if err != nil {
		if errors.Is(err, errArchiveNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}

// DELETE /archives/:filename  [auth]
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("filename")); err != nil {
		if errors.Is(err, errArchiveNotFound) {
			response.NotFound(c)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}
