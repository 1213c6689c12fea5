package configsync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/handler"
	"github.com/jwalitptl/labops-api/internal/middleware"
	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/service/configsync"
)

type Handler struct {
	service *configsync.Service
}

func NewHandler(service *configsync.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	configs := r.Group("/configurations")
	{
		configs.POST("", h.Create)
		configs.GET("", h.List)
		configs.GET("/export", h.Export)
		configs.GET("/:id", h.Get)
		configs.PUT("/:id", h.Update)
		configs.DELETE("/:id", h.Delete)
	}

	sync := r.Group("/sync")
	{
		sync.GET("/targets", h.ListSyncTargets)
		sync.POST("/force", h.ForceSync)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	item, err := h.service.Create(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(item))
}

func (h *Handler) List(c *gin.Context) {
	var filter model.ConfigFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	items, err := h.service.List(c.Request.Context(), middleware.CurrentUser(c), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid configuration ID"))
		return
	}

	item, err := h.service.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(item))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid configuration ID"))
		return
	}

	var req model.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	item, err := h.service.Update(c.Request.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(item))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid configuration ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": true}))
}

// Export returns the raw array consumed by external tooling. The entries are
// not wrapped in the response envelope; the field names are the contract.
func (h *Handler) Export(c *gin.Context) {
	entries, err := h.service.Export(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) ListSyncTargets(c *gin.Context) {
	targets, err := h.service.ListSyncTargets(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(targets))
}

func (h *Handler) ForceSync(c *gin.Context) {
	targets, err := h.service.ForceSync(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(targets))
}
