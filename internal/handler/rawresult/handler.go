package rawresult

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/handler"
	"github.com/jwalitptl/labops-api/internal/middleware"
	"github.com/jwalitptl/labops-api/internal/service/rawresult"
)

type Handler struct {
	service *rawresult.Service
}

func NewHandler(service *rawresult.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	results := r.Group("/raw-results")
	{
		results.POST("", h.Capture)
		results.GET("", h.List)
		results.GET("/:id", h.Get)
		results.DELETE("/:id", h.Delete)
		results.POST("/sync-to-monitoring", h.SyncToMonitoring)
	}
}

func (h *Handler) Capture(c *gin.Context) {
	var req struct {
		InstrumentSerial string `json:"instrument_serial" binding:"required"`
		SampleCode       string `json:"sample_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.Capture(c.Request.Context(), middleware.CurrentUser(c), req.InstrumentSerial, req.SampleCode)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) List(c *gin.Context) {
	results, err := h.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(results))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid raw result ID"))
		return
	}

	result, err := h.service.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid raw result ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *Handler) SyncToMonitoring(c *gin.Context) {
	synced, err := h.service.SyncToMonitoring(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"synced": synced}))
}
