package instrument

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/handler"
	"github.com/jwalitptl/labops-api/internal/middleware"
	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/service/instrument"
)

type Handler struct {
	service *instrument.Service
}

func NewHandler(service *instrument.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	instruments := r.Group("/instruments")
	{
		instruments.POST("", h.Register)
		instruments.GET("", h.List)
		instruments.GET("/:id", h.Get)
		instruments.GET("/:id/status", h.CheckStatus)
		instruments.POST("/:id/toggle-activation", h.ToggleActivation)
		instruments.POST("/:id/mode", h.ChangeMode)
		instruments.POST("/:id/analysis", h.StartAnalysis)
	}

	runs := r.Group("/analysis-runs")
	{
		runs.GET("/:id", h.GetAnalysisRun)
		runs.POST("/:id/cancel", h.CancelAnalysis)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Register(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) List(c *gin.Context) {
	instruments, err := h.service.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(instruments))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid instrument ID"))
		return
	}

	found, err := h.service.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) CheckStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid instrument ID"))
		return
	}

	checked, err := h.service.CheckStatus(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(checked))
}

func (h *Handler) ToggleActivation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid instrument ID"))
		return
	}

	toggled, err := h.service.ToggleActivation(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(toggled))
}

func (h *Handler) ChangeMode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid instrument ID"))
		return
	}

	var req model.ChangeModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	changed, err := h.service.ChangeMode(c.Request.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(changed))
}

func (h *Handler) StartAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid instrument ID"))
		return
	}

	var req struct {
		SampleIDs []string `json:"sample_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	run, err := h.service.StartAnalysis(c.Request.Context(), middleware.CurrentUser(c), id, req.SampleIDs)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(run))
}

func (h *Handler) GetAnalysisRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid run ID"))
		return
	}

	run, err := h.service.GetAnalysisRun(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(run))
}

func (h *Handler) CancelAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid run ID"))
		return
	}

	if err := h.service.CancelAnalysis(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"cancelled": true}))
}
