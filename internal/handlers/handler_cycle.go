package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

const idempotencyKeyHeader = "Idempotency-Key"

// cycleHandler handles HTTP requests related to contribution cycles.
type cycleHandler struct {
	cycleService portssvc.CycleSvcFacade
}

func newCycleHandler(cs portssvc.CycleSvcFacade) *cycleHandler {
	return &cycleHandler{cycleService: cs}
}

func registerCycleRoutes(rg *gin.RouterGroup, cycleService portssvc.CycleSvcFacade) {
	h := newCycleHandler(cycleService)

	rg.GET("/cycles/:id", h.getCycle)
	rg.GET("/chamas/:chamaId/cycles/active", h.getActiveCycle)
	rg.POST("/contributions", h.contribute)
}

func (h *cycleHandler) getCycle(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("cycle_id", c.Param("id")))

	cycle, err := h.cycleService.GetCycle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve cycle")
		return
	}
	c.JSON(http.StatusOK, dto.ToCycleResponse(cycle))
}

func (h *cycleHandler) getActiveCycle(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("chama_id", c.Param("chamaId")))

	cycle, err := h.cycleService.GetActiveCycle(c.Request.Context(), c.Param("chamaId"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve active cycle")
		return
	}
	c.JSON(http.StatusOK, dto.ToCycleResponse(cycle))
}

// contribute posts a member's contribution. A repeated Idempotency-Key
// returns the original contribution.
func (h *cycleHandler) contribute(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)
	}

	logger = logger.With(slog.String("chama_id", req.ChamaID), slog.String("member_id", req.MemberID))
	logger.Info("Received contribution", slog.String("amount", req.Amount.String()))

	contribution, err := h.cycleService.Contribute(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err, "Failed to record contribution")
		return
	}
	logger.Info("Contribution recorded", slog.String("contribution_id", contribution.ID))
	c.JSON(http.StatusCreated, dto.ToContributionResponse(contribution))
}
