package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

// payoutHandler handles HTTP requests related to payouts.
type payoutHandler struct {
	payoutService portssvc.PayoutSvcFacade
}

func newPayoutHandler(ps portssvc.PayoutSvcFacade) *payoutHandler {
	return &payoutHandler{payoutService: ps}
}

// registerPayoutRoutes registers routes related to payouts.
func registerPayoutRoutes(rg *gin.RouterGroup, payoutService portssvc.PayoutSvcFacade) {
	h := newPayoutHandler(payoutService)

	official := middleware.RequireRole(middleware.OfficialRoles...)

	payouts := rg.Group("/payouts")
	{
		payouts.POST("", official, h.schedulePayout)
		payouts.GET("", h.listPayouts)
		payouts.GET("/:id", h.getPayout)
		payouts.POST("/:id/execute", official, h.executePayout)
		payouts.POST("/:id/cancel", official, h.cancelPayout)
		payouts.POST("/:id/retry", official, h.retryPayout)
	}
	rg.POST("/cycles/:id/trigger-payout", official, h.triggerCyclePayout)
}

func (h *payoutHandler) schedulePayout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SchedulePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Actor user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("cycle_id", req.CycleID), slog.String("recipient_id", req.RecipientMemberID))
	logger.Info("Received request to schedule payout", slog.String("amount", req.Amount.String()))

	payout, err := h.payoutService.SchedulePayout(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to schedule payout")
		return
	}
	logger.Info("Payout scheduled", slog.String("payout_id", payout.ID))
	c.JSON(http.StatusCreated, dto.ToPayoutResponse(payout))
}

func (h *payoutHandler) getPayout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("payout_id", c.Param("id")))

	payout, err := h.payoutService.GetPayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve payout")
		return
	}
	c.JSON(http.StatusOK, dto.ToPayoutResponse(payout))
}

func (h *payoutHandler) listPayouts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListPayoutsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, logger, err)
		return
	}

	page, err := h.payoutService.GetPayoutHistory(c.Request.Context(), params.ToFilter(), params.Page, params.Limit)
	if err != nil {
		respondError(c, logger, err, "Failed to list payouts")
		return
	}
	c.JSON(http.StatusOK, dto.ToPayoutHistoryResponse(page))
}

// executePayout runs a pending payout against the ledger. A ledger failure is
// recorded on the payout and reported as 502.
func (h *payoutHandler) executePayout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("payout_id", c.Param("id")))
	logger.Info("Received request to execute payout")

	payout, err := h.payoutService.ExecutePayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to execute payout")
		return
	}
	c.JSON(http.StatusOK, dto.ToPayoutResponse(payout))
}

func (h *payoutHandler) cancelPayout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("payout_id", c.Param("id")))
	var req dto.CancelPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Actor user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payout, err := h.payoutService.CancelPayout(c.Request.Context(), c.Param("id"), req.Reason, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to cancel payout")
		return
	}
	logger.Info("Payout cancelled")
	c.JSON(http.StatusOK, dto.ToPayoutResponse(payout))
}

// retryPayout is the operator's manual retry and bypasses the circuit breaker.
func (h *payoutHandler) retryPayout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("payout_id", c.Param("id")))
	logger.Info("Received request to retry payout")

	payout, err := h.payoutService.RetryFailedPayout(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respondError(c, logger, err, "Failed to retry payout")
		return
	}
	c.JSON(http.StatusOK, dto.ToPayoutResponse(payout))
}

func (h *payoutHandler) triggerCyclePayout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("cycle_id", c.Param("id")))
	logger.Info("Received request to trigger cycle payout")

	payout, err := h.payoutService.TriggerCyclePayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to trigger cycle payout")
		return
	}
	c.JSON(http.StatusOK, dto.ToPayoutResponse(payout))
}
