package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

type autoDebitHandler struct {
	autoDebitService portssvc.AutoDebitSvcFacade
}

func registerAutoDebitRoutes(rg *gin.RouterGroup, autoDebitService portssvc.AutoDebitSvcFacade) {
	h := &autoDebitHandler{autoDebitService: autoDebitService}

	rg.PUT("/auto-debits", h.upsertAutoDebit)
	rg.GET("/chamas/:chamaId/members/:memberId/auto-debit", h.getAutoDebit)
}

func (h *autoDebitHandler) upsertAutoDebit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpsertAutoDebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err)
		return
	}

	logger = logger.With(slog.String("chama_id", req.ChamaID), slog.String("member_id", req.MemberID))
	cfg, err := h.autoDebitService.UpsertAutoDebit(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err, "Failed to save auto-debit")
		return
	}
	logger.Info("Auto-debit saved", slog.String("auto_debit_id", cfg.ID), slog.Time("next_execution_at", cfg.NextExecutionAt))
	c.JSON(http.StatusOK, dto.ToAutoDebitResponse(cfg))
}

func (h *autoDebitHandler) getAutoDebit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(
		slog.String("chama_id", c.Param("chamaId")),
		slog.String("member_id", c.Param("memberId")))

	cfg, err := h.autoDebitService.GetAutoDebit(c.Request.Context(), c.Param("chamaId"), c.Param("memberId"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve auto-debit")
		return
	}
	c.JSON(http.StatusOK, dto.ToAutoDebitResponse(cfg))
}
