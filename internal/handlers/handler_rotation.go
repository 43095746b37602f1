package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

// rotationHandler handles HTTP requests related to rotation orders and positions.
type rotationHandler struct {
	rotationService portssvc.RotationSvcFacade
}

func newRotationHandler(rs portssvc.RotationSvcFacade) *rotationHandler {
	return &rotationHandler{rotationService: rs}
}

// registerRotationRoutes registers routes related to rotations.
func registerRotationRoutes(rg *gin.RouterGroup, rotationService portssvc.RotationSvcFacade) {
	h := newRotationHandler(rotationService)

	official := middleware.RequireRole(middleware.OfficialRoles...)

	rg.POST("/rotations", official, h.createRotation)
	rg.GET("/rotations/:id/next-recipient", h.getNextRecipient)
	rg.GET("/chamas/:chamaId/rotation", h.getRotationStatus)

	positions := rg.Group("/positions", official)
	{
		positions.POST("/:id/skip", h.skipPosition)
		positions.POST("/swap", h.swapPositions)
	}
}

// createRotation assigns every active member of a chama to a payout position.
func (h *rotationHandler) createRotation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateRotationRequest
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

	logger = logger.With(slog.String("chama_id", req.ChamaID), slog.String("policy", string(req.Policy)))
	logger.Info("Received request to create rotation")

	overview, err := h.rotationService.CreateRotation(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to create rotation")
		return
	}

	logger.Info("Rotation created", slog.String("rotation_id", overview.Order.ID))
	c.JSON(http.StatusCreated, dto.ToRotationResponse(overview))
}

func (h *rotationHandler) getRotationStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("chama_id", c.Param("chamaId")))

	overview, err := h.rotationService.GetRotationStatus(c.Request.Context(), c.Param("chamaId"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve rotation")
		return
	}
	c.JSON(http.StatusOK, dto.ToRotationResponse(overview))
}

func (h *rotationHandler) getNextRecipient(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("rotation_id", c.Param("id")))

	position, err := h.rotationService.GetNextRecipient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve next recipient")
		return
	}
	c.JSON(http.StatusOK, dto.ToPositionResponse(position))
}

// skipPosition marks a pending or current position skipped without moving the rotation.
func (h *rotationHandler) skipPosition(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("position_id", c.Param("id")))
	var req dto.SkipPositionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, logger, err)
			return
		}
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Actor user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	position, err := h.rotationService.SkipPosition(c.Request.Context(), c.Param("id"), req.Reason, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to skip position")
		return
	}
	logger.Info("Position skipped")
	c.JSON(http.StatusOK, dto.ToPositionResponse(position))
}

func (h *rotationHandler) swapPositions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SwapPositionsRequest
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

	logger = logger.With(slog.String("position_a", req.PositionA), slog.String("position_b", req.PositionB))
	positions, err := h.rotationService.SwapPositions(c.Request.Context(), req.PositionA, req.PositionB, req.Reason, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to swap positions")
		return
	}
	logger.Info("Positions swapped")
	c.JSON(http.StatusOK, gin.H{"positions": dto.ToPositionResponses(positions)})
}
