package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/application"
	"github.com/PawResorts/service-reservation/internal/platform/auth"
	"github.com/PawResorts/service-reservation/internal/platform/middleware"
	"github.com/PawResorts/service-reservation/internal/platform/response"
)

// QuoteHandler handles HTTP requests for quotes, availability checks and
// coupon validation. All its endpoints are read-only.
type QuoteHandler struct {
	service *application.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(service *application.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// RegisterRoutes registers all quote routes on the given router group.
func (h *QuoteHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	quotes := r.Group("/api/v1/quotes")
	quotes.Use(authMW)
	{
		quotes.POST("", h.GetQuote)
	}

	availability := r.Group("/api/v1/availability")
	availability.Use(authMW)
	{
		availability.POST("/check", h.CheckAvailability)
	}

	coupons := r.Group("/api/v1/coupons")
	coupons.Use(authMW)
	{
		coupons.POST("/validate", h.ValidateCoupon)
	}
}

// GetQuote handles POST /api/v1/quotes.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.GetQuote(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckAvailability handles POST /api/v1/availability/check.
func (h *QuoteHandler) CheckAvailability(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ValidateCouponRequest is the payload for coupon validation.
type ValidateCouponRequest struct {
	Code          string      `json:"code" binding:"required"`
	SubtotalCents int64       `json:"subtotal_cents" binding:"required"`
	ServiceIDs    []uuid.UUID `json:"service_ids"`
}

// ValidateCoupon handles POST /api/v1/coupons/validate. Validation is free
// of side effects; usage counters only move at booking confirmation.
func (h *QuoteHandler) ValidateCoupon(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidateCoupon(c.Request.Context(), tenantID, userID, req.Code, req.SubtotalCents, req.ServiceIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
