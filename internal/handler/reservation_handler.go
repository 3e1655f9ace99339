package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PawResorts/service-reservation/internal/application"
	"github.com/PawResorts/service-reservation/internal/platform/auth"
	"github.com/PawResorts/service-reservation/internal/platform/domain"
	"github.com/PawResorts/service-reservation/internal/platform/middleware"
	"github.com/PawResorts/service-reservation/internal/platform/response"
)

func notYourReservation() error {
	return domain.NewForbiddenError("reservation belongs to another customer")
}

// ReservationHandler handles HTTP requests for reservation operations.
type ReservationHandler struct {
	service *application.ReservationService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(service *application.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// RegisterRoutes registers all reservation routes on the given router group.
func (h *ReservationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	reservations := r.Group("/api/v1/reservations")
	reservations.Use(authMW)
	{
		reservations.POST("", middleware.RequireRole(auth.RoleOwner), h.ConfirmBooking)
		reservations.GET("", h.ListReservations)
		reservations.GET("/:id", h.GetReservation)
		reservations.POST("/:id/deposit", middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin), h.MarkDepositPaid)
		reservations.POST("/:id/check-in", middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin), h.CheckIn)
		reservations.POST("/:id/check-out", middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin), h.CheckOut)
		reservations.POST("/:id/complete", middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin), h.Complete)
		reservations.POST("/:id/cancel", h.CancelReservation)
	}
}

// ConfirmBooking handles POST /api/v1/reservations. The request is quoted
// afresh and confirmed under the capacity lock.
func (h *ReservationHandler) ConfirmBooking(c *gin.Context) {
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

	result, err := h.service.ConfirmBooking(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListReservations handles GET /api/v1/reservations. Owners see their own;
// staff and admins see the whole tenant.
func (h *ReservationHandler) ListReservations(c *gin.Context) {
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
	role, _ := middleware.GetUserRole(c)

	page, limit := parsePagination(c)

	if role == auth.RoleStaff || role == auth.RoleAdmin {
		result, err := h.service.ListAll(c.Request.Context(), tenantID, page, limit)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
		return
	}

	result, err := h.service.ListCustomerReservations(c.Request.Context(), tenantID, userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetReservation handles GET /api/v1/reservations/:id.
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	role, _ := middleware.GetUserRole(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	result, err := h.service.GetReservation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	if role == auth.RoleOwner && result.CustomerID != userID {
		response.Error(c, notYourReservation())
		return
	}

	response.Success(c, result)
}

// MarkDepositPaid handles POST /api/v1/reservations/:id/deposit.
func (h *ReservationHandler) MarkDepositPaid(c *gin.Context) {
	h.applyTransition(c, h.service.MarkDepositPaid)
}

// CheckIn handles POST /api/v1/reservations/:id/check-in.
func (h *ReservationHandler) CheckIn(c *gin.Context) {
	h.applyTransition(c, h.service.CheckIn)
}

// CheckOut handles POST /api/v1/reservations/:id/check-out.
func (h *ReservationHandler) CheckOut(c *gin.Context) {
	h.applyTransition(c, h.service.CheckOut)
}

// Complete handles POST /api/v1/reservations/:id/complete.
func (h *ReservationHandler) Complete(c *gin.Context) {
	h.applyTransition(c, h.service.Complete)
}

// CancelReservationRequest is the payload for a cancellation.
type CancelReservationRequest struct {
	Reason string `json:"reason"`
}

// CancelReservation handles POST /api/v1/reservations/:id/cancel. Owners
// can only cancel their own reservations.
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	role, _ := middleware.GetUserRole(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	var req CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if role == auth.RoleOwner {
		existing, err := h.service.GetReservation(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		if existing.CustomerID != userID {
			response.Error(c, notYourReservation())
			return
		}
	}

	result, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func (h *ReservationHandler) applyTransition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*application.ReservationDTO, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reservation ID")
		return
	}

	result, err := apply(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
