package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/PawResorts/service-reservation/internal/application"
	"github.com/PawResorts/service-reservation/internal/platform/auth"
	"github.com/PawResorts/service-reservation/internal/platform/middleware"
	"github.com/PawResorts/service-reservation/internal/platform/response"
)

// AdminReservationHandler handles admin HTTP requests for reservation
// management.
type AdminReservationHandler struct {
	service *application.ReservationService
}

// NewAdminReservationHandler creates a new AdminReservationHandler.
func NewAdminReservationHandler(service *application.ReservationService) *AdminReservationHandler {
	return &AdminReservationHandler{service: service}
}

// RegisterRoutes registers admin reservation routes.
func (h *AdminReservationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/reservations", h.ListReservations)
		admin.GET("/stats/reservations", h.ReservationStats)
	}
}

// ListReservations handles GET /api/v1/admin/reservations.
func (h *AdminReservationHandler) ListReservations(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)

	result, err := h.service.ListAll(c.Request.Context(), tenantID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ReservationStats handles GET /api/v1/admin/stats/reservations.
func (h *AdminReservationHandler) ReservationStats(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
