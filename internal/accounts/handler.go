package accounts

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/roundup/pkg/common"
)

// Handler handles HTTP requests for account details
type Handler struct {
	service *Service
}

// NewHandler creates a new accounts handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetDetails returns the primary account and its savings goals
func (h *Handler) GetDetails(c *gin.Context) {
	details, err := h.service.GetAccountDetails(c.Request.Context())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, details)
}

// RegisterRoutes registers account routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	accounts := rg.Group("/accounts")
	accounts.Use(mw...)
	{
		accounts.GET("/details", h.GetDetails)
	}
}
