package roundup

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/roundup/pkg/common"
	"github.com/richxcame/roundup/pkg/middleware"
)

// Handler handles HTTP requests for round-ups
type Handler struct {
	service *Service
}

// NewHandler creates a new round-up handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateURI struct {
	AccountID string `uri:"accountId" validate:"required,max=64"`
	GoalID    string `uri:"goalId" validate:"required,max=64"`
}

type initiateQuery struct {
	WeekCommencing string `form:"weekCommencing" validate:"required,monday"`
}

type statusURI struct {
	AccountID      string `uri:"accountId" validate:"required,max=64"`
	WeekCommencing string `uri:"weekCommencing" validate:"required,monday"`
}

// InitiateRoundUp admits a round-up for the week and returns without waiting for it
func (h *Handler) InitiateRoundUp(c *gin.Context) {
	var uri initiateURI
	if err := middleware.ValidateURI(c, &uri); err != nil {
		middleware.RespondWithValidationError(c, err)
		return
	}
	var query initiateQuery
	if err := middleware.ValidateQuery(c, &query); err != nil {
		middleware.RespondWithValidationError(c, err)
		return
	}

	week, err := ParseWeekCommencing(query.WeekCommencing)
	if err != nil {
		middleware.RespondWithValidationError(c, err)
		return
	}

	outcome, err := h.service.Initiate(c.Request.Context(), uri.AccountID, uri.GoalID, week)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	switch outcome.Kind {
	case OutcomeAccepted:
		c.JSON(http.StatusAccepted, InitiateResponse{
			Status:    string(StatusInProgress),
			RequestID: outcome.RequestID.String(),
		})
	case OutcomeAlreadyInProgress:
		c.JSON(http.StatusConflict, InitiateResponse{
			Status:  string(OutcomeAlreadyInProgress),
			Message: "a round-up for this week is already being processed",
		})
	case OutcomeAlreadyCompleted:
		amount := outcome.Amount
		c.JSON(http.StatusOK, InitiateResponse{
			Status:        string(OutcomeAlreadyCompleted),
			RoundUpAmount: &amount,
		})
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}

// GetStatus reports the ledger state for an account and week
func (h *Handler) GetStatus(c *gin.Context) {
	var uri statusURI
	if err := middleware.ValidateURI(c, &uri); err != nil {
		middleware.RespondWithValidationError(c, err)
		return
	}
	week, err := ParseWeekCommencing(uri.WeekCommencing)
	if err != nil {
		middleware.RespondWithValidationError(c, err)
		return
	}

	report, err := h.service.CheckStatus(c.Request.Context(), uri.AccountID, week)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	resp := StatusResponse{
		AccountID:      uri.AccountID,
		WeekCommencing: uri.WeekCommencing,
	}
	if !report.Found {
		resp.Status = "NOT_FOUND"
		c.JSON(http.StatusNotFound, resp)
		return
	}

	resp.Status = string(report.Status)
	resp.RequestID = report.RequestID.String()
	if report.Status == StatusCompleted {
		amount := report.Amount
		resp.RoundUpAmount = &amount
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers round-up routes. Extra middleware (auth) is applied to the group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	roundUp := rg.Group("/round-up")
	roundUp.Use(mw...)
	{
		roundUp.POST("/:accountId/:goalId", h.InitiateRoundUp)
		roundUp.GET("/status/:accountId/:weekCommencing", h.GetStatus)
	}
}
