package currency

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/roundup/pkg/common"
)

// Handler exposes the configured rate table
type Handler struct {
	converter *Converter
	rates     *RateTable
}

// NewHandler creates a new currency handler
func NewHandler(converter *Converter, rates *RateTable) *Handler {
	return &Handler{converter: converter, rates: rates}
}

// GetAllRates returns every rate relative to the base currency
func (h *Handler) GetAllRates(c *gin.Context) {
	codes := h.rates.Codes()
	responses := make([]RateResponse, 0, len(codes))
	for _, code := range codes {
		entry, _ := h.rates.Lookup(code)
		responses = append(responses, RateResponse{
			Currency:      code,
			Rate:          entry.Rate.String(),
			DecimalPlaces: entry.DecimalPlaces,
		})
	}

	common.SuccessResponse(c, gin.H{
		"base_currency": h.converter.BaseCurrency(),
		"rates":         responses,
	})
}

// Convert converts ?currency=&minorUnits= into base minor units
func (h *Handler) Convert(c *gin.Context) {
	code := strings.ToUpper(c.Query("currency"))
	if len(code) != 3 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid currency code")
		return
	}

	minorUnits, err := strconv.ParseInt(c.Query("minorUnits"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "minorUnits must be an integer")
		return
	}

	common.SuccessResponse(c, ConvertResponse{
		Original: Money{Currency: code, MinorUnits: minorUnits},
		Converted: Money{
			Currency:   h.converter.BaseCurrency(),
			MinorUnits: h.converter.ToBase(code, minorUnits),
		},
		Supported: h.converter.Supports(code),
	})
}

// RegisterRoutes registers currency routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	curr := rg.Group("/currency")
	{
		curr.GET("/rates", h.GetAllRates)
		curr.GET("/convert", h.Convert)
	}
}
