package currency

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	table := testTable(t)
	router := gin.New()
	NewHandler(NewConverter("GBP", table), table).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestHandler_Convert(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "supported",
			query:      "?currency=usd&minorUnits=1000",
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"data":{"original":{"currency":"USD","minorUnits":1000},"converted":{"currency":"GBP","minorUnits":800},"supported":true}}`,
		},
		{
			name:       "unsupported",
			query:      "?currency=XYZ&minorUnits=500",
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"data":{"original":{"currency":"XYZ","minorUnits":500},"converted":{"currency":"GBP","minorUnits":0},"supported":false}}`,
		},
		{name: "bad code", query: "?currency=US&minorUnits=1", wantStatus: http.StatusBadRequest},
		{name: "bad amount", query: "?currency=USD&minorUnits=ten", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/currency/convert"+tt.query, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestHandler_GetAllRates(t *testing.T) {
	router := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/currency/rates", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"base_currency":"GBP"`)
	assert.Contains(t, w.Body.String(), `{"currency":"USD","rate":"0.8","decimal_places":2}`)
}
