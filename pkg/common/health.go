package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	healthHealthy   = "healthy"
	healthUnhealthy = "unhealthy"
)

// HealthResponse is the /healthz body
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthCheckWithDeps answers 200 while every dependency check passes and 503 as soon
// as one fails. Each failing check carries its error in the body.
func HealthCheckWithDeps(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := HealthResponse{
			Status:  healthHealthy,
			Service: serviceName,
			Version: version,
			Checks:  make(map[string]string, len(checks)),
		}
		for name, check := range checks {
			if err := check(); err != nil {
				resp.Checks[name] = healthUnhealthy + ": " + err.Error()
				resp.Status = healthUnhealthy
				continue
			}
			resp.Checks[name] = healthHealthy
		}

		code := http.StatusOK
		if resp.Status != healthHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}
