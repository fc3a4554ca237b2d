package main

import (
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/roundup/internal/accounts"
	"github.com/richxcame/roundup/internal/currency"
	"github.com/richxcame/roundup/internal/roundup"
	"github.com/richxcame/roundup/pkg/common"
	"github.com/richxcame/roundup/pkg/config"
	"github.com/richxcame/roundup/pkg/middleware"
)

const maxRequestBodyBytes = 1 << 20

// handlers groups the HTTP surface mounted under /api/v1
type handlers struct {
	roundUps *roundup.Handler
	accounts *accounts.Handler
	currency *currency.Handler
}

func newRouter(cfg *config.Config, h handlers, checks map[string]func() error, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(extra...)
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(cfg.Server.ServiceName))
	router.Use(middleware.MaxBodySize(maxRequestBodyBytes))

	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, cfg.Tracing.Version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var authed, perAccount []gin.HandlerFunc
	if cfg.JWT.Enabled {
		auth := middleware.AuthMiddleware(cfg.JWT.Secret)
		authed = []gin.HandlerFunc{auth}
		perAccount = []gin.HandlerFunc{auth, middleware.RequireAccountAccess("accountId")}
	}

	api := router.Group("/api/v1")
	h.roundUps.RegisterRoutes(api, perAccount...)
	h.accounts.RegisterRoutes(api, authed...)
	h.currency.RegisterRoutes(api)

	return router
}

func corsConfig(origins string) cors.Config {
	c := cors.DefaultConfig()
	allowed := splitOrigins(origins)
	if slices.Contains(allowed, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = allowed
	}
	c.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	c.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	c.MaxAge = 12 * time.Hour
	return c
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = []string{"http://localhost:3000"}
	}
	return out
}
