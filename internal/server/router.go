package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azamatb/objbrowse/internal/backend"
	"github.com/azamatb/objbrowse/internal/browser"
	"github.com/azamatb/objbrowse/internal/config"
	"github.com/azamatb/objbrowse/internal/history"
	"github.com/azamatb/objbrowse/internal/metrics"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Backend  backend.Client
	Sessions *browser.Manager
	History  *history.Repository
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.Sessions != nil {
		browser.RegisterRoutes(api, deps.Sessions)
	}
	if deps.History != nil {
		history.RegisterRoutes(api, deps.History)
	}

	return router
}
