package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fieldops/planner/internal/config"
	"github.com/fieldops/planner/internal/geocode"
	"github.com/fieldops/planner/internal/http/handlers"
	"github.com/fieldops/planner/internal/http/middleware"
	"github.com/fieldops/planner/internal/service"

	_ "github.com/fieldops/planner/docs"
)

func Router(cfg config.Config, store handlers.Store, planner *service.PlanningService, geocoder geocode.Geocoder, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:          store,
		Planner:        planner,
		Geocoder:       geocoder,
		Validator:      validator.New(),
		Logger:         logger,
		CountryDefault: cfg.CountryDefault,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/teams", h.TeamsList)
		api.GET("/teams/available", h.AvailableTeams)
		api.GET("/teams/:id/progress", h.TeamProgress)
		api.POST("/slots/search", h.SearchSlots)
		api.GET("/projects/:id/progress", h.ProjectProgress)
		api.POST("/locations/lookup", h.LookupLocation)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/installations/plan", h.PlanInstallation)
		admin.POST("/appointments/:id/assign", h.AssignAppointment)
		admin.POST("/appointments/:id/complete", h.CompleteAppointment)
		admin.PATCH("/projects/:id/materials/:materialId", h.ToggleMaterial)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
