package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/fieldops/planner/internal/geocode"
	"github.com/fieldops/planner/internal/models"
	"github.com/fieldops/planner/internal/service"
)

type Store interface {
	service.Store
	Ping(ctx context.Context) error
}

type Handler struct {
	Store          Store
	Planner        *service.PlanningService
	Geocoder       geocode.Geocoder
	Validator      *validator.Validate
	Logger         zerolog.Logger
	CountryDefault string
}

type assignRequest struct {
	TeamID string `json:"teamId" validate:"required"`
}

type toggleMaterialRequest struct {
	Phase models.MaterialPhase `json:"phase" validate:"required,oneof=loading installation"`
	Actor string               `json:"actor" validate:"required"`
}

type locationRequest struct {
	Location models.Location `json:"location"`
	Country  string          `json:"country"`
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List teams
// @Tags teams
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/teams [get]
func (h *Handler) TeamsList(c *gin.Context) {
	teams, err := h.Planner.Teams(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list teams", err.Error())
		return
	}
	if teams == nil {
		teams = []models.Team{}
	}
	c.JSON(http.StatusOK, gin.H{"items": teams})
}

// @Summary Search installation slots
// @Description Ranks every feasible team/slot pair over the planning horizon
// @Tags planning
// @Accept json
// @Produce json
// @Param installation body models.Installation true "Job request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/slots/search [post]
func (h *Handler) SearchSlots(c *gin.Context) {
	var job models.Installation
	if err := c.ShouldBindJSON(&job); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(job); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid installation", err.Error())
		return
	}

	candidates, err := h.Planner.SearchSlots(c.Request.Context(), job)
	if err != nil {
		h.writeServiceError(c, err, "Slot search failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": candidates, "count": len(candidates)})
}

// @Summary Teams available on a date
// @Tags planning
// @Produce json
// @Param date query string true "YYYY-MM-DD"
// @Param type query string true "Installation type"
// @Param duration query int false "Duration in minutes"
// @Success 200 {object} map[string]any
// @Router /api/teams/available [get]
func (h *Handler) AvailableTeams(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	jobType := strings.TrimSpace(c.Query("type"))
	if date == "" || jobType == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date and type are required", nil)
		return
	}
	job := models.Installation{Type: jobType}
	if raw := c.Query("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "duration must be an integer", nil)
			return
		}
		job.Duration = d
	}

	teams, err := h.Planner.AvailableTeams(c.Request.Context(), date, job)
	if err != nil {
		h.writeServiceError(c, err, "Availability lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": teams})
}

// @Summary Plan an installation
// @Description Splits the job into daily appointments and stores them
// @Tags planning
// @Accept json
// @Produce json
// @Param plan body service.PlanInput true "Plan request"
// @Success 201 {object} service.PlanResult
// @Failure 422 {object} map[string]any
// @Router /api/installations/plan [post]
func (h *Handler) PlanInstallation(c *gin.Context) {
	var in service.PlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(in); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid plan request", err.Error())
		return
	}
	if in.InstallationDate.IsZero() {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "installationDate is required", nil)
		return
	}

	result, err := h.Planner.PlanInstallation(c.Request.Context(), in)
	if err != nil {
		h.writeServiceError(c, err, "Planning failed")
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) AssignAppointment(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "teamId is required", err.Error())
		return
	}

	group, err := h.Planner.AssignGroup(c.Request.Context(), c.Param("id"), req.TeamID)
	if err != nil {
		h.writeServiceError(c, err, "Assignment failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": group})
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	group, err := h.Planner.CompleteGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "Completion failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": group})
}

func (h *Handler) ProjectProgress(c *gin.Context) {
	result, err := h.Planner.ProjectProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "Failed to compute progress")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ToggleMaterial(c *gin.Context) {
	var req toggleMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "phase and actor are required", err.Error())
		return
	}

	project, progress, err := h.Planner.ToggleMaterial(c.Request.Context(), c.Param("id"), c.Param("materialId"), req.Phase, req.Actor)
	if err != nil {
		h.writeServiceError(c, err, "Material update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": project.Materials, "progress": progress})
}

func (h *Handler) TeamProgress(c *gin.Context) {
	teamID := c.Param("id")
	progress, err := h.Planner.TeamProgress(c.Request.Context(), teamID)
	if err != nil {
		h.writeServiceError(c, err, "Failed to compute team progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"teamId": teamID, "progress": progress})
}

// @Summary Locate an installation site
// @Description Coordinates for map display; scheduling ignores them
// @Tags locations
// @Accept json
// @Produce json
// @Success 200 {object} geocode.Point
// @Router /api/locations/lookup [post]
func (h *Handler) LookupLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if h.Geocoder == nil {
		writeError(c, http.StatusServiceUnavailable, "GEOCODER_DISABLED", "Geocoder not configured", nil)
		return
	}
	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = h.CountryDefault
	}

	point, err := h.Geocoder.Locate(c.Request.Context(), req.Location, country)
	switch {
	case errors.Is(err, geocode.ErrEmptyLocation):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "postalCode or city is required", nil)
		return
	case errors.Is(err, geocode.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Location not found", nil)
		return
	case err != nil:
		h.Logger.Warn().Err(err).Msg("geocode failed")
		writeError(c, http.StatusBadGateway, "GEOCODER_ERROR", "Geocoder request failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, point)
}

func (h *Handler) writeServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrFridayStart):
		writeError(c, http.StatusUnprocessableEntity, "FRIDAY_START_NOT_ALLOWED", "Multi-day installations cannot start on a Friday", err.Error())
	case errors.Is(err, service.ErrInvalidSlot), errors.Is(err, service.ErrDuplicateScheduleDate):
		h.Logger.Error().Err(err).Msg("stored team schedule is invalid")
		writeError(c, http.StatusUnprocessableEntity, "INVALID_SCHEDULE", "A team schedule is invalid", err.Error())
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidClock),
		errors.Is(err, models.ErrInvalidMaterialStatus):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", message, err.Error())
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, service.ErrAppointmentNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		writeError(c, http.StatusInternalServerError, "DB_ERROR", message, err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
