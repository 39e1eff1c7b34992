package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/richyrich98/dotanddot/internal/geo"
	"github.com/richyrich98/dotanddot/internal/identity"
	"github.com/richyrich98/dotanddot/internal/migration"
	"github.com/richyrich98/dotanddot/internal/path"
	"github.com/richyrich98/dotanddot/internal/ratelimit"
	"github.com/richyrich98/dotanddot/internal/report"
	"github.com/richyrich98/dotanddot/pkg/logger"
)

type Handler struct {
	paths       *path.Service
	reports     *report.Service
	migrations  *migration.Service
	identities  *identity.Service
	rateLimiter ratelimit.RateLimiter
	logger      logger.Logger
}

func NewHandler(paths *path.Service, reports *report.Service, migrations *migration.Service, identities *identity.Service, rateLimiter ratelimit.RateLimiter, log logger.Logger) *Handler {
	return &Handler{
		paths:       paths,
		reports:     reports,
		migrations:  migrations,
		identities:  identities,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// POST /api/auth/session
func (h *Handler) CreateSession(c *gin.Context) {
	var req struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	session, err := h.identities.Create(c.Request.Context(), req.UserID, req.DisplayName)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(session))
}

// DELETE /api/auth/session
func (h *Handler) DeleteSession(c *gin.Context) {
	token := identity.TokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusNoContent, nil)
		return
	}

	if err := h.identities.Delete(c.Request.Context(), token); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// POST /api/paths/shared
func (h *Handler) SaveSharedPath(c *gin.Context) {
	var req struct {
		Coordinates  []geo.Point            `json:"coordinates" binding:"required"`
		UserLocation *geo.Point             `json:"user_location"`
		VertexData   map[string]interface{} `json:"vertex_data"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	allowed, err := h.rateLimiter.AllowSharedPathSave(c.Request.Context(), c.ClientIP())
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Rate limit exceeded", "RATE_LIMIT"))
		return
	}

	pathID, err := h.paths.SaveSharedPath(c.Request.Context(), req.Coordinates, req.UserLocation, req.VertexData)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{"path_id": pathID}))
}

// GET /api/paths/shared/:id
func (h *Handler) GetSharedPath(c *gin.Context) {
	shared, err := h.paths.GetSharedPath(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if shared == nil {
		c.JSON(http.StatusNotFound, ErrorResponse("Path not found", "NOT_FOUND"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(shared))
}

// POST /api/paths
func (h *Handler) SaveUserPath(c *gin.Context) {
	var req struct {
		Name         string                 `json:"name" binding:"required"`
		Description  string                 `json:"description"`
		Coordinates  []geo.Point            `json:"coordinates" binding:"required"`
		VertexData   map[string]interface{} `json:"vertex_data"`
		UserLocation *geo.Point             `json:"user_location"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	ident := identity.FromContext(c)
	id, err := h.paths.SaveUserPath(c.Request.Context(), ident, req.Name, req.Description, req.Coordinates, req.VertexData, req.UserLocation)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{"id": id}))
}

// GET /api/paths
func (h *Handler) ListUserPaths(c *gin.Context) {
	ident := identity.FromContext(c)

	paths, err := h.paths.ListUserPaths(c.Request.Context(), ident)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"count": len(paths),
		"paths": paths,
	}))
}

// PATCH /api/paths/:id
func (h *Handler) UpdateUserPath(c *gin.Context) {
	var req struct {
		Name        *string                 `json:"name"`
		Description *string                 `json:"description"`
		Coordinates *[]geo.Point            `json:"coordinates"`
		VertexData  *map[string]interface{} `json:"vertex_data"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	upd := &path.Update{
		Name:        req.Name,
		Description: req.Description,
		Coordinates: req.Coordinates,
		VertexData:  req.VertexData,
	}

	ident := identity.FromContext(c)
	if err := h.paths.UpdateUserPath(c.Request.Context(), ident, c.Param("id"), upd); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{"updated": true}))
}

// DELETE /api/paths/:id
func (h *Handler) DeleteUserPath(c *gin.Context) {
	ident := identity.FromContext(c)

	if err := h.paths.DeleteUserPath(c.Request.Context(), ident, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// POST /api/paths/:id/share
func (h *Handler) ShareUserPath(c *gin.Context) {
	ident := identity.FromContext(c)

	pathID, err := h.paths.ShareUserPath(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{"path_id": pathID}))
}

// POST /api/reports
func (h *Handler) SubmitReport(c *gin.Context) {
	var req struct {
		DefaultLocation   *geo.Point `json:"default_location" binding:"required"`
		CorrectedLocation *geo.Point `json:"corrected_location" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	allowed, err := h.rateLimiter.AllowReportSubmission(c.Request.Context(), c.ClientIP())
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Rate limit exceeded", "RATE_LIMIT"))
		return
	}

	// Reporter identity is best-effort; anonymous reports are accepted
	ident := identity.FromContext(c)

	id, err := h.reports.SubmitReport(c.Request.Context(), *req.DefaultLocation, *req.CorrectedLocation, ident)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(gin.H{"id": id}))
}

// GET /api/reports
func (h *Handler) ListReports(c *gin.Context) {
	reports, err := h.listReports(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"count":   len(reports),
		"reports": reports,
	}))
}

// GET /api/reports/stats
func (h *Handler) GetReportStats(c *gin.Context) {
	reports, err := h.listReports(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(report.ComputeStatistics(reports)))
}

func (h *Handler) listReports(c *gin.Context) ([]*report.LocationReport, error) {
	if cell := c.Query("cell"); cell != "" {
		return h.reports.ListReportsInCell(c.Request.Context(), cell)
	}
	return h.reports.ListAllReports(c.Request.Context())
}

// POST /api/migrate
func (h *Handler) RunMigration(c *gin.Context) {
	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	// A provider failure must abort migration, never downgrade to "no
	// identity": importing cached records unattributed would lose them.
	if err := identity.ErrorFromContext(c); err != nil {
		h.respondError(c, err)
		return
	}

	token := identity.TokenFromRequest(c)
	result, err := h.migrations.Run(c.Request.Context(), token, req.DeviceID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(result))
}

// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, ErrorResponse(err.Error(), code))
}
