package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"greendrake/productenquiry/internal/auth"
	"greendrake/productenquiry/internal/config"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/services"
	"greendrake/productenquiry/internal/storage"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	topProductsN   = 10
)

// UserFinder looks up accounts for admin login.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// SettingsStore reads and writes the plugin settings.
type SettingsStore interface {
	GetSettings(ctx context.Context) models.Settings
	SaveSettings(ctx context.Context, settings models.Settings) error
}

// RestAdminHandler serves the store owner's enquiry dashboard.
type RestAdminHandler struct {
	cfg       *config.Config
	users     UserFinder
	enquiries services.IEnquiryService
	settings  SettingsStore
	exports   services.IExportService
}

func NewRestAdminHandler(
	cfg *config.Config,
	users UserFinder,
	enquiries services.IEnquiryService,
	settings SettingsStore,
	exports services.IExportService,
) *RestAdminHandler {
	return &RestAdminHandler{
		cfg:       cfg,
		users:     users,
		enquiries: enquiries,
		settings:  settings,
		exports:   exports,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/admin/login
func (h *RestAdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.users.FindUserByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if user == nil || !user.IsAdmin || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, true, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		log.Printf("ERROR: Issuing admin token for %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(h.cfg.JwtTTL.Seconds())})
}

// ListEnquiries handles GET /v1/admin/enquiries
func (h *RestAdminHandler) ListEnquiries(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage <= 0 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	records, total, err := h.enquiries.List(c.Request.Context(), page, perPage)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve enquiries"})
		return
	}
	if records == nil {
		records = []models.EnquiryRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"enquiries": records,
		"total":     total,
		"page":      page,
		"per_page":  perPage,
	})
}

// GetEnquiry handles GET /v1/admin/enquiries/:id
func (h *RestAdminHandler) GetEnquiry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid enquiry ID"})
		return
	}

	record, err := h.enquiries.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrEnquiryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Enquiry not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve enquiry"})
		}
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetStats handles GET /v1/admin/stats
func (h *RestAdminHandler) GetStats(c *gin.Context) {
	stats, err := h.enquiries.Stats(c.Request.Context(), time.Now(), topProductsN)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSettings handles GET /v1/admin/settings
func (h *RestAdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.GetSettings(c.Request.Context()))
}

// UpdateSettings handles PUT /v1/admin/settings. Fields left out of the body keep their current value.
func (h *RestAdminHandler) UpdateSettings(c *gin.Context) {
	settings := h.settings.GetSettings(c.Request.Context())
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings payload"})
		return
	}
	if err := h.settings.SaveSettings(c.Request.Context(), settings); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

type exportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ExportEnquiries handles POST /v1/admin/enquiries/export. Bounds are optional RFC 3339 timestamps.
func (h *RestAdminHandler) ExportEnquiries(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid export payload"})
			return
		}
	}
	from, err := parseBound(req.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp"})
		return
	}
	to, err := parseBound(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp"})
		return
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be before 'to'"})
		return
	}

	result, err := h.exports.Export(c.Request.Context(), from, to)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, services.ErrNothingToExport):
		c.JSON(http.StatusNotFound, gin.H{"error": "No enquiries in the requested range"})
	case errors.Is(err, storage.ErrStorageNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export storage is not configured"})
	default:
		_ = c.Error(err)
		log.Printf("ERROR: Exporting enquiries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export enquiries"})
	}
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
