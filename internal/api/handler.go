package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"listing-sync/internal/models"
	"listing-sync/internal/service"
	"listing-sync/internal/store"
	"listing-sync/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		logger:     util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/profiles", h.getProfiles)
		v1.DELETE("/profiles", h.clearAll)
		v1.GET("/profiles/:username", h.getProfile)
		v1.DELETE("/profiles/:username", h.deleteProfile)
		v1.GET("/profiles/:username/products", h.getProducts)
		v1.POST("/profiles/:username/listings", h.saveListings)
		v1.GET("/profiles/:username/listings/:id/exists", h.listingExists)
		v1.GET("/profiles/:username/listings/:id/details/exists", h.detailsExist)
		v1.POST("/profiles/:username/details", h.saveDetail)
		v1.POST("/profiles/:username/mark-removed", h.markMissingAsRemoved)
		v1.POST("/profiles/:username/products/:id/export", h.exportProduct)
		v1.POST("/profiles/:username/export", h.exportProducts)

		v1.GET("/settings/catalog", h.getCatalogSettings)
		v1.PUT("/settings/catalog", h.saveCatalogSettings)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) dispatch(c *gin.Context, req Request) (interface{}, bool) {
	result, err := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(status, gin.H{
			"error":   http.StatusText(status),
			"details": err.Error(),
		})
		return nil, false
	}
	return result, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrProfileNotFound), errors.Is(err, store.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrExportInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		invalidBody(c, err)
		return false
	}
	return true
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// getProfiles returns every profile, or only their summaries with ?view=summary
func (h *Handler) getProfiles(c *gin.Context) {
	result, ok := h.dispatch(c, GetProfiles{})
	if !ok {
		return
	}
	profiles := result.([]*models.SellerProfile)

	if c.Query("view") == "summary" {
		summaries := make([]models.ProfileSummary, 0, len(profiles))
		for _, p := range profiles {
			summaries = append(summaries, p.Summary())
		}
		c.JSON(http.StatusOK, gin.H{"profiles": summaries})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

func (h *Handler) getProfile(c *gin.Context) {
	if result, ok := h.dispatch(c, GetProfile{Username: c.Param("username")}); ok {
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) getProducts(c *gin.Context) {
	if result, ok := h.dispatch(c, GetProducts{Username: c.Param("username")}); ok {
		c.JSON(http.StatusOK, gin.H{"products": result})
	}
}

func (h *Handler) listingExists(c *gin.Context) {
	req := ListingExists{Username: c.Param("username"), ListingID: c.Param("id")}
	if result, ok := h.dispatch(c, req); ok {
		c.JSON(http.StatusOK, gin.H{"exists": result})
	}
}

func (h *Handler) detailsExist(c *gin.Context) {
	req := DetailsExist{Username: c.Param("username"), ListingID: c.Param("id")}
	if result, ok := h.dispatch(c, req); ok {
		c.JSON(http.StatusOK, gin.H{"exists": result})
	}
}

type saveListingsBody struct {
	DisplayName string           `json:"displayName"`
	Listings    []models.Listing `json:"listings"`
	FullPass    bool             `json:"fullPass"`
}

func (h *Handler) saveListings(c *gin.Context) {
	var body saveListingsBody
	if !bindJSON(c, &body) {
		return
	}

	req := SaveListings{
		Username:    c.Param("username"),
		DisplayName: body.DisplayName,
		Listings:    body.Listings,
		FullPass:    body.FullPass,
	}
	if result, ok := h.dispatch(c, req); ok {
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) saveDetail(c *gin.Context) {
	var detail models.Detail
	if !bindJSON(c, &detail) {
		return
	}

	result, ok := h.dispatch(c, SaveDetail{Username: c.Param("username"), Detail: detail})
	if !ok {
		return
	}
	status := http.StatusOK
	if result.(bool) {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"saved": result})
}

type markRemovedBody struct {
	CurrentIDs []string `json:"currentIds"`
}

func (h *Handler) markMissingAsRemoved(c *gin.Context) {
	var body markRemovedBody
	if !bindJSON(c, &body) {
		return
	}

	req := MarkMissingAsRemoved{Username: c.Param("username"), CurrentIDs: body.CurrentIDs}
	if result, ok := h.dispatch(c, req); ok {
		c.JSON(http.StatusOK, gin.H{"removed": result})
	}
}

type exportBody struct {
	ListingIDs []string `json:"listingIds"`
	Overwrite  *bool    `json:"overwrite"`
}

// readExportBody accepts an empty body, including a chunked one
func readExportBody(c *gin.Context) (exportBody, bool) {
	var body exportBody
	if c.Request.ContentLength == 0 {
		return body, true
	}
	err := c.ShouldBindJSON(&body)
	if err == nil || errors.Is(err, io.EOF) {
		return body, true
	}
	invalidBody(c, err)
	return body, false
}

func (h *Handler) exportProduct(c *gin.Context) {
	body, ok := readExportBody(c)
	if !ok {
		return
	}

	req := ExportProduct{
		Username:  c.Param("username"),
		ListingID: c.Param("id"),
		Overwrite: body.Overwrite,
	}
	if result, ok := h.dispatch(c, req); ok {
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) exportProducts(c *gin.Context) {
	body, ok := readExportBody(c)
	if !ok {
		return
	}

	req := ExportProducts{
		Username:   c.Param("username"),
		ListingIDs: body.ListingIDs,
		Overwrite:  body.Overwrite,
	}
	if result, ok := h.dispatch(c, req); ok {
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) deleteProfile(c *gin.Context) {
	if _, ok := h.dispatch(c, DeleteProfile{Username: c.Param("username")}); ok {
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) clearAll(c *gin.Context) {
	if _, ok := h.dispatch(c, ClearAll{}); ok {
		c.Status(http.StatusNoContent)
	}
}

// getCatalogSettings never returns the API key, only whether one is set
func (h *Handler) getCatalogSettings(c *gin.Context) {
	if result, ok := h.dispatch(c, GetCatalogSettings{}); ok {
		c.JSON(http.StatusOK, result.(models.CatalogSettings).View())
	}
}

func (h *Handler) saveCatalogSettings(c *gin.Context) {
	var settings models.CatalogSettings
	if !bindJSON(c, &settings) {
		return
	}
	if _, ok := h.dispatch(c, SaveCatalogSettings{Settings: settings}); ok {
		c.Status(http.StatusNoContent)
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
