package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shop-service/internal/bundle"
	"shop-service/internal/cart"
	"shop-service/internal/service"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	DefaultSessionHeader = "X-Session-ID"
	AdminTokenHeader     = "X-Admin-Token"
	IdempotencyKeyHeader = "Idempotency-Key"

	sessionKey       = "session_id"
	maxSessionLength = 128
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface
type Options struct {
	AdminToken    string
	SessionHeader string
	Checks        map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	shop          *service.ShopService
	notifications *service.NotificationService
	reviews       *service.ReviewService
	newsletter    *service.NewsletterService
	adminToken    string
	sessionHeader string
	checks        map[string]Pinger
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	shop *service.ShopService,
	notifications *service.NotificationService,
	reviews *service.ReviewService,
	newsletter *service.NewsletterService,
	opts Options,
) *Handler {
	header := opts.SessionHeader
	if header == "" {
		header = DefaultSessionHeader
	}

	return &Handler{
		shop:          shop,
		notifications: notifications,
		reviews:       reviews,
		newsletter:    newsletter,
		adminToken:    opts.AdminToken,
		sessionHeader: header,
		checks:        opts.Checks,
		logger:        util.GetLogger(),
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
	v1.Use(h.sessionMiddleware())
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id/availability", h.getAvailability)

		v1.GET("/products/:id/notify", h.getNotify)
		v1.PUT("/products/:id/notify", h.subscribeNotify)
		v1.DELETE("/products/:id/notify", h.unsubscribeNotify)

		v1.GET("/products/:id/reviews", h.listReviews)
		v1.POST("/products/:id/reviews", h.addReview)

		v1.POST("/newsletter", h.subscribeNewsletter)

		v1.GET("/cart", h.getCart)
		v1.DELETE("/cart", h.clearCart)
		v1.POST("/cart/singles", h.addSingle)
		v1.PUT("/cart/singles/:id", h.setSingleQuantity)
		v1.DELETE("/cart/bundles/:id", h.removeBundle)
		v1.POST("/cart/gift-certificates", h.addGiftCertificate)
		v1.DELETE("/cart/gift-certificates/:id", h.removeGiftCertificate)

		v1.GET("/bundle", h.getBundle)
		v1.POST("/bundle/size", h.chooseBundleSize)
		v1.POST("/bundle/compose", h.bundleStep(h.shop.ComposeBundle))
		v1.POST("/bundle/items/:id/increment", h.bundleItemStep(h.shop.IncrementBundleItem))
		v1.POST("/bundle/items/:id/decrement", h.bundleItemStep(h.shop.DecrementBundleItem))
		v1.POST("/bundle/reset", h.bundleStep(h.shop.ResetBundle))
		v1.POST("/bundle/back", h.bundleStep(h.shop.BackBundle))
		v1.POST("/bundle/abandon", h.bundleStep(h.shop.AbandonBundle))
		v1.POST("/bundle/commit", h.commitBundle)
	}

	admin := v1.Group("/admin")
	admin.Use(h.adminMiddleware())
	{
		admin.PUT("/products/:id", h.updateProduct)
		admin.POST("/reset", h.resetCatalog)
		admin.DELETE("/products/:id/reviews", h.clearReviews)
		admin.DELETE("/products/:id/reviews/:index", h.deleteReview)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not ready",
			"failures": failures,
			"time":     time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// sessionMiddleware resolves the shopper session and echoes it back
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(h.sessionHeader)
		if len(sessionID) > maxSessionLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Invalid session ID",
			})
			return
		}
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		c.Set(sessionKey, sessionID)
		c.Header(h.sessionHeader, sessionID)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// listProducts returns the catalog with availability for the session
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.shop.Products(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getAvailability(c *gin.Context) {
	avail, err := h.shop.Availability(c.Request.Context(), sessionID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func (h *Handler) getCart(c *gin.Context) {
	snap, err := h.shop.Cart(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) clearCart(c *gin.Context) {
	snap, err := h.shop.ClearCart(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type addSingleRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// addSingle handles adding units of a product to the cart
func (h *Handler) addSingle(c *gin.Context) {
	var req addSingleRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, err := h.shop.AddSingle(c.Request.Context(), sessionID(c), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) setSingleQuantity(c *gin.Context) {
	var req setQuantityRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, err := h.shop.SetSingleQuantity(c.Request.Context(), sessionID(c), c.Param("id"), *req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) removeBundle(c *gin.Context) {
	snap, err := h.shop.RemoveBundle(c.Request.Context(), sessionID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) addGiftCertificate(c *gin.Context) {
	var req cart.GiftCertificateInput
	if !bindJSON(c, &req) {
		return
	}

	snap, err := h.shop.AddGiftCertificate(c.Request.Context(), sessionID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *Handler) removeGiftCertificate(c *gin.Context) {
	snap, err := h.shop.RemoveGiftCertificate(c.Request.Context(), sessionID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) getBundle(c *gin.Context) {
	snap, err := h.shop.Bundle(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type sizeRequest struct {
	Size int `json:"size" binding:"required"`
}

func (h *Handler) chooseBundleSize(c *gin.Context) {
	var req sizeRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, err := h.shop.ChooseBundleSize(c.Request.Context(), sessionID(c), req.Size)
	writeBundle(c, snap, err)
}

// bundleStep adapts a workflow operation without arguments
func (h *Handler) bundleStep(step func(context.Context, string) (bundle.Snapshot, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := step(c.Request.Context(), sessionID(c))
		writeBundle(c, snap, err)
	}
}

// bundleItemStep adapts a workflow operation on one product
func (h *Handler) bundleItemStep(step func(context.Context, string, string) (bundle.Snapshot, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := step(c.Request.Context(), sessionID(c), c.Param("id"))
		writeBundle(c, snap, err)
	}
}

// commitBundle moves the finished selection into the cart
func (h *Handler) commitBundle(c *gin.Context) {
	ctx := c.Request.Context()
	sid := sessionID(c)

	committed, err := h.shop.CommitBundle(ctx, sid, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		writeError(c, err)
		return
	}

	snap, err := h.shop.Cart(ctx, sid)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"bundle": committed,
		"cart":   snap,
	})
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *Handler) getNotify(c *gin.Context) {
	email, ok, err := h.notifications.Subscriber(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": c.Param("id"),
		"subscribed": ok,
		"email":      email,
	})
}

func (h *Handler) subscribeNotify(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}

	email, err := h.notifications.Subscribe(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": c.Param("id"),
		"subscribed": true,
		"email":      email,
	})
}

func (h *Handler) unsubscribeNotify(c *gin.Context) {
	if err := h.notifications.Unsubscribe(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listReviews(c *gin.Context) {
	reviews, summary, err := h.reviews.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"summary": summary,
	})
}

func (h *Handler) addReview(c *gin.Context) {
	var req service.ReviewInput
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) subscribeNewsletter(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}

	added, err := h.newsletter.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"subscribed": true, "added": added})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
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
