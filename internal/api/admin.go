package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"shop-service/internal/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// adminMiddleware requires the configured admin token. With no token
// configured the admin surface is closed.
func (h *Handler) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AdminTokenHeader)
		if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			h.logger.Warn("Rejected admin request", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Admin token required",
			})
			return
		}
		c.Next()
	}
}

// updateProduct applies an admin product edit
func (h *Handler) updateProduct(c *gin.Context) {
	var req catalog.ProductUpdate
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.shop.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// resetCatalog restores the seed catalog and empties every cart
func (h *Handler) resetCatalog(c *gin.Context) {
	if err := h.shop.ResetCatalog(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *Handler) clearReviews(c *gin.Context) {
	if err := h.reviews.Clear(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteReview(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid review index",
		})
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), c.Param("id"), index); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
