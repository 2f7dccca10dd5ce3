package api

import (
	"errors"
	"net/http"

	"shop-service/internal/apperr"
	"shop-service/internal/bundle"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps domain errors to HTTP responses
func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorBody(err))
}

// writeBundle answers a workflow step. Rejected steps still carry the
// unchanged workflow view.
func writeBundle(c *gin.Context, snap bundle.Snapshot, err error) {
	if err == nil {
		c.JSON(http.StatusOK, snap)
		return
	}

	body := errorBody(err)
	body["bundle"] = snap
	c.JSON(statusFor(err), body)
}

func statusFor(err error) int {
	var ve *apperr.ValidationError
	var sc *apperr.StockConflictError

	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &sc),
		errors.Is(err, apperr.ErrBundleFull),
		errors.Is(err, apperr.ErrBundleIncomplete),
		errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	var ve *apperr.ValidationError
	var sc *apperr.StockConflictError

	switch {
	case errors.As(err, &ve):
		return gin.H{"error": "Invalid input", "field": ve.Field, "details": ve.Message}
	case errors.As(err, &sc):
		return gin.H{
			"error":      "Not enough stock",
			"product_id": sc.ProductID,
			"requested":  sc.Requested,
			"available":  sc.Available,
		}
	case errors.Is(err, apperr.ErrBundleFull),
		errors.Is(err, apperr.ErrBundleIncomplete),
		errors.Is(err, apperr.ErrInvalidTransition):
		return gin.H{"error": "Bundle workflow rejected the request", "details": err.Error()}
	case errors.Is(err, apperr.ErrNotFound):
		return gin.H{"error": "Not found", "details": err.Error()}
	default:
		util.GetLogger().Error("Request failed", zap.Error(err))
		return gin.H{"error": "Internal error"}
	}
}
