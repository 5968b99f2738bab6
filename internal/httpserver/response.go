package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/payment"
	usersvc "storefront/internal/service/user"
	"storefront/internal/storage"
)

const (
	msgUnauthorized = "UnAuthorized User"
	msgAdminOnly    = "admin only"
)

// respond writes the success envelope merged with payload.
func respond(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "error": message})
}

// writeError maps service errors onto the envelope. Anything unrecognised is
// logged and reported with fallback.
func writeError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	var (
		validation *domain.ValidationError
		stock      *domain.InsufficientStockError
		notFound   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &stock):
		fail(c, http.StatusBadRequest, stock.Error())
	case errors.As(err, &validation):
		fail(c, http.StatusBadRequest, validation.Message)
	case errors.As(err, &notFound):
		fail(c, http.StatusNotFound, notFound.Message)
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		fail(c, http.StatusBadRequest, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		fail(c, http.StatusBadRequest, "invalid input")
	case errors.Is(err, usersvc.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, usersvc.ErrInvalidToken), errors.Is(err, domain.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		fail(c, http.StatusUnauthorized, msgAdminOnly)
	case errors.Is(err, storage.ErrNotConfigured), errors.Is(err, payment.ErrNotConfigured):
		fail(c, http.StatusInternalServerError, err.Error())
	default:
		logging.OrNop(logger).Error(fallback,
			zap.String("request_id", logging.RequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		fail(c, http.StatusInternalServerError, fallback)
	}
}
