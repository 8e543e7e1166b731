package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomworks/worldloom/backend/internal/shared/errs"
)

// statusFor maps a classified failure onto an HTTP status
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindInvalidState:
		return http.StatusConflict
	case errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindRateExceeded:
		return http.StatusTooManyRequests
	case errs.KindCatalogUnavailable:
		return http.StatusBadGateway
	case errs.KindLoad, errs.KindActivation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error": err.Error(),
		"kind":  string(errs.KindOf(err)),
	})
}
