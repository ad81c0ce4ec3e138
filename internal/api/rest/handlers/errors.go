package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/knowtix/billing-service/pkg/res"
)

// statusFor maps the domain error taxonomy onto an HTTP status and the
// message shown to the client. Upstream and configuration failures get a
// generic message; the cause is only logged.
func statusFor(err error) (int, string) {
	var (
		verr *domain.ValidationError
		nerr *domain.NotFoundError
	)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, "Invalid signature"
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.As(err, &nerr):
		return http.StatusNotFound, nerr.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrPaymentRequired):
		return http.StatusPaymentRequired, "Subscription required"
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict, "Already exists"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func respondError(c *gin.Context, err error, log *logger.Logger) {
	status, msg := statusFor(err)
	res.JsonErrorResponse(c.Writer, res.ErrorResponse{Error: msg}, status, err, log)
	c.Abort()
}

func respondMessage(c *gin.Context, status int, msg string, cause error, log *logger.Logger) {
	res.JsonErrorResponse(c.Writer, res.ErrorResponse{Error: msg}, status, cause, log)
	c.Abort()
}
