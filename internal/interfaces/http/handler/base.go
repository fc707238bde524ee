package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/interfaces/http/dto"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statusClientClosedRequest is the nginx convention for a request abandoned by the client
const statusClientClosedRequest = 499

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, dto.NewSuccessResponse(data))
}

func respondPage(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// abort writes the error envelope, stamped with the request ID.
func abort(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

func unauthenticated(c *gin.Context) {
	abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
}

func invalid(c *gin.Context, details ...dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed", middleware.GetRequestID(c), details))
}

// currentActor returns the authenticated caller. Routes behind JWTAuth always
// have one, so the 401 only fires for a handler mounted outside that group.
func currentActor(c *gin.Context) (shared.AuthContext, bool) {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		unauthenticated(c)
	}
	return actor, ok
}

// pathID parses a uuid path parameter and answers 400 when it is malformed.
func pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		invalid(c, dto.ValidationDetail{Field: param, Message: "Invalid UUID format", Tag: "uuid", Value: raw})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.HandleBindingError(c, err)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		middleware.HandleBindingError(c, err)
		return false
	}
	return true
}

// fail maps err onto the error envelope. Domain errors keep their message;
// anything else is logged and reported as a bare 500 so storage details
// never reach the client.
func fail(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	switch {
	case err == nil:
		return
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("request failed", zap.String("code", domainErr.Code), zap.Error(err))
		}
		resp := dto.NewErrorResponseWithRequestID(code, domainErr.Message, middleware.GetRequestID(c))
		resp.Error.Details = dto.DomainValidationDetails(domainErr.Code, domainErr.Message)
		c.JSON(status, resp)
	case errors.Is(err, context.DeadlineExceeded):
		logger.GetGinLogger(c).Warn("request timed out", zap.Error(err))
		abort(c, http.StatusGatewayTimeout, dto.ErrCodeTimeout, "Request timed out")
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the body
		c.Status(statusClientClosedRequest)
	default:
		logger.GetGinLogger(c).Error("request failed", zap.Error(err))
		abort(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}
