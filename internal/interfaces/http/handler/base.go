package handler

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/estudiomd/backoffice/internal/infrastructure/auth"
	"github.com/estudiomd/backoffice/internal/infrastructure/logger"
	"github.com/estudiomd/backoffice/internal/interfaces/http/dto"
	"github.com/estudiomd/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// currentUser returns the authenticated user and whether it is an admin
func currentUser(c *gin.Context) (uuid.UUID, bool, error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return uuid.Nil, false, shared.ErrUnauthorized
	}
	id, err := claims.UserUUID()
	if err != nil {
		return uuid.Nil, false, shared.ErrUnauthorized
	}
	return id, claims.IsAdmin(), nil
}

func currentClaims(c *gin.Context) (*auth.Claims, error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return nil, shared.ErrUnauthorized
	}
	return claims, nil
}

// pathUUID parses a UUID path parameter. Malformed ids are reported as not
// found, the same as ids that do not exist.
func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, shared.ErrNotFound
	}
	return id, nil
}

// yearQuery reads the year query parameter, defaulting to the current year
func yearQuery(c *gin.Context) (int, error) {
	raw := c.Query("year")
	if raw == "" {
		return time.Now().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.NewFieldError("year", "A valid integer is required.")
	}
	if err := valueobject.ValidateFiscalYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

// selfURL rebuilds the absolute URL of the current request
func selfURL(c *gin.Context) *url.URL {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	u := *c.Request.URL
	u.Scheme = scheme
	u.Host = c.Request.Host
	return &u
}

// Success sends a 200 response with data as the body
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// respondList sends one page in the list envelope with absolute page links
func respondList[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewListResponse(page, selfURL(c)))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindJSON binds and validates a JSON body. On failure it writes the 400 (or
// 413) response and returns false.
func (h *BaseHandler) BindJSON(c *gin.Context, dst any) bool {
	return h.bind(c, c.ShouldBindJSON(dst))
}

// BindQuery binds and validates query parameters
func (h *BaseHandler) BindQuery(c *gin.Context, dst any) bool {
	return h.bind(c, c.ShouldBindQuery(dst))
}

func (h *BaseHandler) bind(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
		return false
	}
	middleware.HandleValidationError(c, err)
	return false
}

// HandleError converts service errors to HTTP responses. Validation and
// domain errors map through their code; anything else is logged and answered
// with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		code := dto.NormalizeErrorCode(validationErr.Code)
		message := "Request validation failed"
		if code != dto.ErrCodeValidation {
			message = firstMessage(validationErr.Fields)
		}
		c.JSON(dto.DomainErrorStatus(code), dto.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Fields:    validationErr.Fields,
		})
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.DomainErrorStatus(code), dto.NewErrorResponse(code, domainErr.Message, requestID))
		return
	}

	logger.FromContext(c.Request.Context()).Error("Unhandled request error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}

func firstMessage(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fields[k]) > 0 {
			return fields[k][0]
		}
	}
	return "Request validation failed"
}

// truthy reads boolean query flags such as ?refresh=true
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}
