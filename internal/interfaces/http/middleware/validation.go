package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Request ID keys
const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// SetupValidator configures the validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerValidations(v)
	}
}

func registerValidations(v *validator.Validate) {
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	// decimals are validated through their canonical string
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gte0", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		d, err := decimal.NewFromString(s)
		return err == nil && !d.IsNegative()
	})

	_ = v.RegisterValidation("pdt_type", func(fl validator.FieldLevel) bool {
		t := operational.PDTType(fl.Field().String())
		return t.IsValidMonthly() || t.IsValidAdditional()
	})
}

// FormatValidationErrors turns binding errors into field-keyed messages
func FormatValidationErrors(err error) map[string][]string {
	fields := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}
	for _, e := range verrs {
		fields[e.Field()] = append(fields[e.Field()], validationMessage(e))
	}
	return fields
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	requestID := getRequestIDFromContext(c)
	fields := FormatValidationErrors(err)
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Malformed request body", requestID))
		return
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, fields))
}

// getRequestIDFromContext returns the id set by RequestID, falling back to
// the inbound header for routes mounted outside that middleware
func getRequestIDFromContext(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

// validationMessages maps a validator tag to its message. %s is the tag
// parameter; tags whose message depends on the field kind have a "/string"
// variant.
var validationMessages = map[string]string{
	"required":     "This field is required",
	"email":        "Invalid email format",
	"uuid":         "Invalid UUID format",
	"min":          "Must be at least %s",
	"min/string":   "Must be at least %s characters",
	"max":          "Must be at most %s",
	"max/string":   "Must be at most %s characters",
	"len":          "Must be exactly %s characters",
	"oneof":        "Must be one of: %s",
	"gte":          "Must be greater than or equal to %s",
	"lte":          "Must be less than or equal to %s",
	"gt":           "Must be greater than %s",
	"lt":           "Must be less than %s",
	"decimal_gte0": "Must be zero or a positive amount",
	"pdt_type":     "Unknown PDT type",
}

func validationMessage(e validator.FieldError) string {
	msg, ok := "", false
	if e.Kind() == reflect.String {
		msg, ok = validationMessages[e.Tag()+"/string"]
	}
	if !ok {
		msg, ok = validationMessages[e.Tag()]
	}
	if !ok {
		return "Invalid value"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, e.Param())
	}
	return msg
}
