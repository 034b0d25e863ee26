package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/matthieukhl/luxe/internal/auth"
	"github.com/matthieukhl/luxe/internal/shop"
)

const internalErrorMessage = "An unexpected error occurred."

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shop.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shop.ErrInvalidInput),
		errors.Is(err, shop.ErrStockExceeded),
		errors.Is(err, shop.ErrInsufficientStock),
		errors.Is(err, shop.ErrEmptyCart),
		errors.Is(err, shop.ErrNothingSelected),
		errors.Is(err, shop.ErrCheckoutValidation):
		return http.StatusBadRequest
	case errors.Is(err, shop.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, shop.ErrForbidden),
		errors.Is(err, shop.ErrAccountBanned),
		errors.Is(err, shop.ErrAccountDeactivated):
		return http.StatusForbidden
	case errors.Is(err, shop.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorBody(c *gin.Context, err error) (int, gin.H) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxRequestID),
			"error", err,
		)
		return status, messageBody(internalErrorMessage)
	}

	body := messageBody(err.Error())
	var verr *shop.ValidationError
	if errors.As(err, &verr) {
		body["violations"] = verr.Violations
	}
	if errors.Is(err, shop.ErrAccountBanned) {
		body["banned"] = true
	}
	return status, body
}

// messageBody carries the message under "detail", which clients read, and
// under "error" for older callers.
func messageBody(msg string) gin.H {
	return gin.H{"detail": msg, "error": msg}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, body := s.errorBody(c, err)
	c.JSON(status, body)
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status, body := s.errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the body into req and turns decoding or validation
// failures into an invalid input error naming the offending field.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return invalidRequest(err)
	}
	return nil
}

func invalidRequest(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fieldMessage(fe)
		}
		return &shop.Error{Kind: shop.ErrInvalidInput, Message: strings.Join(msgs, " ")}
	}
	return &shop.Error{Kind: shop.ErrInvalidInput, Message: "Malformed request body."}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s.", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL.", fe.Field())
	case "slug":
		return fmt.Sprintf("%s may only contain lowercase letters, numbers and hyphens.", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	registerOnce sync.Once
)

// registerValidators installs the custom rules on gin's validator and reports
// fields by their json names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})
}

func parseID(c *gin.Context, entity string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, shop.NotFound(entity)
	}
	return uint(id), nil
}
