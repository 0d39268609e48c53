package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/piriven/piriven_backend/internal/apperr"
	"github.com/piriven/piriven_backend/internal/logger"
)

var errNotFound = apperr.With(apperr.ErrNotFound, "Not found.")

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// validEmail applies the binding engine's email rule to s.
func validEmail(s string) bool {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	return !ok || v.Var(s, "email") == nil
}

// respondError writes err as a REST error body. Unexpected errors are logged
// and reported without detail.
func respondError(c *gin.Context, err error) {
	var fe apperr.FieldErrors
	if errors.As(err, &fe) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": fe})
		return
	}
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": apperr.Detail(err)})
}

// bindJSON decodes the request body into dst and runs binding validation.
// An empty body is validated as an empty object.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(dst)
	}
	if err == nil {
		return nil
	}
	return bindingError(err)
}

func bindingError(err error) error {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		fe := apperr.FieldErrors{}
		for _, v := range verrs {
			fe.Add(v.Field(), validationMessage(v))
		}
		return fe
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "non_field_errors"
		}
		return apperr.Field(field, "Incorrect type.")
	case errors.As(err, &synErr):
		return apperr.Wrap(apperr.ErrBadRequest, err, "JSON parse error - %s", synErr.Error())
	default:
		return apperr.Wrap(apperr.ErrBadRequest, err, "%s", err.Error())
	}
}

func validationMessage(v validator.FieldError) string {
	numeric := false
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}
	switch v.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "max":
		if numeric {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", v.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", v.Param())
	case "min":
		if numeric {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", v.Param())
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", v.Param())
	default:
		return "Invalid value."
	}
}

// parseID reads a positive numeric path parameter. Anything else is a 404,
// matching how unknown detail routes respond.
func parseID(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || n == 0 {
		return 0, errNotFound
	}
	return uint(n), nil
}

func parseBool(raw string) (bool, bool) {
	switch strings.TrimSpace(raw) {
	case "true", "True", "1":
		return true, true
	case "false", "False", "0":
		return false, true
	}
	return false, false
}
