package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/franciscosanchezn/gin-user-api/internal/middleware"
	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"github.com/franciscosanchezn/gin-user-api/internal/policy"
	"github.com/franciscosanchezn/gin-user-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
}

// SetLogLevel adjusts the level of the controllers logger
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// bindJSON binds the JSON body into out and answers 400 naming the offending field
// when it is malformed or fails validation. The body may already have been read by
// the token resolver, so it is bound through the cached copy. An empty body binds
// as an empty object
func bindJSON(c *gin.Context, out interface{}) bool {
	err := c.ShouldBindBodyWith(out, binding.JSON)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(out)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, parseBindError(err, out))
		return false
	}
	return true
}

func parseBindError(err error, out interface{}) models.APIError {
	rootType := baseStructType(out)

	// validator errors (struct bind tags)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldError := validationErrors[0]
		field := jsonFieldName(rootType, fieldError.StructField())
		apiErr := models.NewParamError(models.ErrValidationFailed, field,
			fmt.Sprintf("%s %s", field, validationMessage(fieldError.Tag(), fieldError.Param())))
		apiErr.Details = map[string]interface{}{"rule": fieldError.Tag()}
		return apiErr
	}

	// in the event of a type mismatch
	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)
		return models.NewParamError(models.ErrValidationFailed, field,
			fmt.Sprintf("%s must be of type %s", field, typeError.Type.String()))
	}

	// in the event of bad json
	var syntaxError *json.SyntaxError
	if errors.As(err, &syntaxError) {
		return models.NewAPIError(models.ErrBadRequest, "Invalid JSON syntax")
	}

	return models.NewAPIError(models.ErrBadRequest, "Invalid request body")
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		return t
	}
	return nil
}

// jsonFieldName maps a Go field name to the name clients use for it
func jsonFieldName(rootType reflect.Type, fieldName string) string {
	if rootType == nil {
		return fieldName
	}
	sf, ok := rootType.FieldByName(fieldName)
	if !ok {
		return fieldName
	}
	tag := sf.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters long"
	case "max":
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}

// respondParamError answers 400 for a request field that failed a check outside the validator
func respondParamError(c *gin.Context, param, message string) {
	c.JSON(http.StatusBadRequest, models.NewParamError(models.ErrValidationFailed, param, message))
}

// respondError maps service and policy errors onto the API error responses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, policy.ErrUnauthorized):
		middleware.AbortUnauthorized(c)
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrUserNotFound, "User not found"))
	case errors.Is(err, services.ErrClientNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrClientMissing, "Client not found"))
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, models.NewParamError(models.ErrEmailTaken, "email", "Email already registered"))
	case errors.Is(err, models.ErrPasswordLength):
		respondParamError(c, "password", models.ErrPasswordLength.Error())
	case errors.Is(err, services.ErrInvalidSort):
		respondParamError(c, "sort", "sort must be one of name, email, createdAt, optionally prefixed with -")
	default:
		log.WithFields(logrus.Fields{
			"error":      err.Error(),
			"request_id": c.GetString(middleware.CtxRequestID),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Internal server error"))
	}
}
