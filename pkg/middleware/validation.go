package middleware

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/pick-ticket-service/pkg/errors"
)

var validateOnce sync.Once

var customValidations = map[string]validator.Func{
	"not_blank":      validateNotBlank,
	"date_key":       validateDateKey,
	"order_kind":     validateOrderKind,
	"batch_strategy": validateBatchStrategy,
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func register(v *validator.Validate) {
	for tag, fn := range customValidations {
		_ = v.RegisterValidation(tag, fn)
	}
	v.RegisterTagNameFunc(jsonTagName)
}

// InitValidator registers the custom tags and JSON field naming on gin's
// binding validator
func InitValidator() {
	validateOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateDateKey(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateOrderKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "all", "single", "multi":
		return true
	}
	return false
}

func validateBatchStrategy(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "scenario", "capacity":
		return true
	}
	return false
}

// ValidationErrorFormatter formats validation errors into a field map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			// Drop the root struct name: lines[3].issueNo
			field := e.Namespace()
			if i := strings.Index(field, "."); i >= 0 {
				field = field[i+1:]
			}
			fields[field] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "not_blank":
		return "must not be blank"
	case "date_key":
		return "must be a date in YYYY-MM-DD format"
	case "order_kind":
		return "must be one of: all, single, multi"
	case "batch_strategy":
		return "must be one of: scenario, capacity"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	return bindWith(c.ShouldBindJSON, obj)
}

// BindFormAndValidate binds form or multipart fields and validates them
func BindFormAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	return bindWith(c.ShouldBind, obj)
}

func bindWith(bind func(obj interface{}) error, obj interface{}) *errors.AppError {
	InitValidator()
	if err := bind(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

