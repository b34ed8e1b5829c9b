package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"powerplan/internal/types"
)

// Custom tags registered by NewValidator.
const (
	tagDecimalPositive    = "decimal_gt0"
	tagDecimalNonNegative = "decimal_gte0"
	tagPrefixedID         = "prefixed_id"
)

// ValidationError describes one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validator wraps go-playground/validator with the request-level rules of the
// API. Field names in errors are the json names clients send.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with the decimal and id tags registered.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Decimals are validated through their canonical string form so no rule
	// ever compares money as float64.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, tagDecimalPositive, func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	mustRegister(v, tagDecimalNonNegative, func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	// prefixed_id=plan checks for "plan_" followed by a non-empty suffix.
	mustRegister(v, tagPrefixedID, func(fl validator.FieldLevel) bool {
		rest, ok := strings.CutPrefix(fl.Field().String(), fl.Param()+"_")
		return ok && rest != ""
	})

	return &Validator{validate: v, logger: logger}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering validation %q: %v", tag, err))
	}
}

// ValidateStruct validates s and returns a 400 AppError whose code follows the
// first failing field. All failures are listed under the
// "validation_errors" detail.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("request validation misconfigured", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	errs := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: fieldMessage(fe),
		})
	}

	first := errs[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		err,
		map[string]any{"validation_errors": errs},
	)
}

// tagToErrorCode maps a validator tag to the API error code.
func tagToErrorCode(tag string) string {
	switch tag {
	case "required":
		return string(types.ErrCodeValidationMissingField)
	case "email":
		return string(types.ErrCodeValidationInvalidEmail)
	case tagDecimalPositive, tagDecimalNonNegative:
		return string(types.ErrCodeValidationConsumption)
	case tagPrefixedID:
		return string(types.ErrCodeValidationInvalidID)
	default:
		return string(types.ErrCodeValidationMissingField)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid Email"
	case tagDecimalPositive:
		return fe.Field() + " must be a positive number"
	case tagDecimalNonNegative:
		return fe.Field() + " must not be negative"
	case tagPrefixedID:
		return fe.Field() + " is not a valid " + fe.Param() + " id"
	default:
		return fe.Field() + " is invalid"
	}
}
