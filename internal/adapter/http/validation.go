package http

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/EcrTech/FL-sub005/internal/domain/verification"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details []FieldError   `json:"details,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

var (
	reVPA   = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
	rePhone = regexp.MustCompile(`^(\+91)?[6-9][0-9]{9}$`)
	rePAN   = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// Report json names so details match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Decimals are validated as their string form.
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("dpos", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	_ = v.RegisterValidation("dec2", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Equal(d.Round(2))
	})
	_ = v.RegisterValidation("ifsc", func(fl validator.FieldLevel) bool {
		_, err := verification.NormalizeIFSC(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("vpa", func(fl validator.FieldLevel) bool {
		return reVPA.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("inphone", func(fl validator.FieldLevel) bool {
		return rePhone.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	})
	_ = v.RegisterValidation("pan", func(fl validator.FieldLevel) bool {
		return rePAN.MatchString(strings.ToUpper(fl.Field().String()))
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// ToFieldErrors maps validator.ValidationErrors to readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "dpos":
			out = append(out, FieldError{Field: field, Message: "must be a positive amount"})
		case "dec2":
			out = append(out, FieldError{Field: field, Message: "must have at most 2 decimal places"})
		case "ifsc":
			out = append(out, FieldError{Field: field, Message: "must be a valid IFSC"})
		case "vpa":
			out = append(out, FieldError{Field: field, Message: "must be a UPI address like name@bank"})
		case "inphone":
			out = append(out, FieldError{Field: field, Message: "must be a 10-digit mobile number"})
		case "pan":
			out = append(out, FieldError{Field: field, Message: "must be a valid PAN"})
		case "email":
			out = append(out, FieldError{Field: field, Message: "must be a valid email"})
		case "oneof":
			out = append(out, FieldError{Field: field, Message: "must be one of: " + e.Param()})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		case "min", "max", "len":
			unit := " item(s)"
			if e.Kind() == reflect.String {
				unit = " characters"
			}
			bound := map[string]string{"min": "at least ", "max": "at most ", "len": "exactly "}[e.Tag()]
			out = append(out, FieldError{Field: field, Message: "must have " + bound + e.Param() + unit})
		case "numeric":
			out = append(out, FieldError{Field: field, Message: "must contain digits only"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
