package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/enums"
	pkgerrors "github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	// decimals are validated through their string form so struct traversal never
	// descends into decimal.Decimal internals.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	must(v.RegisterValidation("dec_gt0", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl.Field())
		return ok && d.IsPositive()
	}))
	must(v.RegisterValidation("dec_gte0", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl.Field())
		return ok && !d.IsNegative()
	}))
	must(v.RegisterValidation("uom", func(fl validator.FieldLevel) bool {
		_, err := enums.ParseUnitOfMeasure(fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("paymethod", func(fl validator.FieldLevel) bool {
		_, err := enums.ParsePaymentMethod(fl.Field().String())
		return err == nil
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func decimalOf(field reflect.Value) (decimal.Decimal, bool) {
	if field.Kind() != reflect.String {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(field.String())
	return d, err == nil
}

// Struct runs the tag rules on an input DTO and converts violations into a
// VALIDATION_ERROR carrying one message per field.
func Struct(input any) error {
	if err := validate.Struct(input); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldPath(fieldErr)] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

// fieldPath drops the root struct name from the namespace, e.g. lines[0].product_id.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "dec_gt0":
		return "must be greater than zero"
	case "dec_gte0":
		return "must not be negative"
	case "uom":
		return "must be a known unit of measure"
	case "paymethod":
		return "must be a known payment method"
	}
	return "is invalid"
}
