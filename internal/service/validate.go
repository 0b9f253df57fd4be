package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/budgetwise/internal/money"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their wire names.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		// positive_amount accepts decimal strings greater than zero and no
		// larger than money.MaxAbs. Empty strings pass so that "required"
		// reports them.
		if err := v.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			c, err := money.Parse(s)
			return err == nil && c > 0
		}); err != nil {
			panic(fmt.Sprintf("registering positive_amount: %v", err))
		}

		validate = v
	})
	return validate
}

// validateMsg checks msg's validate tags and turns the first failure into an
// InvalidArgument error.
func validateMsg(msg any) error {
	err := getValidator().Struct(msg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return connect.NewError(connect.CodeInvalidArgument, describe(fieldErrs[0]))
	}
	return connect.NewError(connect.CodeInvalidArgument, err)
}

func describe(fe validator.FieldError) error {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "email":
		return fmt.Errorf("%s must be a valid email address", field)
	case "max":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Errorf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", field, fe.Param())
	case "datetime":
		return fmt.Errorf("%s must be a date formatted as %s", field, fe.Param())
	case "positive_amount":
		return fmt.Errorf("%s must be a positive amount up to %s", field, money.MaxAbs)
	case "nefield":
		return fmt.Errorf("%s must differ from %s", field, fe.Param())
	default:
		return fmt.Errorf("%s failed %q validation", field, fe.Tag())
	}
}
