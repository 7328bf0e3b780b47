package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of input and reports the first failure
// as a *ValidationError.
func validateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newValidationError("", "%v", err)
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if fe.Param() != "" {
		return newValidationError(field, "failed '%s=%s' rule", fe.Tag(), fe.Param())
	}
	return newValidationError(field, "failed '%s' rule", fe.Tag())
}

// validatePhone checks phone against the numbering plan of region. Empty is allowed.
func validatePhone(phone, region string) error {
	if phone == "" {
		return nil
	}
	p, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return newValidationError("phone", "cannot parse %q: %v", phone, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return newValidationError("phone", "%q is not a valid number for region %s", phone, region)
	}
	return nil
}

// normalizePhone renders a valid phone number in E.164 form.
func normalizePhone(phone, region string) string {
	if phone == "" {
		return ""
	}
	p, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return phone
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}

func requireNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return newValidationError(field, "must not be negative, got %s", v)
	}
	return nil
}

func requirePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return newValidationError(field, "must be greater than zero, got %s", v)
	}
	return nil
}

func requirePercent(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return newValidationError(field, "must be between 0 and 100, got %s", v)
	}
	return nil
}

// dateOrToday returns date, or today's date when empty.
func dateOrToday(date string) string {
	if date == "" {
		return time.Now().Format(dateLayout)
	}
	return date
}

func lineField(i int, name string) string {
	return fmt.Sprintf("lines[%d].%s", i, name)
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
