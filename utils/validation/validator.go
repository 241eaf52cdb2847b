package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	alphaSpaceRegex  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	alnumSpaceRegex  = regexp.MustCompile(`^[A-Za-z0-9\s]+$`)
	titleRegex       = regexp.MustCompile(`^[A-Za-z0-9\s,.\-()]+$`)
	postalCodeRegex  = regexp.MustCompile(`^[0-9]{6}$`)
	phoneNumberRegex = regexp.MustCompile(`^[0-9]{10}$`)
	moneyRegex       = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`) // fits numeric(10,2)
)

// DateLayout is the only accepted date format in requests
const DateLayout = "2006-01-02"

// Errors is a list of human readable validation messages
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "; ")
}

// Messages returns the individual messages
func (e Errors) Messages() []string {
	return []string(e)
}

// Add appends a message and returns the list for chaining
func (e Errors) Add(format string, args ...interface{}) Errors {
	return append(e, fmt.Sprintf(format, args...))
}

// OrNil returns nil when no message was collected
func (e Errors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validator wraps the go-playground validator with the format tags used by request structs
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	mustRegister(v, "alphaspace", regexRule(alphaSpaceRegex))
	mustRegister(v, "alnumspace", regexRule(alnumSpaceRegex))
	mustRegister(v, "title", regexRule(titleRegex))
	mustRegister(v, "postalcode", regexRule(postalCodeRegex))
	mustRegister(v, "phone", regexRule(phoneNumberRegex))
	mustRegister(v, "money", regexRule(moneyRegex))
	mustRegister(v, "pastdate", func(fl validator.FieldLevel) bool {
		t, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil && t.Before(time.Now())
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func regexRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ValidateStruct validates a struct using struct tags. Failures come back as Errors.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	return FormatValidationErrors(validationErrs)
}

// FormatValidationErrors converts validator errors into one message per field
func FormatValidationErrors(errs validator.ValidationErrors) Errors {
	out := make(Errors, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = out.Add("%s is required", field)
		case "email":
			out = out.Add("%s must be a valid email address", field)
		case "min":
			if e.Kind() == reflect.String {
				out = out.Add("%s must be at least %s characters", field, e.Param())
			} else {
				out = out.Add("%s must be at least %s", field, e.Param())
			}
		case "max":
			if e.Kind() == reflect.String {
				out = out.Add("%s must be at most %s characters", field, e.Param())
			} else {
				out = out.Add("%s must be at most %s", field, e.Param())
			}
		case "gte":
			out = out.Add("%s must be greater than or equal to %s", field, e.Param())
		case "lte":
			out = out.Add("%s must be less than or equal to %s", field, e.Param())
		case "gt":
			out = out.Add("%s must be greater than %s", field, e.Param())
		case "oneof":
			out = out.Add("%s must be one of: %s", field, e.Param())
		case "alphaspace":
			out = out.Add("%s may contain only letters and spaces", field)
		case "alnumspace":
			out = out.Add("%s may contain only letters, digits and spaces", field)
		case "title":
			out = out.Add("%s may contain only letters, digits, spaces and , . - ( )", field)
		case "postalcode":
			out = out.Add("%s must be exactly 6 digits", field)
		case "phone":
			out = out.Add("%s must be exactly 10 digits", field)
		case "money":
			out = out.Add("%s must be a non-negative amount with at most two decimals", field)
		case "pastdate":
			out = out.Add("%s must be a past date in YYYY-MM-DD format", field)
		default:
			out = out.Add("%s is invalid", field)
		}
	}
	return out
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
