package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use once the custom tags are registered.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("finite", isFinite); err != nil {
		panic(fmt.Sprintf("domain: register finite validation: %v", err))
	}
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		x := f.Float()
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return true
}

// analysisInput is the full boundary of one analysis.
type analysisInput struct {
	History []HistoryPoint     `json:"history" validate:"dive"`
	Orders  []OrderBookEntry   `json:"orders" validate:"dive"`
	Params  AnalysisParameters `json:"params"`
}

// ValidateInput checks every history point, order and parameter before any
// computation happens. It returns ValidationErrors listing all violations,
// or nil.
func ValidateInput(history []HistoryPoint, orders []OrderBookEntry, p AnalysisParameters) error {
	return translate(validate.Struct(analysisInput{History: history, Orders: orders, Params: p}))
}

// ValidateParameters checks only the analysis parameters.
func ValidateParameters(p AnalysisParameters) error {
	return translate(validate.Struct(analysisInput{Params: p}))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("domain.validate: %w", err)
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &ValidationError{
			Field:  fieldPath(fe.Namespace()),
			Reason: reason(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "analysisInput.orders[2].price" -> "orders[2].price".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return fmt.Sprintf("must be a finite number, got %v", fe.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "ltefield":
		return fmt.Sprintf("must not exceed %s, got %v", fe.Param(), fe.Value())
	}
	return fmt.Sprintf("failed %q check, got %v", fe.Tag(), fe.Value())
}
