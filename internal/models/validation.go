package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected field using its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the field errors of one value.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validate reads the same binding tags gin uses for request binding.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	RegisterValidations(v)
	return v
}

// RegisterValidations makes v report fields by their JSON names and adds
// the request rules that struct tags cannot express.
// Must be called before v is used concurrently.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateRequestNulls, PredictionRequest{})
}

func validateRequestNulls(sl validator.StructLevel) {
	r := sl.Current().Interface().(PredictionRequest)
	if r.nullMaxPredictions {
		sl.ReportError(r.MaxPredictions, "max_predictions", "MaxPredictions", "notnull", "")
	}
	if r.nullConfidenceThreshold {
		sl.ReportError(r.ConfidenceThreshold, "confidence_threshold", "ConfidenceThreshold", "notnull", "")
	}
}

// Validate checks the request against its field constraints.
func (r PredictionRequest) Validate() error {
	return toValidationError(validate.Struct(r))
}

// Validate checks a single prediction.
func (p CodePrediction) Validate() error {
	if err := toValidationError(validate.Struct(p)); err != nil {
		return err
	}
	if !p.CodeType.Valid() {
		return &ValidationError{Fields: []FieldError{{
			Field:   "code_type",
			Message: fmt.Sprintf("must be one of %s, %s, %s", CodeTypeICD10, CodeTypeCPT, CodeTypeHCPCS),
		}}}
	}
	return nil
}

// Validate checks the response and every prediction it carries.
func (r PredictionResponse) Validate() error {
	if err := toValidationError(validate.Struct(r)); err != nil {
		return err
	}
	for i, p := range r.Predictions {
		if !p.CodeType.Valid() {
			return &ValidationError{Fields: []FieldError{{
				Field:   fmt.Sprintf("predictions[%d].code_type", i),
				Message: "unknown code type " + string(p.CodeType),
			}}}
		}
	}
	return nil
}

// FieldErrors extracts field-level messages from a validator error.
// It returns nil when err carries no field errors.
func FieldErrors(err error) []FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return fields
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	if fields := FieldErrors(err); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return err
}

// fieldPath drops the leading struct name from the namespace,
// e.g. "PredictionResponse.predictions[0].code" becomes "predictions[0].code".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "field required"
	case "notnull":
		return "must not be null"
	case "min":
		if isString {
			if fe.Param() == "1" {
				return "must not be empty"
			}
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if isString {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be less than or equal to " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}
