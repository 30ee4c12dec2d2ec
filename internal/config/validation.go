package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/born-ml/superres/internal/fault"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field and the cross-field rules. All failures are
// reported together, each wrapping fault.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fault.Configf("%v", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fault.Configf("%s: %s", trimRoot(fe.Namespace()), describe(fe)))
		}
	}

	if c.Run.Load != "" && c.Run.LoadGen != "" {
		errs = append(errs, fault.Configf("run.load and run.load_gen are mutually exclusive"))
	}
	if c.Train.Scale > 0 && c.Train.ImageSize%c.Train.Scale != 0 {
		errs = append(errs, fault.Configf("train.image_size %d is not a multiple of train.scale %d",
			c.Train.ImageSize, c.Train.Scale))
	}

	return errors.Join(errs...)
}

func trimRoot(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return "is required"
	case "oneof":
		return fmt.Sprintf("%v is not one of [%s]", fe.Value(), fe.Param())
	case "gt", "gte", "lte":
		return fmt.Sprintf("%v must be %s %s", fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%v fails %q", fe.Value(), fe.Tag())
	}
}
