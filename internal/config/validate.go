package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/leaplook/internal/typemap"
	"github.com/leapstack-labs/leaplook/pkg/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report config keys, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration. Every failure is a *core.ConfigError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.NewConfigError(c.File, describe(err))
	}

	switch c.Source.Type {
	case "files", "duckdb":
		if c.Source.Path == "" {
			return core.NewConfigError(c.File, fmt.Errorf("source.path is required for source type %q", c.Source.Type))
		}
	}

	if !typemap.IsRegistered(c.Dialect) {
		return core.NewConfigError(c.File, &typemap.UnknownDialectError{Name: c.Dialect, Available: typemap.List()})
	}

	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if err := checkRegex(ds.RegexInclude); err != nil {
			return core.NewConfigError(c.File, fmt.Errorf("datasets[%d].regex_include: %w", i, err))
		}
		if err := checkRegex(ds.RegexExclude); err != nil {
			return core.NewConfigError(c.File, fmt.Errorf("datasets[%d].regex_exclude: %w", i, err))
		}
	}
	return nil
}

func checkRegex(expr string) error {
	if expr == "" {
		return nil
	}
	_, err := regexp.Compile(expr)
	return err
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the root struct name from the namespace.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
