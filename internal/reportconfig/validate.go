package reportconfig

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// ValidationError is a definition that cannot be run
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = validator.New()

// Validate checks struct tags first, then rules tags cannot express
func Validate(cfg *Config) error {
	// 1. Tags
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{fe.Namespace(), fmt.Sprintf("failed %q", fe.Tag())}
		}
		return fmt.Errorf("validate report config: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Reports))
	for i, r := range cfg.Reports {
		prefix := fmt.Sprintf("reports[%d]", i)

		// 2. Unique ids
		if _, dup := seen[r.ID]; dup {
			return ValidationError{prefix + ".id", fmt.Sprintf("duplicate report %q", r.ID)}
		}
		seen[r.ID] = struct{}{}

		// 3. Aggregating reports need a complete spec
		if r.Aggregates() {
			if _, err := r.Spec(); err != nil {
				return prefixed(prefix, err)
			}
		} else if r.Fields.Value == "" {
			return ValidationError{prefix + ".fields.value", "required"}
		}

		if r.ID == contracts.ReportGDPCorrelation && r.Fields.Value == "" {
			return ValidationError{prefix + ".fields.value", "required"}
		}

		// 4. Filters must build
		if _, _, err := r.Rules(); err != nil {
			return prefixed(prefix, err)
		}
	}

	return nil
}

func prefixed(prefix string, err error) error {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ValidationError{prefix + "." + ve.Field, ve.Message}
	}
	return err
}
