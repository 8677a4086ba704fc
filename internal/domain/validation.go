package domain

import (
	"maps"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
// It understands the custom "match_mode" tag in addition to the built-in rules.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("match_mode", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || MatchMode(s).IsValid()
	})
	return v
}

// cloneStringMap creates a deep copy of a string map to prevent aliasing.
// Returns nil for nil input to maintain consistency.
func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	result := make(map[string]string, len(m))
	maps.Copy(result, m)
	return result
}
