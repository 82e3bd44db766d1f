// Package validation holds the shared validator instance and the custom
// rules for API enums.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/astralume/astral-api/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validate is a shared validator instance.
var Validate *validator.Validate

// Dimensions a natal reading can focus on.
var Dimensions = []string{"personality", "love", "career", "wealth", "health"}

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("lang", validateLang); err != nil {
		panic(fmt.Sprintf("failed to register lang validator: %v", err))
	}
	if err := Validate.RegisterValidation("dimension", validateDimension); err != nil {
		panic(fmt.Sprintf("failed to register dimension validator: %v", err))
	}
	if err := Validate.RegisterValidation("scenario", validateScenario); err != nil {
		panic(fmt.Sprintf("failed to register scenario validator: %v", err))
	}
}

func validateLang(fl validator.FieldLevel) bool {
	switch models.Lang(fl.Field().String()) {
	case models.LangZH, models.LangEN:
		return true
	default:
		return false
	}
}

func validateDimension(fl validator.FieldLevel) bool {
	return ValidateDimension(fl.Field().String()) == nil
}

func validateScenario(fl validator.FieldLevel) bool {
	switch models.Scenario(fl.Field().String()) {
	case models.ScenarioNatal, models.ScenarioDaily, models.ScenarioAsk,
		models.ScenarioSynastry, models.ScenarioWiki:
		return true
	default:
		return false
	}
}

// SanitizeText trims whitespace and strips control characters except newline
// and tab.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// ValidateDimension checks a natal reading dimension value.
func ValidateDimension(value string) error {
	for _, d := range Dimensions {
		if value == d {
			return nil
		}
	}
	return fmt.Errorf("invalid dimension: %s (must be one of %s)", value, strings.Join(Dimensions, ", "))
}

// ValidateMoodIntensity checks the 0-100 bound used by thought-record moods.
func ValidateMoodIntensity(value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("mood intensity must be between 0 and 100, got %d", value)
	}
	return nil
}
