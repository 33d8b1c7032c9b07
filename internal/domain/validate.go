package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// itemRules mirrors the validated fields of Item so the exported struct does
// not carry validator tags.
type itemRules struct {
	Word            string `validate:"required"`
	Translation     string `validate:"required"`
	RepetitionLevel int    `validate:"gte=0,lte=6"`
	CorrectCount    int    `validate:"gte=0"`
	IncorrectCount  int    `validate:"gte=0"`
	Difficulty      string `validate:"omitempty,oneof=easy medium hard"`
}

// ValidateItem checks the required fields and value ranges of an item.
// It returns a *ValidationError naming the first offending field, or nil.
func ValidateItem(it Item) error {
	rules := itemRules{
		Word:            strings.TrimSpace(it.Word),
		Translation:     strings.TrimSpace(it.Translation),
		RepetitionLevel: it.RepetitionLevel,
		CorrectCount:    it.CorrectCount,
		IncorrectCount:  it.IncorrectCount,
		Difficulty:      string(it.Difficulty),
	}

	err := validate.Struct(rules)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "item", Reason: err.Error()}
	}

	field := strings.ToLower(verrs[0].Field())
	switch field {
	case "repetitionlevel":
		field = "repetition_level"
	case "correctcount":
		field = "correct_count"
	case "incorrectcount":
		field = "incorrect_count"
	}

	reason := "invalid " + field
	if verrs[0].Tag() == "required" {
		reason = "missing " + field
	}
	return &ValidationError{Field: field, Reason: reason}
}
