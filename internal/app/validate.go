package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"nonsense-quiz-service/internal/domain"
)

var validate = validator.New()

type scoreInput struct {
	UserName string `validate:"required,max=20"`
	Score    int    `validate:"gte=0"`
}

type submissionInput struct {
	Question    string `validate:"required,max=200"`
	Answer      string `validate:"required,max=30"`
	SubmittedBy string `validate:"max=50"`
}

// validateInput checks v against its struct tags and wraps failures in domain.ErrInvalidInput.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fe.Field()+" must be at most "+fe.Param()+" characters")
		case "gte":
			msgs = append(msgs, fe.Field()+" must be at least "+fe.Param())
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}
