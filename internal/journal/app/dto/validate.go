package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"moodnote/internal/journal/domain/entities"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет тело запроса по тегам validate. Ошибки оборачивают
// entities.ErrValidation; для полей записи используются тексты предметной области.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", entities.ErrValidation, err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", entities.ErrValidation, strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "Mood" && fe.Tag() == "required":
		return entities.MsgMoodRequired
	case fe.Field() == "Message" && fe.Tag() == "required":
		return entities.MsgMessageRequired
	case fe.Field() == "Message" && fe.Tag() == "max":
		return entities.MsgMessageTooLong
	case fe.Field() == "DraftToken":
		return "draft_token is " + fe.Tag()
	case fe.Tag() == "oneof":
		return fmt.Sprintf("%s must be one of [%s]", strings.ToLower(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag())
	}
}
