package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkForm validates form against its struct tags and returns a ValidationError naming every
// failing field.
func checkForm(op string, form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation(op, err.Error())
	}

	fields := make(map[string]any, len(fieldErrs))
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	e := apperr.Validation(op, strings.Join(msgs, "; "))
	e.Fields = fields
	return e
}

func checkRushHour(op string, rush models.RushHour) error {
	if err := checkForm(op, rush); err != nil {
		return err
	}
	from, _ := time.Parse("15:04", rush.From)
	to, _ := time.Parse("15:04", rush.To)
	if !from.Before(to) {
		return apperr.Validation(op, "rush hour must end after it starts")
	}
	return nil
}

func checkVacation(op string, vacation models.Vacation) error {
	if err := checkForm(op, vacation); err != nil {
		return err
	}
	from, _ := time.Parse(time.DateOnly, vacation.From)
	to, _ := time.Parse(time.DateOnly, vacation.To)
	if to.Before(from) {
		return apperr.Validation(op, "vacation must not end before it starts")
	}
	return nil
}
