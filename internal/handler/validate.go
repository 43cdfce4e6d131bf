package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"weekendschool/internal/apperr"
	"weekendschool/internal/attendance"
)

const civilDateTag = "civildate"

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Report json field names instead of Go struct names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation(civilDateTag, civilDateValidation); err != nil {
			panic(fmt.Sprintf("register %s validator: %v", civilDateTag, err))
		}
	})
}

// civilDateValidation accepts YYYY-MM-DD calendar dates.
func civilDateValidation(fl validator.FieldLevel) bool {
	_, err := attendance.ParseDate(fl.Field().String())
	return err == nil
}

// bindError turns a binding failure into an InvalidState error naming the
// offending fields.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: malformed request body", apperr.ErrInvalidState)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case civilDateTag:
			msgs = append(msgs, fe.Field()+" must be a YYYY-MM-DD date")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", apperr.ErrInvalidState, strings.Join(msgs, "; "))
}
