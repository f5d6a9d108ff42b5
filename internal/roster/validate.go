package roster

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	errInvalidStudent = errors.New("invalid student")

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewStudent contains information needed to add a Student.
type NewStudent struct {
	Name        string  `json:"name" validate:"required"`
	Phone       string  `json:"phone" validate:"required"`
	ClassName   string  `json:"className" validate:"required"`
	FeeAmount   float64 `json:"feeAmount" validate:"gt=0"`
	TeacherName string  `json:"teacherName"`
}

// Validate trims the text fields and checks every required one is filled.
func (ns *NewStudent) Validate() error {
	ns.Name = strings.TrimSpace(ns.Name)
	ns.Phone = strings.TrimSpace(ns.Phone)
	ns.ClassName = strings.TrimSpace(ns.ClassName)
	ns.TeacherName = strings.TrimSpace(ns.TeacherName)

	err := validate.Struct(ns)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := "this field is required"
		if fe.Tag() == "gt" {
			msg = "must be greater than " + fe.Param()
		}
		flds = append(flds, FieldError{Field: fe.Field(), Error: msg})
	}
	return NewValidationError(errInvalidStudent, flds...)
}
