package assignment

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/caseload/caseload/core"
)

var (
	statusTag  = "assignment_status"
	statusText = "invalid status"

	typeTag  = "assignment_type"
	typeText = "invalid assignment type"
)

func init() {
	// validate Dates as their "YYYY-MM-DD" string; the zero Date is empty
	core.Validate.RegisterCustomTypeFunc(dateTypeFunc, Date{})

	_ = core.Validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, statusTag, statusText)

	_ = core.Validate.RegisterValidation(typeTag, typeValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, typeTag, typeText)

	core.Validate.RegisterStructValidation(updateStructValidation, UpdateAssignment{})

	core.RegisterFieldLabel("dueDate", "Due date")
	core.RegisterFieldLabel("name", "Name")
	core.RegisterFieldLabel("schoolSite", "School site")
}

func dateTypeFunc(field reflect.Value) interface{} {
	if d, ok := field.Interface().(Date); ok {
		return d.String()
	}
	return nil
}

// Custom Validators

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

func typeValidation(fl validator.FieldLevel) bool {
	return Type(fl.Field().String()).Valid()
}

// updateStructValidation checks that required fields, when provided, are not blanked out.
func updateStructValidation(sl validator.StructLevel) {
	ua, ok := sl.Current().Interface().(UpdateAssignment)
	if !ok {
		return
	}
	if ua.Name != nil && *ua.Name == "" {
		sl.ReportError(ua.Name, "name", "Name", "required", "")
	}
	if ua.DueDate != nil && ua.DueDate.IsZero() {
		sl.ReportError(ua.DueDate, "dueDate", "DueDate", "required", "")
	}
}
