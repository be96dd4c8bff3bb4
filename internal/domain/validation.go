/**
 * @description
 * Field-level validation for the subscription creation form. Validation is a
 * pure function from a request to a field->message map; an empty map means
 * the request may be submitted.
 */
package domain

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field paths using the wire names, e.g. "customer_details.email".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Inline messages shown next to the offending form field, keyed by
// field path and failed rule.
var fieldMessages = map[string]string{
	"name/required":                          "Name is required",
	"amount/gt":                              "Amount must be greater than 0",
	"currency/required":                      "Currency is required",
	"currency/oneof":                         "Currency is required",
	"interval/required":                      "Interval is required",
	"interval/oneof":                         "Interval is required",
	"interval_count/min":                     "Must be at least 1",
	"days_until_due/min":                     "Cannot be negative",
	"trial_period_days/min":                  "Cannot be negative",
	"customer_details.first_name/required":   "First name is required",
	"customer_details.last_name/required":    "Last name is required",
	"customer_details.email/required":        "Email is required",
	"customer_details.email/email":           "Invalid email address",
	"customer_details.phone_number/required": "Phone number is required",
}

// ValidateCreateRequest checks a creation request field by field and returns
// a map of field path to inline error message. A nil return means the
// request is valid.
func ValidateCreateRequest(req SubscriptionCreateRequest) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"": err.Error()}
	}

	fieldErrors := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "SubscriptionCreateRequest.")
		msg, found := fieldMessages[field+"/"+fe.Tag()]
		if !found {
			msg = "Invalid value"
		}
		fieldErrors[field] = msg
	}
	return fieldErrors
}
