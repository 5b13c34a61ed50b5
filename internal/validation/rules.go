// Package validation checks and cleans contact-form input before it reaches
// templates or the mail dispatcher.
//
// Field rules run through go-playground/validator; the XSS and SQL injection
// screens are pattern heuristics and never replace output encoding.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Custom validator tags.
const (
	tagName    = "vnname"
	tagEmail   = "emailshape"
	tagPhone   = "phonechars"
	tagCompany = "company"
	tagVNPhone = "vnmobile"
)

var (
	// Letters (Vietnamese diacritics included, composed or combining) and spaces.
	nameRegex = regexp.MustCompile(`^[\p{L}\p{M}\s]+$`)

	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Digits, +, -, spaces and parentheses.
	phoneRegex = regexp.MustCompile(`^[0-9+\-\s()]+$`)

	// Alphanumeric, Vietnamese letters and . , - &
	companyRegex = regexp.MustCompile(`^[\p{L}\p{M}0-9\s.,\-&]+$`)

	// Vietnamese mobile numbers, checked after whitespace is removed.
	vnMobileRegex = regexp.MustCompile(`^(\+84|84|0)[35789][0-9]{8}$`)
)

// Rule describes the checks for one field. Checks run in order:
// required, minimum length, maximum length, pattern.
type Rule struct {
	Label    string
	Required bool
	Min      int
	Max      int

	// Pattern is a registered custom tag; PatternMessage is shown when it fails.
	Pattern        string
	PatternMessage string
}

// Tag renders the rule as a validator tag string.
func (r Rule) Tag() string {
	parts := make([]string, 0, 4)
	if r.Required {
		parts = append(parts, "required")
	} else {
		parts = append(parts, "omitempty")
	}
	if r.Min > 0 {
		parts = append(parts, "min="+strconv.Itoa(r.Min))
	}
	if r.Max > 0 {
		parts = append(parts, "max="+strconv.Itoa(r.Max))
	}
	if r.Pattern != "" {
		parts = append(parts, r.Pattern)
	}
	return strings.Join(parts, ",")
}

// Optional returns a copy of the rule that accepts an empty value.
func (r Rule) Optional() Rule {
	r.Required = false
	return r
}

// Field rules.
var (
	NameRule = Rule{
		Label: "Name", Required: true, Min: 2, Max: 100,
		Pattern: tagName, PatternMessage: "Name may only contain letters and spaces",
	}
	EmailRule = Rule{
		Label: "Email", Required: true, Max: 255,
		Pattern: tagEmail, PatternMessage: "Email address is not valid",
	}
	PhoneRule = Rule{
		Label: "Phone", Required: true, Min: 10, Max: 15,
		Pattern: tagPhone, PatternMessage: "Phone may only contain digits, spaces and + - ( )",
	}
	// MobilePhoneRule is the stricter phone rule applied before a form is
	// sent; the API itself accepts any phone-shaped value.
	MobilePhoneRule = Rule{
		Label: "Phone", Required: true, Min: 10, Max: 15,
		Pattern: tagVNPhone, PatternMessage: "Phone must be a Vietnamese mobile number",
	}
	MessageRule = Rule{
		Label: "Message", Required: true, Min: 10, Max: 1000,
	}
	CompanyRule = Rule{
		Label: "Company", Max: 200,
		Pattern: tagCompany, PatternMessage: "Company may only contain letters, digits and . , - &",
	}
)

// FieldRule pairs a form field with its rule.
type FieldRule struct {
	Field string
	Rule  Rule
}

// ContactRules is the contact form rule table, in reporting order.
var ContactRules = []FieldRule{
	{Field: "name", Rule: NameRule},
	{Field: "email", Rule: EmailRule},
	{Field: "phone", Rule: PhoneRule},
	{Field: "message", Rule: MessageRule},
	{Field: "company", Rule: CompanyRule},
}

// ClientContactRules is ContactRules with the Vietnamese mobile rule.
var ClientContactRules = []FieldRule{
	{Field: "name", Rule: NameRule},
	{Field: "email", Rule: EmailRule},
	{Field: "phone", Rule: MobilePhoneRule},
	{Field: "message", Rule: MessageRule},
	{Field: "company", Rule: CompanyRule},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers the custom tags used by the rule table.
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation(tagName, matches(nameRegex))
	_ = v.RegisterValidation(tagEmail, matches(emailRegex))
	_ = v.RegisterValidation(tagPhone, matches(phoneRegex))
	_ = v.RegisterValidation(tagCompany, matches(companyRegex))
	_ = v.RegisterValidation(tagVNPhone, func(fl validator.FieldLevel) bool {
		return IsVietnameseMobile(fl.Field().String())
	})
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		if val == "" {
			return true
		}
		return re.MatchString(val)
	}
}

// IsVietnameseMobile reports whether phone is a Vietnamese mobile number
// once all whitespace is removed.
func IsVietnameseMobile(phone string) bool {
	return vnMobileRegex.MatchString(strings.Join(strings.Fields(phone), ""))
}

// formatFieldError turns the first failing check into a user-facing message.
func formatFieldError(rule Rule, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", rule.Label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", rule.Label, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", rule.Label, e.Param())
	default:
		if rule.PatternMessage != "" {
			return rule.PatternMessage
		}
		return fmt.Sprintf("%s is not valid", rule.Label)
	}
}
